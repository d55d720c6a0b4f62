// Package authz holds the role capability matrix and the access-control
// engine. The matrix is an immutable value injected into every engine so that
// enforcement and UI-facing summaries share one source of truth.
package authz

import (
	"sort"

	"thittam1hub-backend/pkg/models"
)

// RoleSpec binds a role to its hierarchy level and capability set.
type RoleSpec struct {
	Level        models.WorkspaceLevel `json:"level"`
	Capabilities []models.Capability   `json:"capabilities"`
}

// Matrix is a fixed role lookup table. It is never mutated at runtime; tests
// substitute alternate matrices through NewMatrix.
type Matrix struct {
	specs map[models.Role]RoleSpec
}

// NewMatrix copies specs into an immutable Matrix.
func NewMatrix(specs map[models.Role]RoleSpec) Matrix {
	copied := make(map[models.Role]RoleSpec, len(specs))
	for role, spec := range specs {
		caps := append([]models.Capability(nil), spec.Capabilities...)
		copied[role] = RoleSpec{Level: spec.Level, Capabilities: caps}
	}
	return Matrix{specs: copied}
}

// LevelOf returns the role's hierarchy level.
func (m Matrix) LevelOf(role models.Role) (models.WorkspaceLevel, bool) {
	spec, ok := m.specs[role]
	if !ok {
		return "", false
	}
	return spec.Level, true
}

// CapabilitiesOf returns a copy of the role's capability set.
func (m Matrix) CapabilitiesOf(role models.Role) []models.Capability {
	spec, ok := m.specs[role]
	if !ok {
		return nil
	}
	return append([]models.Capability(nil), spec.Capabilities...)
}

// HasCapability is a table lookup.
func (m Matrix) HasCapability(role models.Role, cap models.Capability) bool {
	spec, ok := m.specs[role]
	if !ok {
		return false
	}
	for _, c := range spec.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Known reports whether the matrix defines the role.
func (m Matrix) Known(role models.Role) bool {
	_, ok := m.specs[role]
	return ok
}

// Roles returns the defined roles sorted by level depth, then name, for
// stable projections.
func (m Matrix) Roles() []models.Role {
	roles := make([]models.Role, 0, len(m.specs))
	for role := range m.specs {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		di, dj := m.specs[roles[i]].Level.Depth(), m.specs[roles[j]].Level.Depth()
		if di != dj {
			return di < dj
		}
		return roles[i] < roles[j]
	})
	return roles
}

// DefaultMatrix is the platform's built-in role table. Roles at the same
// level may differ in capability breadth: MARKETING_LEAD is a deliberately
// narrow committee role next to EVENT_LEAD.
func DefaultMatrix() Matrix {
	all := []models.Capability{
		models.CapCreateTasks, models.CapEditTasks, models.CapDeleteTasks,
		models.CapAssignTasks, models.CapPostMessages, models.CapBroadcast,
		models.CapInviteTeam, models.CapManageTeam, models.CapViewReports,
		models.CapExportReports, models.CapEditSettings, models.CapApproveBudget,
	}
	return NewMatrix(map[models.Role]RoleSpec{
		models.RoleWorkspaceOwner: {
			Level:        models.LevelRoot,
			Capabilities: all,
		},
		models.RoleOperationsManager: {
			Level: models.LevelDepartment,
			Capabilities: []models.Capability{
				models.CapCreateTasks, models.CapEditTasks, models.CapDeleteTasks,
				models.CapAssignTasks, models.CapPostMessages, models.CapBroadcast,
				models.CapInviteTeam, models.CapManageTeam, models.CapViewReports,
				models.CapExportReports, models.CapApproveBudget,
			},
		},
		models.RoleFinanceController: {
			Level: models.LevelDepartment,
			Capabilities: []models.Capability{
				models.CapPostMessages, models.CapViewReports,
				models.CapExportReports, models.CapApproveBudget,
			},
		},
		models.RoleEventLead: {
			Level: models.LevelCommittee,
			Capabilities: []models.Capability{
				models.CapCreateTasks, models.CapEditTasks, models.CapDeleteTasks,
				models.CapAssignTasks, models.CapPostMessages, models.CapBroadcast,
				models.CapInviteTeam, models.CapManageTeam, models.CapViewReports,
				models.CapApproveBudget,
			},
		},
		models.RoleMarketingLead: {
			Level: models.LevelCommittee,
			Capabilities: []models.Capability{
				models.CapEditTasks, models.CapPostMessages,
			},
		},
		models.RoleEventCoordinator: {
			Level: models.LevelTeam,
			Capabilities: []models.Capability{
				models.CapCreateTasks, models.CapEditTasks, models.CapAssignTasks,
				models.CapPostMessages, models.CapInviteTeam, models.CapViewReports,
			},
		},
		models.RoleVolunteer: {
			Level: models.LevelTeam,
			Capabilities: []models.Capability{
				models.CapPostMessages,
			},
		},
	})
}
