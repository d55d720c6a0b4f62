package authz

import (
	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/models"
)

// Engine answers "can actor X do capability C on workspace W" and "can role A
// manage role B". It is a pure decision layer: all effects happen in the
// calling engines.
type Engine struct {
	matrix Matrix
	db     database.DatabaseInterface
}

func NewEngine(matrix Matrix, db database.DatabaseInterface) *Engine {
	return &Engine{matrix: matrix, db: db}
}

// Matrix exposes the injected role table for projections.
func (e *Engine) Matrix() Matrix {
	return e.matrix
}

// HasCapability is a table lookup.
func (e *Engine) HasCapability(role models.Role, cap models.Capability) bool {
	return e.matrix.HasCapability(role, cap)
}

// CanManage is true iff the target role sits exactly one level below the
// acting role. A manager never skips a level, and never manages its own or a
// higher level. This single rule is the crux of the hierarchy's integrity;
// every "can manage" display and gate goes through it.
func (e *Engine) CanManage(acting, target models.Role) bool {
	actingLevel, ok := e.matrix.LevelOf(acting)
	if !ok {
		return false
	}
	targetLevel, ok := e.matrix.LevelOf(target)
	if !ok {
		return false
	}
	return targetLevel.Depth() == actingLevel.Depth()+1
}

// MemberRole resolves the user's ACTIVE membership role for the workspace.
// Membership is workspace-scoped, never global.
func (e *Engine) MemberRole(userID, workspaceID string) (models.Role, error) {
	m, err := e.db.GetMembership(workspaceID, userID)
	if err != nil || m == nil || m.Status != models.MembershipActive {
		return "", apperr.New(apperr.KindNotAMember,
			"user %s is not an active member of workspace %s", userID, workspaceID)
	}
	return m.Role, nil
}

// Authorize resolves the user's role in the workspace and checks the
// capability. Fails NOT_A_MEMBER when there is no active membership and
// FORBIDDEN when the role lacks the capability.
func (e *Engine) Authorize(userID, workspaceID string, cap models.Capability) (models.Role, error) {
	role, err := e.MemberRole(userID, workspaceID)
	if err != nil {
		return "", err
	}
	if !e.matrix.HasCapability(role, cap) {
		return "", apperr.New(apperr.KindForbidden,
			"role %s lacks %s in workspace %s", role, cap, workspaceID)
	}
	return role, nil
}

// AuthorizeAny passes when the role holds at least one of the capabilities.
func (e *Engine) AuthorizeAny(userID, workspaceID string, caps ...models.Capability) (models.Role, error) {
	role, err := e.MemberRole(userID, workspaceID)
	if err != nil {
		return "", err
	}
	for _, cap := range caps {
		if e.matrix.HasCapability(role, cap) {
			return role, nil
		}
	}
	return "", apperr.New(apperr.KindForbidden,
		"role %s holds none of the required capabilities in workspace %s", role, workspaceID)
}
