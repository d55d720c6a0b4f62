package models

import "time"

// WorkspaceLevel is the position of a workspace in the event hierarchy.
// Levels form a strict total order: ROOT > DEPARTMENT > COMMITTEE > TEAM.
type WorkspaceLevel string

const (
	LevelRoot       WorkspaceLevel = "ROOT"
	LevelDepartment WorkspaceLevel = "DEPARTMENT"
	LevelCommittee  WorkspaceLevel = "COMMITTEE"
	LevelTeam       WorkspaceLevel = "TEAM"
)

// levelOrder maps each level to its depth below ROOT.
var levelOrder = map[WorkspaceLevel]int{
	LevelRoot:       0,
	LevelDepartment: 1,
	LevelCommittee:  2,
	LevelTeam:       3,
}

// Depth returns the level's distance from ROOT, or -1 for an unknown level.
func (l WorkspaceLevel) Depth() int {
	if d, ok := levelOrder[l]; ok {
		return d
	}
	return -1
}

// ChildLevel returns the level one step below, false at TEAM (no deeper nesting).
func (l WorkspaceLevel) ChildLevel() (WorkspaceLevel, bool) {
	switch l {
	case LevelRoot:
		return LevelDepartment, true
	case LevelDepartment:
		return LevelCommittee, true
	case LevelCommittee:
		return LevelTeam, true
	}
	return "", false
}

// Valid reports whether l is one of the four known levels.
func (l WorkspaceLevel) Valid() bool {
	_, ok := levelOrder[l]
	return ok
}

type WorkspaceStatus string

const (
	WorkspaceActive   WorkspaceStatus = "ACTIVE"
	WorkspaceArchived WorkspaceStatus = "ARCHIVED"
)

// Workspace is one node of an event's workspace tree. A workspace's level is
// always exactly one step below its parent's; ParentWorkspaceID is nil only
// for ROOT workspaces.
type Workspace struct {
	ID                string          `json:"id" db:"id"`
	EventID           string          `json:"event_id" db:"event_id"`
	Name              string          `json:"name" db:"name"`
	Level             WorkspaceLevel  `json:"level" db:"level"`
	ParentWorkspaceID *string         `json:"parent_workspace_id,omitempty" db:"parent_workspace_id"`
	Status            WorkspaceStatus `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "ACTIVE"
	MembershipPending MembershipStatus = "PENDING"
	MembershipRemoved MembershipStatus = "REMOVED"
)

// Membership relates a user to one workspace with a role. A user may hold
// independent memberships (and therefore roles) in several workspaces at once;
// capability checks are always workspace-scoped.
type Membership struct {
	ID          string           `json:"id" db:"id"`
	WorkspaceID string           `json:"workspace_id" db:"workspace_id"`
	UserID      string           `json:"user_id" db:"user_id"`
	Role        Role             `json:"role" db:"role"`
	Status      MembershipStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}
