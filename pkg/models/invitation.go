package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// WorkspaceInvitation is an invite to join a workspace with a specific role.
// Accepting one creates an ACTIVE membership carrying that role.
type WorkspaceInvitation struct {
	ID          string           `json:"id" db:"id"`
	WorkspaceID string           `json:"workspace_id" db:"workspace_id"`
	Email       string           `json:"email" db:"email"`
	Role        Role             `json:"role" db:"role"`
	InviterID   string           `json:"inviter_id" db:"inviter_id"`
	Token       string           `json:"token" db:"token"`
	Status      InvitationStatus `json:"status" db:"status"`
	ExpiresAt   time.Time        `json:"expires_at" db:"expires_at"`
	AcceptedBy  *string          `json:"accepted_by,omitempty" db:"accepted_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}
