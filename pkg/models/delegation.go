package models

import "time"

// DelegationStatus is the state of a delegated item. Transitions only ever
// move forward: PENDING_ACCEPT -> ACCEPTED -> IN_PROGRESS -> COMPLETED, with
// REJECTED reachable from the first two states.
type DelegationStatus string

const (
	DelegationPendingAccept DelegationStatus = "PENDING_ACCEPT"
	DelegationAccepted      DelegationStatus = "ACCEPTED"
	DelegationInProgress    DelegationStatus = "IN_PROGRESS"
	DelegationCompleted     DelegationStatus = "COMPLETED"
	DelegationRejected      DelegationStatus = "REJECTED"
)

// DelegatedItem is a task or checklist item handed from an ancestor workspace
// to a strict descendant. The record lives with the target workspace; when
// IsSynced is set, completing it mirrors completion onto SourceTaskID in the
// source workspace (target -> source, never the reverse).
type DelegatedItem struct {
	ID                string           `json:"id" db:"id"`
	SourceWorkspaceID string           `json:"source_workspace_id" db:"source_workspace_id"`
	TargetWorkspaceID string           `json:"target_workspace_id" db:"target_workspace_id"`
	Title             string           `json:"title" db:"title"`
	Description       string           `json:"description,omitempty" db:"description"`
	DueDate           time.Time        `json:"due_date" db:"due_date"`
	Status            DelegationStatus `json:"delegation_status" db:"status"`
	IsSynced          bool             `json:"is_synced" db:"is_synced"`
	SourceTaskID      *string          `json:"source_task_id,omitempty" db:"source_task_id"`
	CreatedBy         string           `json:"created_by" db:"created_by"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "PENDING"
	ExtensionApproved ExtensionStatus = "APPROVED"
	ExtensionRejected ExtensionStatus = "REJECTED"
)

// DeadlineExtensionRequest is a target-side ask to push a delegated item's due
// date. At most one request per item may be open at a time.
type DeadlineExtensionRequest struct {
	ID               string          `json:"id" db:"id"`
	DelegatedItemID  string          `json:"delegated_item_id" db:"delegated_item_id"`
	RequestedDueDate time.Time       `json:"requested_due_date" db:"requested_due_date"`
	Justification    string          `json:"justification" db:"justification"`
	Status           ExtensionStatus `json:"status" db:"status"`
	RequestedBy      string          `json:"requested_by" db:"requested_by"`
	ReviewerID       *string         `json:"reviewer_id,omitempty" db:"reviewer_id"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}
