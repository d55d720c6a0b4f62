package models

import "time"

type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// TaskMetadata is the JSON payload stored in a task's metadata column.
type TaskMetadata struct {
	TemplateID        string `json:"template_id,omitempty"`
	EstimatedDuration string `json:"estimated_duration,omitempty"`
	IsFromTemplate    bool   `json:"is_from_template"`
}

// Task is a concrete work item inside one workspace. Tasks are created
// directly, or materialized from a template set, or referenced as the source
// side of a delegation. Dependencies hold IDs of other tasks in the same
// workspace.
type Task struct {
	ID           string           `json:"id" db:"id"`
	WorkspaceID  string           `json:"workspace_id" db:"workspace_id"`
	Title        string           `json:"title" db:"title"`
	Description  string           `json:"description,omitempty" db:"description"`
	Category     TemplateCategory `json:"category,omitempty" db:"category"`
	Priority     string           `json:"priority,omitempty" db:"priority"`
	Status       TaskStatus       `json:"status" db:"status"`
	DueDate      time.Time        `json:"due_date" db:"due_date"`
	Dependencies []string         `json:"dependencies,omitempty" db:"dependencies"`
	Tags         []string         `json:"tags,omitempty" db:"tags"`
	Metadata     []byte           `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}
