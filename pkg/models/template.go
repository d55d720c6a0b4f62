package models

// TemplateCategory drives the due-date offset when a template is materialized.
type TemplateCategory string

const (
	CategorySetup        TemplateCategory = "SETUP"
	CategoryMarketing    TemplateCategory = "MARKETING"
	CategoryRegistration TemplateCategory = "REGISTRATION"
	CategoryLogistics    TemplateCategory = "LOGISTICS"
	CategoryTechnical    TemplateCategory = "TECHNICAL"
	CategoryPostEvent    TemplateCategory = "POST_EVENT"
)

// TaskTemplate is an immutable task blueprint. Dependencies reference other
// template IDs within the same set.
type TaskTemplate struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	Category          TemplateCategory `json:"category"`
	Priority          string           `json:"priority"`
	EstimatedDuration string           `json:"estimated_duration,omitempty"`
	Dependencies      []string         `json:"dependencies,omitempty"`
	Tags              []string         `json:"tags,omitempty"`
	IsDefault         bool             `json:"is_default"`
}

// TaskTemplateSet groups templates for one event type. Sets are static
// reference data, not persisted per tenant; declared template order is the
// processing order at application time.
type TaskTemplateSet struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	EventType string         `json:"event_type"`
	Templates []TaskTemplate `json:"templates"`
}
