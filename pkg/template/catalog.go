package template

import "thittam1hub-backend/pkg/models"

// Catalog is the static template set reference data. It is tenant
// independent and immutable at runtime.
type Catalog struct {
	sets map[string]models.TaskTemplateSet
}

// NewCatalog indexes the given sets by id.
func NewCatalog(sets []models.TaskTemplateSet) *Catalog {
	c := &Catalog{sets: make(map[string]models.TaskTemplateSet, len(sets))}
	for _, s := range sets {
		c.sets[s.ID] = s
	}
	return c
}

// Get returns a set by id.
func (c *Catalog) Get(id string) (models.TaskTemplateSet, bool) {
	s, ok := c.sets[id]
	return s, ok
}

// Sets returns every set in the catalog.
func (c *Catalog) Sets() []models.TaskTemplateSet {
	out := make([]models.TaskTemplateSet, 0, len(c.sets))
	for _, s := range c.sets {
		out = append(out, s)
	}
	return out
}

// DefaultCatalog is the built-in reference data shipped with the service.
func DefaultCatalog() *Catalog {
	return NewCatalog([]models.TaskTemplateSet{
		{
			ID:        "conference-default",
			Name:      "Conference",
			EventType: "conference",
			Templates: []models.TaskTemplate{
				{
					ID:                "setup-venue-booking",
					Name:              "Book venue",
					Description:       "Shortlist, visit and book the main venue",
					Category:          models.CategorySetup,
					Priority:          "high",
					EstimatedDuration: "5d",
					Tags:              []string{"venue"},
					IsDefault:         true,
				},
				{
					ID:                "setup-budget-plan",
					Name:              "Draft budget plan",
					Description:       "Prepare the overall event budget and allocations",
					Category:          models.CategorySetup,
					Priority:          "high",
					EstimatedDuration: "3d",
					Dependencies:      []string{"setup-venue-booking"},
					Tags:              []string{"finance"},
					IsDefault:         true,
				},
				{
					ID:                "marketing-campaign",
					Name:              "Launch marketing campaign",
					Description:       "Run the social and email campaign",
					Category:          models.CategoryMarketing,
					Priority:          "medium",
					EstimatedDuration: "10d",
					Dependencies:      []string{"setup-budget-plan"},
					Tags:              []string{"marketing"},
					IsDefault:         true,
				},
				{
					ID:                "registration-open",
					Name:              "Open registrations",
					Description:       "Publish the registration form and payment flow",
					Category:          models.CategoryRegistration,
					Priority:          "high",
					EstimatedDuration: "2d",
					Dependencies:      []string{"marketing-campaign"},
					Tags:              []string{"registration"},
					IsDefault:         true,
				},
				{
					ID:                "technical-av-setup",
					Name:              "AV and streaming setup",
					Description:       "Arrange audio, projection and live stream",
					Category:          models.CategoryTechnical,
					Priority:          "medium",
					EstimatedDuration: "4d",
					Dependencies:      []string{"setup-venue-booking"},
					Tags:              []string{"technical"},
					IsDefault:         true,
				},
				{
					ID:                "logistics-day-plan",
					Name:              "Day-of logistics plan",
					Description:       "Volunteer rosters, signage and catering schedule",
					Category:          models.CategoryLogistics,
					Priority:          "medium",
					EstimatedDuration: "3d",
					Dependencies:      []string{"registration-open", "technical-av-setup"},
					Tags:              []string{"logistics"},
					IsDefault:         true,
				},
				{
					ID:                "post-event-survey",
					Name:              "Send feedback survey",
					Description:       "Collect attendee feedback after the event",
					Category:          models.CategoryPostEvent,
					Priority:          "low",
					EstimatedDuration: "1d",
					Dependencies:      []string{"logistics-day-plan"},
					Tags:              []string{"feedback"},
					IsDefault:         true,
				},
			},
		},
		{
			ID:        "workshop-default",
			Name:      "Workshop",
			EventType: "workshop",
			Templates: []models.TaskTemplate{
				{
					ID:                "setup-room-booking",
					Name:              "Book workshop room",
					Description:       "Reserve a room with the required capacity",
					Category:          models.CategorySetup,
					Priority:          "high",
					EstimatedDuration: "2d",
					Tags:              []string{"venue"},
					IsDefault:         true,
				},
				{
					ID:                "registration-form",
					Name:              "Publish signup form",
					Description:       "Create and share the participant signup form",
					Category:          models.CategoryRegistration,
					Priority:          "high",
					EstimatedDuration: "1d",
					Dependencies:      []string{"setup-room-booking"},
					Tags:              []string{"registration"},
					IsDefault:         true,
				},
				{
					ID:                "technical-lab-setup",
					Name:              "Prepare lab machines",
					Description:       "Install required software on lab machines",
					Category:          models.CategoryTechnical,
					Priority:          "medium",
					EstimatedDuration: "2d",
					Dependencies:      []string{"setup-room-booking"},
					Tags:              []string{"technical"},
					IsDefault:         true,
				},
				{
					ID:                "post-event-report",
					Name:              "Write workshop report",
					Description:       "Summarize attendance and outcomes",
					Category:          models.CategoryPostEvent,
					Priority:          "low",
					EstimatedDuration: "1d",
					Tags:              []string{"report"},
					IsDefault:         true,
				},
			},
		},
	})
}
