// Package template expands static task template sets into concrete tasks
// inside one workspace, remapping inter-template dependencies and scheduling
// due dates relative to the event start.
package template

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/models"
)

// Engine applies template sets from a catalog.
type Engine struct {
	db      database.DatabaseInterface
	authz   *authz.Engine
	catalog *Catalog
}

func NewEngine(db database.DatabaseInterface, az *authz.Engine, catalog *Catalog) *Engine {
	return &Engine{db: db, authz: az, catalog: catalog}
}

// ApplyOptions tunes template application. Zero values mean: start now, a 30
// day preparation window, skip nothing.
type ApplyOptions struct {
	StartDate         time.Time
	EventDurationDays int
	SkipTemplateIDs   []string
}

// categoryOffset gives the share of the preparation window a category's tasks
// should lead the start date by.
func categoryOffset(category models.TemplateCategory) float64 {
	switch category {
	case models.CategorySetup:
		return 0.7
	case models.CategoryMarketing:
		return 0.5
	case models.CategoryRegistration:
		return 0.6
	case models.CategoryLogistics:
		return 0.2
	case models.CategoryTechnical:
		return 0.3
	default:
		return 0.5
	}
}

// ApplySet materializes every non-skipped template in the named set into the
// workspace, in the set's declared order, and returns how many tasks were
// created.
//
// Due dates lead the start date by floor(durationDays * offset(category));
// POST_EVENT templates land a fixed 7 days after start. Dependencies are
// remapped through a running template-id to task-id map, so a dependency on
// a skipped or later-declared template silently drops out. Declared order is
// trusted to respect dependency order.
//
// Authorization and set lookup fail before any task exists. Once creation
// starts, an individual failure stops the run and reports the partial count;
// created tasks are not rolled back.
func (e *Engine) ApplySet(userID, workspaceID, templateSetID string, opts ApplyOptions) (int, error) {
	if _, err := e.authz.AuthorizeAny(userID, workspaceID, models.CapCreateTasks, models.CapManageTeam); err != nil {
		return 0, err
	}

	set, ok := e.catalog.Get(templateSetID)
	if !ok {
		return 0, apperr.New(apperr.KindTemplateSetNotFound,
			"template set %s not found", templateSetID)
	}

	start := opts.StartDate
	if start.IsZero() {
		start = time.Now().UTC()
	}
	durationDays := opts.EventDurationDays
	if durationDays <= 0 {
		durationDays = 30
	}

	skip := make(map[string]bool, len(opts.SkipTemplateIDs))
	for _, id := range opts.SkipTemplateIDs {
		skip[id] = true
	}

	// template id -> materialized task id, filled as we go
	idMap := make(map[string]string, len(set.Templates))
	created := 0

	for _, tpl := range set.Templates {
		if skip[tpl.ID] {
			continue
		}

		var dueDate time.Time
		if tpl.Category == models.CategoryPostEvent {
			dueDate = start.AddDate(0, 0, 7)
		} else {
			lead := int(math.Floor(float64(durationDays) * categoryOffset(tpl.Category)))
			dueDate = start.AddDate(0, 0, -lead)
		}

		var deps []string
		for _, depID := range tpl.Dependencies {
			if taskID, ok := idMap[depID]; ok {
				deps = append(deps, taskID)
			}
		}

		metadata, err := json.Marshal(models.TaskMetadata{
			TemplateID:        tpl.ID,
			EstimatedDuration: tpl.EstimatedDuration,
			IsFromTemplate:    true,
		})
		if err != nil {
			return created, fmt.Errorf("failed to marshal task metadata: %w", err)
		}

		task := &models.Task{
			WorkspaceID:  workspaceID,
			Title:        tpl.Name,
			Description:  tpl.Description,
			Category:     tpl.Category,
			Priority:     tpl.Priority,
			Status:       models.TaskOpen,
			DueDate:      dueDate,
			Dependencies: deps,
			Tags:         tpl.Tags,
			Metadata:     metadata,
		}
		if err := e.db.CreateTask(task); err != nil {
			return created, fmt.Errorf("failed to create task from template %s: %w", tpl.ID, err)
		}

		idMap[tpl.ID] = task.ID
		created++
	}

	return created, nil
}

// AvailableSets lists the catalog for display.
func (e *Engine) AvailableSets() []models.TaskTemplateSet {
	return e.catalog.Sets()
}
