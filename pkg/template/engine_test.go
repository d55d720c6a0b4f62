package template

import (
	"encoding/json"
	"testing"
	"time"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/models"
)

type fixture struct {
	engine      *Engine
	db          *database.MemoryDatabase
	workspaceID string
	coordinator *models.User
	volunteer   *models.User
}

func newFixture(t *testing.T, catalog *Catalog) *fixture {
	t.Helper()
	db := database.NewMemoryDatabase()
	az := authz.NewEngine(authz.DefaultMatrix(), db)

	ws := &models.Workspace{EventID: "ev1", Name: "Venue Team", Level: models.LevelTeam, Status: models.WorkspaceActive}
	if err := db.CreateWorkspace(ws); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		engine:      NewEngine(db, az, catalog),
		db:          db,
		workspaceID: ws.ID,
	}
	f.coordinator = f.member(t, "coord@example.com", models.RoleEventCoordinator)
	f.volunteer = f.member(t, "vol@example.com", models.RoleVolunteer)
	return f
}

func (f *fixture) member(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email}
	if err := f.db.CreateUser(u); err != nil {
		t.Fatal(err)
	}
	m := &models.Membership{WorkspaceID: f.workspaceID, UserID: u.ID, Role: role, Status: models.MembershipActive}
	if err := f.db.UpsertMembership(m); err != nil {
		t.Fatal(err)
	}
	return u
}

func (f *fixture) tasksByTemplate(t *testing.T) map[string]models.Task {
	t.Helper()
	tasks, err := f.db.ListWorkspaceTasks(f.workspaceID)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]models.Task, len(tasks))
	for _, task := range tasks {
		var meta models.TaskMetadata
		if err := json.Unmarshal(task.Metadata, &meta); err != nil {
			t.Fatalf("task %s metadata: %v", task.ID, err)
		}
		out[meta.TemplateID] = task
	}
	return out
}

func TestApplySetCreatesEveryTemplate(t *testing.T) {
	f := newFixture(t, DefaultCatalog())

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	created, err := f.engine.ApplySet(f.coordinator.ID, f.workspaceID, "conference-default", ApplyOptions{
		StartDate:         start,
		EventDurationDays: 30,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if created != 7 {
		t.Fatalf("created = %d, want 7", created)
	}

	byTpl := f.tasksByTemplate(t)

	// setup leads by floor(30*0.7) = 21 days
	venue := byTpl["setup-venue-booking"]
	if want := time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC); !venue.DueDate.Equal(want) {
		t.Errorf("venue due %s, want %s", venue.DueDate, want)
	}
	// post-event lands a fixed week after the start
	survey := byTpl["post-event-survey"]
	if want := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC); !survey.DueDate.Equal(want) {
		t.Errorf("survey due %s, want %s", survey.DueDate, want)
	}
	// registration leads by floor(30*0.6) = 18 days
	reg := byTpl["registration-open"]
	if want := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC); !reg.DueDate.Equal(want) {
		t.Errorf("registration due %s, want %s", reg.DueDate, want)
	}

	var meta models.TaskMetadata
	if err := json.Unmarshal(venue.Metadata, &meta); err != nil {
		t.Fatal(err)
	}
	if !meta.IsFromTemplate || meta.EstimatedDuration != "5d" {
		t.Errorf("metadata = %+v, want from-template with 5d estimate", meta)
	}
}

func TestApplySetRemapsDependenciesToTaskIDs(t *testing.T) {
	f := newFixture(t, DefaultCatalog())

	if _, err := f.engine.ApplySet(f.coordinator.ID, f.workspaceID, "conference-default", ApplyOptions{}); err != nil {
		t.Fatal(err)
	}
	byTpl := f.tasksByTemplate(t)

	plan := byTpl["logistics-day-plan"]
	want := map[string]bool{
		byTpl["registration-open"].ID:  true,
		byTpl["technical-av-setup"].ID: true,
	}
	if len(plan.Dependencies) != 2 {
		t.Fatalf("logistics dependencies = %v, want two task ids", plan.Dependencies)
	}
	for _, dep := range plan.Dependencies {
		if !want[dep] {
			t.Errorf("unexpected dependency %s", dep)
		}
	}
}

func TestApplySetSkipDropsTaskAndItsReferences(t *testing.T) {
	f := newFixture(t, DefaultCatalog())

	created, err := f.engine.ApplySet(f.coordinator.ID, f.workspaceID, "conference-default", ApplyOptions{
		SkipTemplateIDs: []string{"technical-av-setup"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created != 6 {
		t.Fatalf("created = %d, want 6", created)
	}

	byTpl := f.tasksByTemplate(t)
	if _, ok := byTpl["technical-av-setup"]; ok {
		t.Error("skipped template was materialized")
	}
	plan := byTpl["logistics-day-plan"]
	if len(plan.Dependencies) != 1 || plan.Dependencies[0] != byTpl["registration-open"].ID {
		t.Errorf("logistics dependencies = %v, want only the registration task", plan.Dependencies)
	}
}

func TestApplySetDropsForwardDependencies(t *testing.T) {
	catalog := NewCatalog([]models.TaskTemplateSet{{
		ID:        "misordered",
		Name:      "Misordered",
		EventType: "conference",
		Templates: []models.TaskTemplate{
			{
				ID:           "first",
				Name:         "First",
				Category:     models.CategorySetup,
				Priority:     "high",
				Dependencies: []string{"second"},
			},
			{
				ID:       "second",
				Name:     "Second",
				Category: models.CategorySetup,
				Priority: "high",
			},
		},
	}})
	f := newFixture(t, catalog)

	created, err := f.engine.ApplySet(f.coordinator.ID, f.workspaceID, "misordered", ApplyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}

	byTpl := f.tasksByTemplate(t)
	if deps := byTpl["first"].Dependencies; len(deps) != 0 {
		t.Errorf("forward dependency should drop out, got %v", deps)
	}
}

func TestApplySetRequiresCreateTasks(t *testing.T) {
	f := newFixture(t, DefaultCatalog())

	_, err := f.engine.ApplySet(f.volunteer.ID, f.workspaceID, "conference-default", ApplyOptions{})
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}

	tasks, err := f.db.ListWorkspaceTasks(f.workspaceID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Errorf("no tasks should exist after a denied apply, got %d", len(tasks))
	}
}

func TestApplySetUnknownSet(t *testing.T) {
	f := newFixture(t, DefaultCatalog())

	_, err := f.engine.ApplySet(f.coordinator.ID, f.workspaceID, "hackathon-default", ApplyOptions{})
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindTemplateSetNotFound {
		t.Errorf("expected TEMPLATE_SET_NOT_FOUND, got %v", err)
	}
}

func TestCategoryOffsets(t *testing.T) {
	cases := []struct {
		category models.TemplateCategory
		want     float64
	}{
		{models.CategorySetup, 0.7},
		{models.CategoryMarketing, 0.5},
		{models.CategoryRegistration, 0.6},
		{models.CategoryLogistics, 0.2},
		{models.CategoryTechnical, 0.3},
		{models.TemplateCategory("UNKNOWN"), 0.5},
	}
	for _, c := range cases {
		if got := categoryOffset(c.category); got != c.want {
			t.Errorf("categoryOffset(%s) = %v, want %v", c.category, got, c.want)
		}
	}
}
