package hierarchy

import (
	"errors"
	"testing"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/models"
)

func strPtr(s string) *string { return &s }

func testTree() []models.Workspace {
	return []models.Workspace{
		{ID: "root", EventID: "ev1", Name: "Event HQ", Level: models.LevelRoot},
		{ID: "dept", EventID: "ev1", Name: "Operations", Level: models.LevelDepartment, ParentWorkspaceID: strPtr("root")},
		{ID: "comm", EventID: "ev1", Name: "Logistics Committee", Level: models.LevelCommittee, ParentWorkspaceID: strPtr("dept")},
		{ID: "team", EventID: "ev1", Name: "Venue Team", Level: models.LevelTeam, ParentWorkspaceID: strPtr("comm")},
		{ID: "dept2", EventID: "ev1", Name: "Marketing", Level: models.LevelDepartment, ParentWorkspaceID: strPtr("root")},
	}
}

func TestAncestorsOf(t *testing.T) {
	m := Build(testTree())

	ancestors, err := m.AncestorsOf("team")
	if err != nil {
		t.Fatalf("AncestorsOf(team) error: %v", err)
	}
	want := []string{"comm", "dept", "root"}
	if len(ancestors) != len(want) {
		t.Fatalf("got ancestors %v, want %v", ancestors, want)
	}
	for i := range want {
		if ancestors[i] != want[i] {
			t.Errorf("ancestors[%d] = %s, want %s", i, ancestors[i], want[i])
		}
	}

	rootAncestors, err := m.AncestorsOf("root")
	if err != nil {
		t.Fatalf("AncestorsOf(root) error: %v", err)
	}
	if len(rootAncestors) != 0 {
		t.Errorf("root should have no ancestors, got %v", rootAncestors)
	}
}

func TestDescendantsOf(t *testing.T) {
	m := Build(testTree())

	descendants := m.DescendantsOf("dept")
	if len(descendants) != 2 {
		t.Fatalf("DescendantsOf(dept) = %v, want comm and team", descendants)
	}

	all := m.DescendantsOf("root")
	if len(all) != 4 {
		t.Errorf("DescendantsOf(root) = %v, want 4 workspaces", all)
	}

	if got := m.DescendantsOf("team"); len(got) != 0 {
		t.Errorf("TEAM workspace should have no descendants, got %v", got)
	}
}

func TestIsDescendant(t *testing.T) {
	m := Build(testTree())

	cases := []struct {
		a, ancestor string
		want        bool
	}{
		{"team", "root", true},
		{"team", "comm", true},
		{"comm", "root", true},
		{"root", "team", false},
		{"team", "team", false}, // strict: never its own descendant
		{"dept2", "dept", false},
	}
	for _, c := range cases {
		got, err := m.IsDescendant(c.a, c.ancestor)
		if err != nil {
			t.Fatalf("IsDescendant(%s, %s) error: %v", c.a, c.ancestor, err)
		}
		if got != c.want {
			t.Errorf("IsDescendant(%s, %s) = %v, want %v", c.a, c.ancestor, got, c.want)
		}
	}
}

func TestAncestorsOfCycleDetected(t *testing.T) {
	// a and b point at each other
	workspaces := []models.Workspace{
		{ID: "a", EventID: "ev1", Level: models.LevelDepartment, ParentWorkspaceID: strPtr("b")},
		{ID: "b", EventID: "ev1", Level: models.LevelCommittee, ParentWorkspaceID: strPtr("a")},
	}
	m := Build(workspaces)

	_, err := m.AncestorsOf("a")
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !errors.Is(err, apperr.New(apperr.KindCycleDetected, "")) {
		t.Errorf("expected CYCLE_DETECTED, got %v", err)
	}
}

func TestAncestorsOfMissingParent(t *testing.T) {
	workspaces := []models.Workspace{
		{ID: "orphan", EventID: "ev1", Level: models.LevelTeam, ParentWorkspaceID: strPtr("gone")},
	}
	m := Build(workspaces)

	_, err := m.AncestorsOf("orphan")
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindCycleDetected {
		t.Errorf("expected CYCLE_DETECTED for missing parent, got %v", err)
	}
}

func TestAncestorsOfNonRootTop(t *testing.T) {
	// chain terminates but not at a ROOT
	workspaces := []models.Workspace{
		{ID: "dept", EventID: "ev1", Level: models.LevelDepartment},
		{ID: "comm", EventID: "ev1", Level: models.LevelCommittee, ParentWorkspaceID: strPtr("dept")},
	}
	m := Build(workspaces)

	_, err := m.AncestorsOf("comm")
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindCycleDetected {
		t.Errorf("expected CYCLE_DETECTED for non-ROOT top, got %v", err)
	}
}

func TestValidateChild(t *testing.T) {
	root := models.Workspace{ID: "root", Level: models.LevelRoot}
	team := models.Workspace{ID: "team", Level: models.LevelTeam}

	if err := ValidateChild(root, models.LevelDepartment); err != nil {
		t.Errorf("DEPARTMENT under ROOT should be valid: %v", err)
	}
	if err := ValidateChild(root, models.LevelCommittee); err == nil {
		t.Error("COMMITTEE under ROOT should be rejected")
	}
	if err := ValidateChild(team, models.LevelTeam); err == nil {
		t.Error("TEAM workspaces must not accept children")
	}
}

func TestLevelDepthOrdering(t *testing.T) {
	order := []models.WorkspaceLevel{models.LevelRoot, models.LevelDepartment, models.LevelCommittee, models.LevelTeam}
	for i, level := range order {
		if level.Depth() != i {
			t.Errorf("Depth(%s) = %d, want %d", level, level.Depth(), i)
		}
	}
}
