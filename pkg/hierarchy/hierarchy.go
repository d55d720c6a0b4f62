// Package hierarchy indexes one event's workspace tree and answers
// ancestor/descendant questions for the workflow engines.
package hierarchy

import (
	"fmt"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/models"
)

// Model is an in-memory index over one event's workspaces, keyed by id and by
// parent id. Build once per request from the loaded workspace set.
type Model struct {
	byID     map[string]models.Workspace
	children map[string][]string
	// maxHops bounds every parent-chain walk. A persisted cycle must never
	// happen, but the model must not infinite-loop if one does.
	maxHops int
}

// Build indexes the given workspaces. Order of the input does not matter.
func Build(workspaces []models.Workspace) *Model {
	m := &Model{
		byID:     make(map[string]models.Workspace, len(workspaces)),
		children: make(map[string][]string),
		maxHops:  len(workspaces) + 1,
	}
	for _, ws := range workspaces {
		m.byID[ws.ID] = ws
		if ws.ParentWorkspaceID != nil {
			m.children[*ws.ParentWorkspaceID] = append(m.children[*ws.ParentWorkspaceID], ws.ID)
		}
	}
	return m
}

// Get returns the indexed workspace by id.
func (m *Model) Get(id string) (models.Workspace, bool) {
	ws, ok := m.byID[id]
	return ws, ok
}

// LevelOf returns the workspace's hierarchy level.
func (m *Model) LevelOf(id string) (models.WorkspaceLevel, bool) {
	ws, ok := m.byID[id]
	if !ok {
		return "", false
	}
	return ws.Level, true
}

// AncestorsOf walks the parent chain from id (exclusive) to the ROOT,
// nearest ancestor first. It fails with CYCLE_DETECTED when the chain does
// not terminate at a ROOT within the hop bound; that indicates upstream data
// corruption and is logged distinctly by callers.
func (m *Model) AncestorsOf(id string) ([]string, error) {
	ws, ok := m.byID[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "workspace %s not in hierarchy", id)
	}
	var ancestors []string
	cur := ws
	for hops := 0; cur.ParentWorkspaceID != nil; hops++ {
		if hops >= m.maxHops {
			return nil, apperr.New(apperr.KindCycleDetected,
				"workspace %s parent chain does not terminate at a ROOT", id)
		}
		parent, ok := m.byID[*cur.ParentWorkspaceID]
		if !ok {
			return nil, apperr.New(apperr.KindCycleDetected,
				"workspace %s references missing parent %s", cur.ID, *cur.ParentWorkspaceID)
		}
		ancestors = append(ancestors, parent.ID)
		cur = parent
	}
	if cur.Level != models.LevelRoot {
		return nil, apperr.New(apperr.KindCycleDetected,
			"workspace %s parent chain tops out at %s (%s), not a ROOT", id, cur.ID, cur.Level)
	}
	return ancestors, nil
}

// DescendantsOf returns every workspace below id, breadth-first. The visited
// set keeps a corrupted tree from looping.
func (m *Model) DescendantsOf(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	queue := append([]string(nil), m.children[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		out = append(out, next)
		queue = append(queue, m.children[next]...)
	}
	return out
}

// IsDescendant reports whether a sits strictly below ancestor in the tree.
func (m *Model) IsDescendant(a, ancestor string) (bool, error) {
	if a == ancestor {
		return false, nil
	}
	ancestors, err := m.AncestorsOf(a)
	if err != nil {
		return false, err
	}
	for _, id := range ancestors {
		if id == ancestor {
			return true, nil
		}
	}
	return false, nil
}

// ValidateChild checks the placement invariant for a new workspace under
// parent: the child level must be exactly one step below the parent's, and
// TEAM workspaces cannot have children.
func ValidateChild(parent models.Workspace, childLevel models.WorkspaceLevel) error {
	want, ok := parent.Level.ChildLevel()
	if !ok {
		return fmt.Errorf("%s workspaces cannot have children", parent.Level)
	}
	if childLevel != want {
		return fmt.Errorf("child of a %s workspace must be %s, got %s", parent.Level, want, childLevel)
	}
	return nil
}
