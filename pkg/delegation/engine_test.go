package delegation

import (
	"testing"
	"time"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/notify"
)

type fixture struct {
	engine *Engine
	db     *database.MemoryDatabase

	root string
	dept string
	team string

	owner      *models.User // WORKSPACE_OWNER in root
	deptLead   *models.User // OPERATIONS_MANAGER in dept
	teamMember *models.User // EVENT_COORDINATOR in team
	marketing  *models.User // MARKETING_LEAD in dept
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewMemoryDatabase()
	az := authz.NewEngine(authz.DefaultMatrix(), db)
	f := &fixture{
		engine: NewEngine(db, az, notify.NewLogNotifier()),
		db:     db,
	}

	root := &models.Workspace{EventID: "ev1", Name: "HQ", Level: models.LevelRoot, Status: models.WorkspaceActive}
	if err := db.CreateWorkspace(root); err != nil {
		t.Fatal(err)
	}
	dept := &models.Workspace{EventID: "ev1", Name: "Ops", Level: models.LevelDepartment, ParentWorkspaceID: &root.ID, Status: models.WorkspaceActive}
	if err := db.CreateWorkspace(dept); err != nil {
		t.Fatal(err)
	}
	comm := &models.Workspace{EventID: "ev1", Name: "Logistics", Level: models.LevelCommittee, ParentWorkspaceID: &dept.ID, Status: models.WorkspaceActive}
	if err := db.CreateWorkspace(comm); err != nil {
		t.Fatal(err)
	}
	team := &models.Workspace{EventID: "ev1", Name: "Venue", Level: models.LevelTeam, ParentWorkspaceID: &comm.ID, Status: models.WorkspaceActive}
	if err := db.CreateWorkspace(team); err != nil {
		t.Fatal(err)
	}
	f.root, f.dept, f.team = root.ID, dept.ID, team.ID

	f.owner = f.member(t, root.ID, "owner@example.com", models.RoleWorkspaceOwner)
	f.deptLead = f.member(t, dept.ID, "lead@example.com", models.RoleOperationsManager)
	f.teamMember = f.member(t, team.ID, "coord@example.com", models.RoleEventCoordinator)
	f.marketing = f.member(t, dept.ID, "marketing@example.com", models.RoleMarketingLead)

	return f
}

func (f *fixture) member(t *testing.T, workspaceID, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email}
	if err := f.db.CreateUser(u); err != nil {
		t.Fatal(err)
	}
	m := &models.Membership{WorkspaceID: workspaceID, UserID: u.ID, Role: role, Status: models.MembershipActive}
	if err := f.db.UpsertMembership(m); err != nil {
		t.Fatal(err)
	}
	return u
}

func (f *fixture) delegate(t *testing.T, sync bool) *models.DelegatedItem {
	t.Helper()
	item, err := f.engine.Delegate(f.deptLead.ID, DelegateInput{
		SourceWorkspaceID: f.dept,
		TargetWorkspaceID: f.team,
		Title:             "Confirm venue layout",
		DueDate:           time.Now().AddDate(0, 0, 14),
		SyncToSource:      sync,
	})
	if err != nil {
		t.Fatalf("delegate: %v", err)
	}
	return item
}

func TestDelegateCreatesPendingItem(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	if item.Status != models.DelegationPendingAccept {
		t.Errorf("new item status = %s, want PENDING_ACCEPT", item.Status)
	}
	if item.SourceWorkspaceID != f.dept || item.TargetWorkspaceID != f.team {
		t.Errorf("item endpoints wrong: %s -> %s", item.SourceWorkspaceID, item.TargetWorkspaceID)
	}
}

func TestDelegateRequiresAssignTasks(t *testing.T) {
	f := newFixture(t)

	// marketing lead only holds edit_tasks and post_messages
	_, err := f.engine.Delegate(f.marketing.ID, DelegateInput{
		SourceWorkspaceID: f.dept,
		TargetWorkspaceID: f.team,
		Title:             "Posters",
	})
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
}

func TestDelegateRejectsNonDescendant(t *testing.T) {
	f := newFixture(t)

	// upward: team member is not even a dept member, but check the hierarchy
	// rule in isolation with the owner delegating root -> root sibling
	_, err := f.engine.Delegate(f.deptLead.ID, DelegateInput{
		SourceWorkspaceID: f.dept,
		TargetWorkspaceID: f.root,
		Title:             "Upward delegation",
	})
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotADescendant {
		t.Errorf("expected NOT_A_DESCENDANT for upward delegation, got %v", err)
	}

	_, err = f.engine.Delegate(f.deptLead.ID, DelegateInput{
		SourceWorkspaceID: f.dept,
		TargetWorkspaceID: f.dept,
		Title:             "Self delegation",
	})
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotADescendant {
		t.Errorf("expected NOT_A_DESCENDANT for self delegation, got %v", err)
	}
}

func TestDecideAcceptAndReject(t *testing.T) {
	f := newFixture(t)

	item := f.delegate(t, false)
	accepted, err := f.engine.Decide(f.teamMember.ID, item.ID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.DelegationAccepted {
		t.Errorf("status = %s, want ACCEPTED", accepted.Status)
	}

	item2 := f.delegate(t, false)
	rejected, err := f.engine.Decide(f.teamMember.ID, item2.ID, false)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.DelegationRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}
}

func TestRejectAfterAcceptBacksOut(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	if _, err := f.engine.Decide(f.teamMember.ID, item.ID, true); err != nil {
		t.Fatal(err)
	}
	rejected, err := f.engine.Decide(f.teamMember.ID, item.ID, false)
	if err != nil {
		t.Fatalf("reject after accept: %v", err)
	}
	if rejected.Status != models.DelegationRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}

	got, err := f.db.GetDelegatedItem(item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.DelegationRejected {
		t.Errorf("stored status = %s, want REJECTED", got.Status)
	}
}

func TestDecideClosedItemIsForbiddenTransition(t *testing.T) {
	f := newFixture(t)

	// accepting twice
	item := f.delegate(t, false)
	if _, err := f.engine.Decide(f.teamMember.ID, item.ID, true); err != nil {
		t.Fatal(err)
	}
	_, err := f.engine.Decide(f.teamMember.ID, item.ID, true)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbiddenTransition {
		t.Errorf("expected FORBIDDEN_TRANSITION on second accept, got %v", err)
	}

	// deciding a rejected item
	item2 := f.delegate(t, false)
	if _, err := f.engine.Decide(f.teamMember.ID, item2.ID, false); err != nil {
		t.Fatal(err)
	}
	_, err = f.engine.Decide(f.teamMember.ID, item2.ID, true)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbiddenTransition {
		t.Errorf("expected FORBIDDEN_TRANSITION on accepting a rejected item, got %v", err)
	}

	// once work starts, rejection is no longer available
	item3 := f.delegate(t, false)
	if _, err := f.engine.Decide(f.teamMember.ID, item3.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Advance(f.teamMember.ID, item3.ID, models.DelegationInProgress); err != nil {
		t.Fatal(err)
	}
	_, err = f.engine.Decide(f.teamMember.ID, item3.ID, false)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbiddenTransition {
		t.Errorf("expected FORBIDDEN_TRANSITION rejecting an in-progress item, got %v", err)
	}
}

func TestAdvanceHappyPath(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	if _, err := f.engine.Decide(f.teamMember.ID, item.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Advance(f.teamMember.ID, item.ID, models.DelegationInProgress); err != nil {
		t.Fatalf("to IN_PROGRESS: %v", err)
	}
	done, err := f.engine.Advance(f.teamMember.ID, item.ID, models.DelegationCompleted)
	if err != nil {
		t.Fatalf("to COMPLETED: %v", err)
	}
	if done.Status != models.DelegationCompleted {
		t.Errorf("status = %s, want COMPLETED", done.Status)
	}
}

func TestAdvanceSkippingStateFails(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	// PENDING_ACCEPT -> COMPLETED is not reachable
	_, err := f.engine.Advance(f.teamMember.ID, item.ID, models.DelegationCompleted)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbiddenTransition {
		t.Errorf("expected FORBIDDEN_TRANSITION for skipped state, got %v", err)
	}

	// REJECTED is not an advance target
	_, err = f.engine.Advance(f.teamMember.ID, item.ID, models.DelegationRejected)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbiddenTransition {
		t.Errorf("expected FORBIDDEN_TRANSITION for REJECTED target, got %v", err)
	}
}

func TestCompletionMirrorsToSourceTask(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, true)

	if item.SourceTaskID == nil {
		t.Fatal("synced item should carry a source task id")
	}
	src, err := f.db.GetTask(*item.SourceTaskID)
	if err != nil {
		t.Fatalf("mirror task: %v", err)
	}
	if src.Status != models.TaskOpen {
		t.Errorf("mirror task starts %s, want open", src.Status)
	}

	if _, err := f.engine.Decide(f.teamMember.ID, item.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Advance(f.teamMember.ID, item.ID, models.DelegationInProgress); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Advance(f.teamMember.ID, item.ID, models.DelegationCompleted); err != nil {
		t.Fatal(err)
	}

	src, err = f.db.GetTask(*item.SourceTaskID)
	if err != nil {
		t.Fatal(err)
	}
	if src.Status != models.TaskCompleted {
		t.Errorf("source task after completion = %s, want completed", src.Status)
	}
}

func TestUpdateFromSourcePropagatesDetails(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	newDue := time.Now().AddDate(0, 0, 30)
	updated, err := f.engine.UpdateFromSource(f.deptLead.ID, item.ID, "Confirm final layout", "with seating chart", newDue)
	if err != nil {
		t.Fatalf("update from source: %v", err)
	}
	if updated.Title != "Confirm final layout" || updated.Description != "with seating chart" {
		t.Errorf("details not propagated: %+v", updated)
	}

	// target-side member cannot push details
	_, err = f.engine.UpdateFromSource(f.teamMember.ID, item.ID, "x", "y", newDue)
	if kind, ok := apperr.KindOf(err); !ok || (kind != apperr.KindNotAMember && kind != apperr.KindForbidden) {
		t.Errorf("target member must not edit source details, got %v", err)
	}
}

func TestRequestExtensionOnlyOneOpen(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	due := time.Now().AddDate(0, 0, 21)
	if _, err := f.engine.RequestExtension(f.teamMember.ID, item.ID, due, "vendor delay"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	_, err := f.engine.RequestExtension(f.teamMember.ID, item.ID, due.AddDate(0, 0, 7), "more delay")
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindExtensionAlreadyPending {
		t.Errorf("expected EXTENSION_ALREADY_PENDING, got %v", err)
	}
}

func TestReviewExtensionApproveMovesDueDate(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	req, err := f.engine.RequestExtension(f.teamMember.ID, item.ID, due, "vendor delay")
	if err != nil {
		t.Fatal(err)
	}

	reviewed, err := f.engine.ReviewExtension(f.deptLead.ID, req.ID, true)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != models.ExtensionApproved {
		t.Errorf("status = %s, want APPROVED", reviewed.Status)
	}

	got, err := f.db.GetDelegatedItem(item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.DueDate.Equal(due) {
		t.Errorf("item due date = %v, want %v", got.DueDate, due)
	}

	// request is closed, a new one may open
	if _, err := f.engine.RequestExtension(f.teamMember.ID, item.ID, due.AddDate(0, 0, 7), "again"); err != nil {
		t.Errorf("new request after decision should pass: %v", err)
	}
}

func TestReviewExtensionTwiceIsAlreadyReviewed(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)

	req, err := f.engine.RequestExtension(f.teamMember.ID, item.ID, time.Now().AddDate(0, 0, 21), "delay")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.ReviewExtension(f.deptLead.ID, req.ID, false); err != nil {
		t.Fatal(err)
	}

	_, err = f.engine.ReviewExtension(f.deptLead.ID, req.ID, true)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindAlreadyReviewed {
		t.Errorf("expected ALREADY_REVIEWED, got %v", err)
	}
}

func TestReviewExtensionRejectKeepsDueDate(t *testing.T) {
	f := newFixture(t)
	item := f.delegate(t, false)
	originalDue := item.DueDate

	req, err := f.engine.RequestExtension(f.teamMember.ID, item.ID, originalDue.AddDate(0, 0, 30), "delay")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.ReviewExtension(f.deptLead.ID, req.ID, false); err != nil {
		t.Fatal(err)
	}

	got, err := f.db.GetDelegatedItem(item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.DueDate.Equal(originalDue) {
		t.Errorf("rejected extension must not move the due date: %v -> %v", originalDue, got.DueDate)
	}
}
