package budget

import (
	"sync"
	"testing"

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
	comm string
	team string

	owner      *models.User // WORKSPACE_OWNER in root
	commLead   *models.User // EVENT_LEAD in comm, approve_budget holder
	teamMember *models.User // EVENT_COORDINATOR in team
	volunteer  *models.User // VOLUNTEER in comm, no approve_budget
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
	f.root, f.comm, f.team = root.ID, comm.ID, team.ID

	f.owner = f.member(t, root.ID, "owner@example.com", models.RoleWorkspaceOwner)
	f.commLead = f.member(t, comm.ID, "lead@example.com", models.RoleEventLead)
	f.teamMember = f.member(t, team.ID, "coord@example.com", models.RoleEventCoordinator)
	f.volunteer = f.member(t, comm.ID, "vol@example.com", models.RoleVolunteer)

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

func TestSubmitRequestRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	for _, amount := range []int64{0, -500} {
		_, err := f.engine.SubmitRequest(f.teamMember.ID, f.team, f.comm, amount, "supplies")
		if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindInvalidAmount {
			t.Errorf("amount %d: expected INVALID_AMOUNT, got %v", amount, err)
		}
	}
}

func TestSubmitRequestRequiresAncestorTarget(t *testing.T) {
	f := newFixture(t)

	// sideways: comm is not an ancestor of itself
	_, err := f.engine.SubmitRequest(f.commLead.ID, f.comm, f.comm, 1000, "self")
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotADescendant {
		t.Errorf("expected NOT_A_DESCENDANT for self target, got %v", err)
	}

	// downward: team is below comm, not above
	_, err = f.engine.SubmitRequest(f.commLead.ID, f.comm, f.team, 1000, "downward")
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotADescendant {
		t.Errorf("expected NOT_A_DESCENDANT for downward target, got %v", err)
	}
}

func TestApproveCreditsRequestingLedger(t *testing.T) {
	f := newFixture(t)

	// team asks its committee parent for 5000; ledgers start empty
	req, err := f.engine.SubmitRequest(f.teamMember.ID, f.team, f.comm, 5000, "venue deposit")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != models.BudgetRequestPending {
		t.Fatalf("new request status = %s, want pending", req.Status)
	}

	reviewed, err := f.engine.Review(f.commLead.ID, req.ID, true, "approved for deposit")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != models.BudgetRequestApproved {
		t.Errorf("status = %s, want approved", reviewed.Status)
	}

	ledger, err := f.db.GetBudgetLedger(f.team)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if ledger.Allocated != 5000 || ledger.Used != 0 {
		t.Errorf("ledger = allocated %d used %d, want 5000/0", ledger.Allocated, ledger.Used)
	}
}

func TestReviewRequiresApproveBudget(t *testing.T) {
	f := newFixture(t)

	req, err := f.engine.SubmitRequest(f.teamMember.ID, f.team, f.comm, 1000, "supplies")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.engine.Review(f.volunteer.ID, req.ID, true, "")
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbidden {
		t.Errorf("volunteer review should be FORBIDDEN, got %v", err)
	}

	// requester is not a member of the target workspace at all
	_, err = f.engine.Review(f.teamMember.ID, req.ID, true, "")
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotAMember {
		t.Errorf("non-member review should be NOT_A_MEMBER, got %v", err)
	}
}

func TestConcurrentReviewExactlyOneWins(t *testing.T) {
	f := newFixture(t)

	req, err := f.engine.SubmitRequest(f.teamMember.ID, f.team, f.comm, 2500, "equipment")
	if err != nil {
		t.Fatal(err)
	}

	const reviewers = 8
	var wg sync.WaitGroup
	errs := make([]error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Review(f.commLead.ID, req.ID, true, "race")
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if kind, ok := apperr.KindOf(err); ok && kind == apperr.KindAlreadyReviewed {
			conflicts++
			continue
		}
		t.Errorf("unexpected review error: %v", err)
	}
	if wins != 1 || conflicts != reviewers-1 {
		t.Errorf("wins = %d conflicts = %d, want exactly one winner", wins, conflicts)
	}

	ledger, err := f.db.GetBudgetLedger(f.team)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.Allocated != 2500 {
		t.Errorf("ledger credited %d, want exactly one 2500 credit", ledger.Allocated)
	}
}

func TestRejectDoesNotTouchLedger(t *testing.T) {
	f := newFixture(t)

	req, err := f.engine.SubmitRequest(f.teamMember.ID, f.team, f.comm, 9000, "speculative")
	if err != nil {
		t.Fatal(err)
	}
	reviewed, err := f.engine.Review(f.commLead.ID, req.ID, false, "not this quarter")
	if err != nil {
		t.Fatal(err)
	}
	if reviewed.Status != models.BudgetRequestRejected {
		t.Errorf("status = %s, want rejected", reviewed.Status)
	}

	if _, err := f.db.GetBudgetLedger(f.team); err == nil {
		t.Error("rejected request must not create a ledger")
	}
}

func TestExpenseLifecycleAndForecast(t *testing.T) {
	f := newFixture(t)

	// allocate 10000 to the committee by owner approval from root
	req, err := f.engine.SubmitRequest(f.commLead.ID, f.comm, f.root, 10000, "committee budget")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Review(f.owner.ID, req.ID, true, ""); err != nil {
		t.Fatal(err)
	}

	// 6500 confirmed puts utilization at 65%: moderate
	exp, err := f.engine.RecordExpense(f.volunteer.ID, f.comm, 6500, "printing")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.ConfirmExpense(f.commLead.ID, exp.ID); err != nil {
		t.Fatal(err)
	}

	// pending 2000 projects to 85%: high
	if _, err := f.engine.RecordExpense(f.volunteer.ID, f.comm, 2000, "catering hold"); err != nil {
		t.Fatal(err)
	}

	forecast, err := f.engine.Forecast(f.commLead.ID, f.comm)
	if err != nil {
		t.Fatal(err)
	}
	if forecast.Allocated != 10000 || forecast.Used != 6500 || forecast.PendingAmount != 2000 {
		t.Fatalf("forecast numbers wrong: %+v", forecast)
	}
	if forecast.ProjectedSpend != 8500 {
		t.Errorf("projected spend = %d, want 8500", forecast.ProjectedSpend)
	}
	if forecast.Health != models.HealthModerate {
		t.Errorf("health = %s, want moderate", forecast.Health)
	}
	if forecast.ProjectedHealth != models.HealthHigh {
		t.Errorf("projected health = %s, want high", forecast.ProjectedHealth)
	}
}

func TestConfirmExpenseTwiceIsAlreadyReviewed(t *testing.T) {
	f := newFixture(t)

	exp, err := f.engine.RecordExpense(f.volunteer.ID, f.comm, 100, "tape")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.ConfirmExpense(f.commLead.ID, exp.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.engine.ConfirmExpense(f.commLead.ID, exp.ID)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindAlreadyReviewed {
		t.Errorf("expected ALREADY_REVIEWED, got %v", err)
	}
}

func TestForecastWithoutLedgerIsZero(t *testing.T) {
	f := newFixture(t)

	forecast, err := f.engine.Forecast(f.teamMember.ID, f.team)
	if err != nil {
		t.Fatalf("forecast without ledger: %v", err)
	}
	if forecast.Allocated != 0 || forecast.Used != 0 {
		t.Errorf("empty forecast = %+v, want zeros", forecast)
	}
	if forecast.Health != models.HealthHealthy {
		t.Errorf("zero spend zero allocation should read healthy, got %s", forecast.Health)
	}
}

func TestHealthBands(t *testing.T) {
	cases := []struct {
		spend, allocated int64
		want             models.BudgetHealth
	}{
		{0, 1000, models.HealthHealthy},
		{599, 1000, models.HealthHealthy},
		{600, 1000, models.HealthModerate},
		{799, 1000, models.HealthModerate},
		{800, 1000, models.HealthHigh},
		{999, 1000, models.HealthHigh},
		{1000, 1000, models.HealthOverBudget},
		{1500, 1000, models.HealthOverBudget},
		{1, 0, models.HealthOverBudget},
		{0, 0, models.HealthHealthy},
	}
	for _, c := range cases {
		if got := healthBand(c.spend, c.allocated); got != c.want {
			t.Errorf("healthBand(%d, %d) = %s, want %s", c.spend, c.allocated, got, c.want)
		}
	}
}
