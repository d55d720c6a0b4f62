package authz

import (
	"testing"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/models"
)

func newTestEngine(t *testing.T) (*Engine, *database.MemoryDatabase) {
	t.Helper()
	db := database.NewMemoryDatabase()
	return NewEngine(DefaultMatrix(), db), db
}

func seedMember(t *testing.T, db *database.MemoryDatabase, workspaceID string, role models.Role, status models.MembershipStatus) *models.User {
	t.Helper()
	user := &models.User{Email: string(role) + "@example.com", Name: string(role)}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	m := &models.Membership{WorkspaceID: workspaceID, UserID: user.ID, Role: role, Status: status}
	if err := db.UpsertMembership(m); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return user
}

func TestCanManageExactlyOneLevelDown(t *testing.T) {
	e, _ := newTestEngine(t)
	matrix := e.Matrix()

	for _, acting := range matrix.Roles() {
		actingLevel, _ := matrix.LevelOf(acting)
		for _, target := range matrix.Roles() {
			targetLevel, _ := matrix.LevelOf(target)
			want := targetLevel.Depth() == actingLevel.Depth()+1
			if got := e.CanManage(acting, target); got != want {
				t.Errorf("CanManage(%s@%s, %s@%s) = %v, want %v",
					acting, actingLevel, target, targetLevel, got, want)
			}
		}
	}
}

func TestCanManageUnknownRole(t *testing.T) {
	e, _ := newTestEngine(t)

	if e.CanManage("NO_SUCH_ROLE", models.RoleVolunteer) {
		t.Error("unknown acting role must not manage anything")
	}
	if e.CanManage(models.RoleWorkspaceOwner, "NO_SUCH_ROLE") {
		t.Error("unknown target role must not be manageable")
	}
}

func TestAuthorizeNotAMember(t *testing.T) {
	e, db := newTestEngine(t)

	user := &models.User{Email: "outsider@example.com"}
	if err := db.CreateUser(user); err != nil {
		t.Fatal(err)
	}

	_, err := e.Authorize(user.ID, "ws-1", models.CapPostMessages)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotAMember {
		t.Errorf("expected NOT_A_MEMBER, got %v", err)
	}
}

func TestAuthorizeInactiveMembershipIsNotAMember(t *testing.T) {
	e, db := newTestEngine(t)
	user := seedMember(t, db, "ws-1", models.RoleVolunteer, models.MembershipRemoved)

	_, err := e.Authorize(user.ID, "ws-1", models.CapPostMessages)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotAMember {
		t.Errorf("removed membership should read as NOT_A_MEMBER, got %v", err)
	}
}

func TestAuthorizeForbidden(t *testing.T) {
	e, db := newTestEngine(t)
	user := seedMember(t, db, "ws-1", models.RoleVolunteer, models.MembershipActive)

	// volunteers can post but not create
	if _, err := e.Authorize(user.ID, "ws-1", models.CapPostMessages); err != nil {
		t.Errorf("volunteer should post_messages: %v", err)
	}
	_, err := e.Authorize(user.ID, "ws-1", models.CapCreateTasks)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
}

func TestMembershipIsWorkspaceScoped(t *testing.T) {
	e, db := newTestEngine(t)
	user := seedMember(t, db, "ws-1", models.RoleEventLead, models.MembershipActive)

	if _, err := e.Authorize(user.ID, "ws-1", models.CapCreateTasks); err != nil {
		t.Errorf("member should act in own workspace: %v", err)
	}
	_, err := e.Authorize(user.ID, "ws-2", models.CapCreateTasks)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindNotAMember {
		t.Errorf("role must not carry into another workspace, got %v", err)
	}
}

func TestAuthorizeAny(t *testing.T) {
	e, db := newTestEngine(t)
	user := seedMember(t, db, "ws-1", models.RoleMarketingLead, models.MembershipActive)

	// marketing lead has edit_tasks but not create_tasks
	if _, err := e.AuthorizeAny(user.ID, "ws-1", models.CapCreateTasks, models.CapEditTasks); err != nil {
		t.Errorf("AuthorizeAny should pass on edit_tasks: %v", err)
	}
	_, err := e.AuthorizeAny(user.ID, "ws-1", models.CapCreateTasks, models.CapManageTeam)
	if kind, ok := apperr.KindOf(err); !ok || kind != apperr.KindForbidden {
		t.Errorf("expected FORBIDDEN when no capability matches, got %v", err)
	}
}

func TestDefaultMatrixShape(t *testing.T) {
	matrix := DefaultMatrix()

	// marketing lead is deliberately narrow
	caps := matrix.CapabilitiesOf(models.RoleMarketingLead)
	if len(caps) != 2 {
		t.Fatalf("MARKETING_LEAD capabilities = %v, want exactly edit_tasks and post_messages", caps)
	}
	if !matrix.HasCapability(models.RoleMarketingLead, models.CapEditTasks) ||
		!matrix.HasCapability(models.RoleMarketingLead, models.CapPostMessages) {
		t.Errorf("MARKETING_LEAD capabilities = %v", caps)
	}
	if matrix.HasCapability(models.RoleMarketingLead, models.CapAssignTasks) {
		t.Error("MARKETING_LEAD must not hold assign_tasks")
	}

	// owner holds everything
	for _, cap := range []models.Capability{
		models.CapCreateTasks, models.CapEditTasks, models.CapDeleteTasks, models.CapAssignTasks,
		models.CapPostMessages, models.CapBroadcast, models.CapInviteTeam, models.CapManageTeam,
		models.CapViewReports, models.CapExportReports, models.CapEditSettings, models.CapApproveBudget,
	} {
		if !matrix.HasCapability(models.RoleWorkspaceOwner, cap) {
			t.Errorf("WORKSPACE_OWNER missing %s", cap)
		}
	}

	// only reviewer-grade roles approve budgets
	if matrix.HasCapability(models.RoleVolunteer, models.CapApproveBudget) {
		t.Error("VOLUNTEER must not approve budgets")
	}
	if !matrix.HasCapability(models.RoleFinanceController, models.CapApproveBudget) {
		t.Error("FINANCE_CONTROLLER should approve budgets")
	}
}
