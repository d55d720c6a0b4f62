package database

import (
	"errors"
	"fmt"
	"time"

	"thittam1hub-backend/pkg/models"
)

// ErrNotFound is returned by lookups when the row does not exist. Adapters
// wrap it so callers can errors.Is against one sentinel.
var ErrNotFound = errors.New("not found")

// DatabaseInterface is the persistence collaborator for the workflow engines.
// Every entity is addressable by id and queryable by workspace filters; the
// *If methods are conditional (guarded) updates: the returned bool reports
// whether the guard matched, and they are the sole transition guard for
// budget reviews and delegation status changes.
type DatabaseInterface interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)

	// Workspaces
	CreateWorkspace(ws *models.Workspace) error
	GetWorkspace(id string) (*models.Workspace, error)
	ListEventWorkspaces(eventID string) ([]models.Workspace, error)
	ListChildWorkspaces(parentID string) ([]models.Workspace, error)
	UpdateWorkspaceStatus(id string, status models.WorkspaceStatus) error

	// Memberships
	UpsertMembership(m *models.Membership) error
	GetMembership(workspaceID, userID string) (*models.Membership, error)
	ListWorkspaceMembers(workspaceID string) ([]models.Membership, error)
	ListUserMemberships(userID string) ([]models.Membership, error)

	// Invitations
	CreateInvitation(inv *models.WorkspaceInvitation) error
	GetInvitationByToken(token string) (*models.WorkspaceInvitation, error)
	ListInvitationsByEmail(email string) ([]models.WorkspaceInvitation, error)
	UpdateInvitation(inv *models.WorkspaceInvitation) error

	// Tasks
	CreateTask(task *models.Task) error
	GetTask(id string) (*models.Task, error)
	ListWorkspaceTasks(workspaceID string) ([]models.Task, error)
	UpdateTaskStatus(id string, status models.TaskStatus) error

	// Delegated items
	CreateDelegatedItem(item *models.DelegatedItem) error
	GetDelegatedItem(id string) (*models.DelegatedItem, error)
	ListDelegatedItemsBySource(workspaceID string) ([]models.DelegatedItem, error)
	ListDelegatedItemsByTarget(workspaceID string) ([]models.DelegatedItem, error)
	// UpdateDelegatedItemStatusIf moves the item from expected to next in one
	// guarded update; false means the item was not in the expected status.
	UpdateDelegatedItemStatusIf(id string, expected, next models.DelegationStatus) (bool, error)
	UpdateDelegatedItemDetails(id, title, description string, dueDate time.Time) error

	// Deadline extension requests
	// CreateExtensionRequestIfNonePending inserts the request unless the item
	// already has a PENDING one; false means one was already open.
	CreateExtensionRequestIfNonePending(req *models.DeadlineExtensionRequest) (bool, error)
	GetExtensionRequest(id string) (*models.DeadlineExtensionRequest, error)
	ListExtensionRequestsByItem(itemID string) ([]models.DeadlineExtensionRequest, error)
	// DecideExtensionRequestIfPending stamps the decision only while the
	// request is still PENDING; false means it was already decided. An
	// approval also moves the item's due date to the requested date, in the
	// same unit as the stamp.
	DecideExtensionRequestIfPending(id string, status models.ExtensionStatus, reviewerID string) (bool, error)

	// Budget
	GetBudgetLedger(workspaceID string) (*models.BudgetLedger, error)
	CreateBudgetRequest(req *models.BudgetRequest) error
	GetBudgetRequest(id string) (*models.BudgetRequest, error)
	ListBudgetRequestsByWorkspace(workspaceID string) ([]models.BudgetRequest, error)
	// ApproveBudgetRequest atomically stamps the decision (guarded on pending)
	// and credits the requesting workspace's ledger allocation, creating the
	// ledger row if none exists. A reader never observes one half without the
	// other. False means the request was already reviewed.
	ApproveBudgetRequest(id, reviewerID, notes string, reviewedAt time.Time) (bool, error)
	RejectBudgetRequest(id, reviewerID, notes string, reviewedAt time.Time) (bool, error)

	// Expenses
	CreateExpense(exp *models.Expense) error
	GetExpense(id string) (*models.Expense, error)
	ListWorkspaceExpenses(workspaceID string, status models.ExpenseStatus) ([]models.Expense, error)
	// ConfirmExpenseIfPending flips the expense to confirmed and moves its
	// amount into the ledger's used column in one unit; false means it was
	// not pending.
	ConfirmExpenseIfPending(id string) (bool, error)

	// Health and lifecycle
	HealthCheck() error
	Close() error
}

// DatabaseConfig selects and parameterizes the backing store.
type DatabaseConfig struct {
	UseLocalDB  bool
	PostgresDSN string
	Debug       bool
}

// NewDatabase picks the store implementation from config. The in-memory store
// is for development and tests only; production requires Postgres.
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if config.PostgresDSN != "" {
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}
	if config.UseLocalDB {
		fmt.Printf("🧪 Using in-memory database (development only)\n")
		return NewMemoryDatabase()
	}
	panic("No valid database configuration found. Please configure POSTGRES_DSN or set USE_LOCAL_DB=true")
}
