package database

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"thittam1hub-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryDatabase is the map-backed store used in development and tests. One
// mutex covers every operation, so the *If guards are trivially atomic here;
// the Postgres adapter gets the same semantics from conditional UPDATEs.
type MemoryDatabase struct {
	mu sync.Mutex

	users       map[string]models.User
	workspaces  map[string]models.Workspace
	memberships map[string]models.Membership // keyed workspaceID+"/"+userID
	invitations map[string]models.WorkspaceInvitation
	tasks       map[string]models.Task
	items       map[string]models.DelegatedItem
	extensions  map[string]models.DeadlineExtensionRequest
	ledgers     map[string]models.BudgetLedger // keyed by workspace id
	requests    map[string]models.BudgetRequest
	expenses    map[string]models.Expense
}

// NewMemoryDatabase creates an empty in-memory store.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:       make(map[string]models.User),
		workspaces:  make(map[string]models.Workspace),
		memberships: make(map[string]models.Membership),
		invitations: make(map[string]models.WorkspaceInvitation),
		tasks:       make(map[string]models.Task),
		items:       make(map[string]models.DelegatedItem),
		extensions:  make(map[string]models.DeadlineExtensionRequest),
		ledgers:     make(map[string]models.BudgetLedger),
		requests:    make(map[string]models.BudgetRequest),
		expenses:    make(map[string]models.Expense),
	}
}

func memberKey(workspaceID, userID string) string {
	return workspaceID + "/" + userID
}

// Users

func (db *MemoryDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	db.users[user.ID] = *user
	return nil
}

func (db *MemoryDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (db *MemoryDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

// Workspaces

func (db *MemoryDatabase) CreateWorkspace(ws *models.Workspace) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	if ws.Status == "" {
		ws.Status = models.WorkspaceActive
	}
	ws.CreatedAt = time.Now()
	ws.UpdatedAt = ws.CreatedAt
	db.workspaces[ws.ID] = *ws
	return nil
}

func (db *MemoryDatabase) GetWorkspace(id string) (*models.Workspace, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	ws, ok := db.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	return &ws, nil
}

func (db *MemoryDatabase) ListEventWorkspaces(eventID string) ([]models.Workspace, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Workspace
	for _, ws := range db.workspaces {
		if ws.EventID == eventID {
			out = append(out, ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) ListChildWorkspaces(parentID string) ([]models.Workspace, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Workspace
	for _, ws := range db.workspaces {
		if ws.ParentWorkspaceID != nil && *ws.ParentWorkspaceID == parentID {
			out = append(out, ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateWorkspaceStatus(id string, status models.WorkspaceStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	ws, ok := db.workspaces[id]
	if !ok {
		return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	ws.Status = status
	ws.UpdatedAt = time.Now()
	db.workspaces[id] = ws
	return nil
}

// Memberships

func (db *MemoryDatabase) UpsertMembership(m *models.Membership) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := memberKey(m.WorkspaceID, m.UserID)
	if existing, ok := db.memberships[key]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.CreatedAt = time.Now()
	}
	m.UpdatedAt = time.Now()
	db.memberships[key] = *m
	return nil
}

func (db *MemoryDatabase) GetMembership(workspaceID, userID string) (*models.Membership, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.memberships[memberKey(workspaceID, userID)]
	if !ok {
		return nil, fmt.Errorf("membership %s/%s: %w", workspaceID, userID, ErrNotFound)
	}
	return &m, nil
}

func (db *MemoryDatabase) ListWorkspaceMembers(workspaceID string) ([]models.Membership, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Membership
	for _, m := range db.memberships {
		if m.WorkspaceID == workspaceID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) ListUserMemberships(userID string) ([]models.Membership, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Membership
	for _, m := range db.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Invitations

func (db *MemoryDatabase) CreateInvitation(inv *models.WorkspaceInvitation) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	db.invitations[inv.ID] = *inv
	return nil
}

func (db *MemoryDatabase) GetInvitationByToken(token string) (*models.WorkspaceInvitation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, inv := range db.invitations {
		if inv.Token == token {
			out := inv
			return &out, nil
		}
	}
	return nil, fmt.Errorf("invitation: %w", ErrNotFound)
}

func (db *MemoryDatabase) ListInvitationsByEmail(email string) ([]models.WorkspaceInvitation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.WorkspaceInvitation
	for _, inv := range db.invitations {
		if inv.Email == email {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateInvitation(inv *models.WorkspaceInvitation) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.invitations[inv.ID]; !ok {
		return fmt.Errorf("invitation %s: %w", inv.ID, ErrNotFound)
	}
	inv.UpdatedAt = time.Now()
	db.invitations[inv.ID] = *inv
	return nil
}

// Tasks

func (db *MemoryDatabase) CreateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = models.TaskOpen
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	db.tasks[task.ID] = *task
	return nil
}

func (db *MemoryDatabase) GetTask(id string) (*models.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (db *MemoryDatabase) ListWorkspaceTasks(workspaceID string) ([]models.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Task
	for _, t := range db.tasks {
		if t.WorkspaceID == workspaceID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateTaskStatus(id string, status models.TaskStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	db.tasks[id] = t
	return nil
}

// Delegated items

func (db *MemoryDatabase) CreateDelegatedItem(item *models.DelegatedItem) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = models.DelegationPendingAccept
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	db.items[item.ID] = *item
	return nil
}

func (db *MemoryDatabase) GetDelegatedItem(id string) (*models.DelegatedItem, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	item, ok := db.items[id]
	if !ok {
		return nil, fmt.Errorf("delegated item %s: %w", id, ErrNotFound)
	}
	return &item, nil
}

func (db *MemoryDatabase) ListDelegatedItemsBySource(workspaceID string) ([]models.DelegatedItem, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.DelegatedItem
	for _, item := range db.items {
		if item.SourceWorkspaceID == workspaceID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) ListDelegatedItemsByTarget(workspaceID string) ([]models.DelegatedItem, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.DelegatedItem
	for _, item := range db.items {
		if item.TargetWorkspaceID == workspaceID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateDelegatedItemStatusIf(id string, expected, next models.DelegationStatus) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	item, ok := db.items[id]
	if !ok {
		return false, fmt.Errorf("delegated item %s: %w", id, ErrNotFound)
	}
	if item.Status != expected {
		return false, nil
	}
	item.Status = next
	item.UpdatedAt = time.Now()
	db.items[id] = item
	return true, nil
}

func (db *MemoryDatabase) UpdateDelegatedItemDetails(id, title, description string, dueDate time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	item, ok := db.items[id]
	if !ok {
		return fmt.Errorf("delegated item %s: %w", id, ErrNotFound)
	}
	item.Title = title
	item.Description = description
	item.DueDate = dueDate
	item.UpdatedAt = time.Now()
	db.items[id] = item
	return nil
}

// Extension requests

func (db *MemoryDatabase) CreateExtensionRequestIfNonePending(req *models.DeadlineExtensionRequest) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.extensions {
		if existing.DelegatedItemID == req.DelegatedItemID && existing.Status == models.ExtensionPending {
			return false, nil
		}
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.ExtensionPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	db.extensions[req.ID] = *req
	return true, nil
}

func (db *MemoryDatabase) GetExtensionRequest(id string) (*models.DeadlineExtensionRequest, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	req, ok := db.extensions[id]
	if !ok {
		return nil, fmt.Errorf("extension request %s: %w", id, ErrNotFound)
	}
	return &req, nil
}

func (db *MemoryDatabase) ListExtensionRequestsByItem(itemID string) ([]models.DeadlineExtensionRequest, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.DeadlineExtensionRequest
	for _, req := range db.extensions {
		if req.DelegatedItemID == itemID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) DecideExtensionRequestIfPending(id string, status models.ExtensionStatus, reviewerID string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	req, ok := db.extensions[id]
	if !ok {
		return false, fmt.Errorf("extension request %s: %w", id, ErrNotFound)
	}
	if req.Status != models.ExtensionPending {
		return false, nil
	}
	req.Status = status
	req.ReviewerID = &reviewerID
	req.UpdatedAt = time.Now()
	db.extensions[id] = req

	if status == models.ExtensionApproved {
		item, ok := db.items[req.DelegatedItemID]
		if !ok {
			return false, fmt.Errorf("delegated item %s: %w", req.DelegatedItemID, ErrNotFound)
		}
		item.DueDate = req.RequestedDueDate
		item.UpdatedAt = time.Now()
		db.items[req.DelegatedItemID] = item
	}
	return true, nil
}

// Budget

func (db *MemoryDatabase) GetBudgetLedger(workspaceID string) (*models.BudgetLedger, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.ledgers[workspaceID]
	if !ok {
		return nil, fmt.Errorf("ledger %s: %w", workspaceID, ErrNotFound)
	}
	return &l, nil
}

func (db *MemoryDatabase) CreateBudgetRequest(req *models.BudgetRequest) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.BudgetRequestPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	db.requests[req.ID] = *req
	return nil
}

func (db *MemoryDatabase) GetBudgetRequest(id string) (*models.BudgetRequest, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	req, ok := db.requests[id]
	if !ok {
		return nil, fmt.Errorf("budget request %s: %w", id, ErrNotFound)
	}
	return &req, nil
}

func (db *MemoryDatabase) ListBudgetRequestsByWorkspace(workspaceID string) ([]models.BudgetRequest, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.BudgetRequest
	for _, req := range db.requests {
		if req.RequestingWorkspaceID == workspaceID || req.TargetWorkspaceID == workspaceID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) ApproveBudgetRequest(id, reviewerID, notes string, reviewedAt time.Time) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	req, ok := db.requests[id]
	if !ok {
		return false, fmt.Errorf("budget request %s: %w", id, ErrNotFound)
	}
	if req.Status != models.BudgetRequestPending {
		return false, nil
	}
	req.Status = models.BudgetRequestApproved
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &reviewedAt
	req.ReviewNotes = notes
	req.UpdatedAt = reviewedAt
	db.requests[id] = req

	// Ledger credit happens under the same lock: a reader never observes an
	// approved request without the incremented allocation.
	ledger, ok := db.ledgers[req.RequestingWorkspaceID]
	if !ok {
		ledger = models.BudgetLedger{
			WorkspaceID: req.RequestingWorkspaceID,
			Currency:    "INR",
		}
	}
	ledger.Allocated += req.RequestedAmount
	ledger.UpdatedAt = reviewedAt
	db.ledgers[req.RequestingWorkspaceID] = ledger
	return true, nil
}

func (db *MemoryDatabase) RejectBudgetRequest(id, reviewerID, notes string, reviewedAt time.Time) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	req, ok := db.requests[id]
	if !ok {
		return false, fmt.Errorf("budget request %s: %w", id, ErrNotFound)
	}
	if req.Status != models.BudgetRequestPending {
		return false, nil
	}
	req.Status = models.BudgetRequestRejected
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &reviewedAt
	req.ReviewNotes = notes
	req.UpdatedAt = reviewedAt
	db.requests[id] = req
	return true, nil
}

// Expenses

func (db *MemoryDatabase) CreateExpense(exp *models.Expense) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}
	exp.Status = models.ExpensePending
	exp.CreatedAt = time.Now()
	exp.UpdatedAt = exp.CreatedAt
	db.expenses[exp.ID] = *exp
	return nil
}

func (db *MemoryDatabase) GetExpense(id string) (*models.Expense, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	exp, ok := db.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return &exp, nil
}

func (db *MemoryDatabase) ListWorkspaceExpenses(workspaceID string, status models.ExpenseStatus) ([]models.Expense, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Expense
	for _, exp := range db.expenses {
		if exp.WorkspaceID == workspaceID && (status == "" || exp.Status == status) {
			out = append(out, exp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *MemoryDatabase) ConfirmExpenseIfPending(id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	exp, ok := db.expenses[id]
	if !ok {
		return false, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if exp.Status != models.ExpensePending {
		return false, nil
	}
	exp.Status = models.ExpenseConfirmed
	exp.UpdatedAt = time.Now()
	db.expenses[id] = exp

	ledger, ok := db.ledgers[exp.WorkspaceID]
	if !ok {
		ledger = models.BudgetLedger{WorkspaceID: exp.WorkspaceID, Currency: "INR"}
	}
	ledger.Used += exp.Amount
	ledger.UpdatedAt = time.Now()
	db.ledgers[exp.WorkspaceID] = ledger
	return true, nil
}

// HealthCheck always succeeds for the in-memory store.
func (db *MemoryDatabase) HealthCheck() error { return nil }

// Close is a no-op.
func (db *MemoryDatabase) Close() error { return nil }
