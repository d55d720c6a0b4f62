package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"thittam1hub-backend/pkg/models"

	_ "github.com/lib/pq"
)

// PostgresDatabase is the production store.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens and pings a PostgreSQL connection, trying a few
// DSN parameter strategies for serverless network quirks.
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn,
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}
	}

	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

// addConnectionParams appends query parameters to a DSN.
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// ==================== Users ====================

func (db *PostgresDatabase) CreateUser(user *models.User) error {
	query := `
        INSERT INTO users (email, name, created_at, updated_at)
        VALUES ($1, $2, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, user.Email, user.Name).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	var u models.User
	err := db.db.QueryRow(`SELECT id, email, COALESCE(name,''), created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	err := db.db.QueryRow(`SELECT id, email, COALESCE(name,''), created_at, updated_at FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// ==================== Workspaces ====================

func (db *PostgresDatabase) CreateWorkspace(ws *models.Workspace) error {
	if ws.Status == "" {
		ws.Status = models.WorkspaceActive
	}
	query := `
        INSERT INTO workspaces (event_id, name, level, parent_workspace_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, ws.EventID, ws.Name, string(ws.Level), ws.ParentWorkspaceID, string(ws.Status)).
		Scan(&ws.ID, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func scanWorkspace(row interface{ Scan(...interface{}) error }) (*models.Workspace, error) {
	var ws models.Workspace
	var level, status string
	if err := row.Scan(&ws.ID, &ws.EventID, &ws.Name, &level, &ws.ParentWorkspaceID, &status, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
		return nil, err
	}
	ws.Level = models.WorkspaceLevel(level)
	ws.Status = models.WorkspaceStatus(status)
	return &ws, nil
}

const workspaceColumns = `id, event_id, name, level, parent_workspace_id, status, created_at, updated_at`

func (db *PostgresDatabase) GetWorkspace(id string) (*models.Workspace, error) {
	ws, err := scanWorkspace(db.db.QueryRow(`SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}

func (db *PostgresDatabase) listWorkspaces(query string, args ...interface{}) ([]models.Workspace, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()
	var out []models.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ws)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) ListEventWorkspaces(eventID string) ([]models.Workspace, error) {
	return db.listWorkspaces(`SELECT `+workspaceColumns+` FROM workspaces WHERE event_id = $1 ORDER BY created_at ASC`, eventID)
}

func (db *PostgresDatabase) ListChildWorkspaces(parentID string) ([]models.Workspace, error) {
	return db.listWorkspaces(`SELECT `+workspaceColumns+` FROM workspaces WHERE parent_workspace_id = $1 ORDER BY created_at ASC`, parentID)
}

func (db *PostgresDatabase) UpdateWorkspaceStatus(id string, status models.WorkspaceStatus) error {
	res, err := db.db.Exec(`UPDATE workspaces SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update workspace status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	return nil
}

// ==================== Memberships ====================

func (db *PostgresDatabase) UpsertMembership(m *models.Membership) error {
	query := `
        INSERT INTO memberships (workspace_id, user_id, role, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        ON CONFLICT (workspace_id, user_id)
        DO UPDATE SET role = EXCLUDED.role, status = EXCLUDED.status, updated_at = NOW()
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, m.WorkspaceID, m.UserID, string(m.Role), string(m.Status)).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (db *PostgresDatabase) GetMembership(workspaceID, userID string) (*models.Membership, error) {
	var m models.Membership
	var role, status string
	err := db.db.QueryRow(`
        SELECT id, workspace_id, user_id, role, status, created_at, updated_at
        FROM memberships WHERE workspace_id = $1 AND user_id = $2
    `, workspaceID, userID).Scan(&m.ID, &m.WorkspaceID, &m.UserID, &role, &status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("membership %s/%s: %w", workspaceID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	m.Role = models.Role(role)
	m.Status = models.MembershipStatus(status)
	return &m, nil
}

func (db *PostgresDatabase) listMemberships(query string, args ...interface{}) ([]models.Membership, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	var out []models.Membership
	for rows.Next() {
		var m models.Membership
		var role, status string
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &role, &status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		m.Status = models.MembershipStatus(status)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) ListWorkspaceMembers(workspaceID string) ([]models.Membership, error) {
	return db.listMemberships(`
        SELECT id, workspace_id, user_id, role, status, created_at, updated_at
        FROM memberships WHERE workspace_id = $1 ORDER BY created_at ASC
    `, workspaceID)
}

func (db *PostgresDatabase) ListUserMemberships(userID string) ([]models.Membership, error) {
	return db.listMemberships(`
        SELECT id, workspace_id, user_id, role, status, created_at, updated_at
        FROM memberships WHERE user_id = $1 ORDER BY created_at ASC
    `, userID)
}

// ==================== Invitations ====================

func (db *PostgresDatabase) CreateInvitation(inv *models.WorkspaceInvitation) error {
	query := `
        INSERT INTO workspace_invitations (workspace_id, email, role, inviter_id, token, status, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, inv.WorkspaceID, inv.Email, string(inv.Role), inv.InviterID, inv.Token, string(inv.Status), inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

func (db *PostgresDatabase) GetInvitationByToken(token string) (*models.WorkspaceInvitation, error) {
	var inv models.WorkspaceInvitation
	var role, status string
	err := db.db.QueryRow(`
        SELECT id, workspace_id, email, role, inviter_id, token, status, expires_at, accepted_by, created_at, updated_at
        FROM workspace_invitations WHERE token = $1
    `, token).Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &role, &inv.InviterID, &inv.Token, &status, &inv.ExpiresAt, &inv.AcceptedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invitation: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	inv.Role = models.Role(role)
	inv.Status = models.InvitationStatus(status)
	return &inv, nil
}

func (db *PostgresDatabase) ListInvitationsByEmail(email string) ([]models.WorkspaceInvitation, error) {
	rows, err := db.db.Query(`
        SELECT id, workspace_id, email, role, inviter_id, token, status, expires_at, accepted_by, created_at, updated_at
        FROM workspace_invitations WHERE email = $1 ORDER BY created_at DESC
    `, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()
	var out []models.WorkspaceInvitation
	for rows.Next() {
		var inv models.WorkspaceInvitation
		var role, status string
		if err := rows.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &role, &inv.InviterID, &inv.Token, &status, &inv.ExpiresAt, &inv.AcceptedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		inv.Role = models.Role(role)
		inv.Status = models.InvitationStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateInvitation(inv *models.WorkspaceInvitation) error {
	_, err := db.db.Exec(`
        UPDATE workspace_invitations SET status=$1, accepted_by=$2, expires_at=$3, updated_at=NOW() WHERE id=$4
    `, string(inv.Status), inv.AcceptedBy, inv.ExpiresAt, inv.ID)
	return err
}

// ==================== Tasks ====================

func (db *PostgresDatabase) CreateTask(task *models.Task) error {
	if task.Status == "" {
		task.Status = models.TaskOpen
	}
	deps, err := json.Marshal(task.Dependencies)
	if err != nil {
		return fmt.Errorf("failed to marshal dependencies: %w", err)
	}
	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	query := `
        INSERT INTO tasks (workspace_id, title, description, category, priority, status, due_date, dependencies, tags, metadata, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, task.WorkspaceID, task.Title, task.Description, string(task.Category),
		task.Priority, string(task.Status), task.DueDate, deps, tags, task.Metadata).
		Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (db *PostgresDatabase) scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	var category, status string
	var deps, tags []byte
	if err := row.Scan(&t.ID, &t.WorkspaceID, &t.Title, &t.Description, &category, &t.Priority, &status,
		&t.DueDate, &deps, &tags, &t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Category = models.TemplateCategory(category)
	t.Status = models.TaskStatus(status)
	if len(deps) > 0 {
		if err := json.Unmarshal(deps, &t.Dependencies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dependencies: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &t.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &t, nil
}

const taskColumns = `id, workspace_id, title, COALESCE(description,''), COALESCE(category,''), COALESCE(priority,''), status, due_date, dependencies, tags, metadata, created_at, updated_at`

func (db *PostgresDatabase) GetTask(id string) (*models.Task, error) {
	t, err := db.scanTask(db.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (db *PostgresDatabase) ListWorkspaceTasks(workspaceID string) ([]models.Task, error) {
	rows, err := db.db.Query(`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = $1 ORDER BY created_at ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		t, err := db.scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateTaskStatus(id string, status models.TaskStatus) error {
	res, err := db.db.Exec(`UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ==================== Delegated items ====================

func (db *PostgresDatabase) CreateDelegatedItem(item *models.DelegatedItem) error {
	if item.Status == "" {
		item.Status = models.DelegationPendingAccept
	}
	query := `
        INSERT INTO delegated_items (source_workspace_id, target_workspace_id, title, description, due_date, status, is_synced, source_task_id, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, item.SourceWorkspaceID, item.TargetWorkspaceID, item.Title, item.Description,
		item.DueDate, string(item.Status), item.IsSynced, item.SourceTaskID, item.CreatedBy).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

const itemColumns = `id, source_workspace_id, target_workspace_id, title, COALESCE(description,''), due_date, status, is_synced, source_task_id, created_by, created_at, updated_at`

func scanDelegatedItem(row interface{ Scan(...interface{}) error }) (*models.DelegatedItem, error) {
	var it models.DelegatedItem
	var status string
	if err := row.Scan(&it.ID, &it.SourceWorkspaceID, &it.TargetWorkspaceID, &it.Title, &it.Description,
		&it.DueDate, &status, &it.IsSynced, &it.SourceTaskID, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Status = models.DelegationStatus(status)
	return &it, nil
}

func (db *PostgresDatabase) GetDelegatedItem(id string) (*models.DelegatedItem, error) {
	it, err := scanDelegatedItem(db.db.QueryRow(`SELECT `+itemColumns+` FROM delegated_items WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("delegated item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get delegated item: %w", err)
	}
	return it, nil
}

func (db *PostgresDatabase) listDelegatedItems(query string, args ...interface{}) ([]models.DelegatedItem, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegated items: %w", err)
	}
	defer rows.Close()
	var out []models.DelegatedItem
	for rows.Next() {
		it, err := scanDelegatedItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) ListDelegatedItemsBySource(workspaceID string) ([]models.DelegatedItem, error) {
	return db.listDelegatedItems(`SELECT `+itemColumns+` FROM delegated_items WHERE source_workspace_id = $1 ORDER BY created_at ASC`, workspaceID)
}

func (db *PostgresDatabase) ListDelegatedItemsByTarget(workspaceID string) ([]models.DelegatedItem, error) {
	return db.listDelegatedItems(`SELECT `+itemColumns+` FROM delegated_items WHERE target_workspace_id = $1 ORDER BY created_at ASC`, workspaceID)
}

// UpdateDelegatedItemStatusIf is the transition guard: the expected status is
// part of the UPDATE predicate, so two racing actors cannot both win.
func (db *PostgresDatabase) UpdateDelegatedItemStatusIf(id string, expected, next models.DelegationStatus) (bool, error) {
	res, err := db.db.Exec(`
        UPDATE delegated_items SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
    `, string(next), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("failed to update delegated item status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *PostgresDatabase) UpdateDelegatedItemDetails(id, title, description string, dueDate time.Time) error {
	res, err := db.db.Exec(`
        UPDATE delegated_items SET title = $1, description = $2, due_date = $3, updated_at = NOW() WHERE id = $4
    `, title, description, dueDate, id)
	if err != nil {
		return fmt.Errorf("failed to update delegated item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delegated item %s: %w", id, ErrNotFound)
	}
	return nil
}

// ==================== Extension requests ====================

// CreateExtensionRequestIfNonePending inserts only when the item has no open
// request; the NOT EXISTS predicate makes the one-open-request rule atomic.
func (db *PostgresDatabase) CreateExtensionRequestIfNonePending(req *models.DeadlineExtensionRequest) (bool, error) {
	query := `
        INSERT INTO extension_requests (delegated_item_id, requested_due_date, justification, status, requested_by, created_at, updated_at)
        SELECT $1, $2, $3, 'PENDING', $4, NOW(), NOW()
        WHERE NOT EXISTS (
            SELECT 1 FROM extension_requests WHERE delegated_item_id = $1 AND status = 'PENDING'
        )
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, req.DelegatedItemID, req.RequestedDueDate, req.Justification, req.RequestedBy).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create extension request: %w", err)
	}
	req.Status = models.ExtensionPending
	return true, nil
}

func (db *PostgresDatabase) GetExtensionRequest(id string) (*models.DeadlineExtensionRequest, error) {
	var req models.DeadlineExtensionRequest
	var status string
	err := db.db.QueryRow(`
        SELECT id, delegated_item_id, requested_due_date, COALESCE(justification,''), status, requested_by, reviewer_id, created_at, updated_at
        FROM extension_requests WHERE id = $1
    `, id).Scan(&req.ID, &req.DelegatedItemID, &req.RequestedDueDate, &req.Justification, &status, &req.RequestedBy, &req.ReviewerID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("extension request %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get extension request: %w", err)
	}
	req.Status = models.ExtensionStatus(status)
	return &req, nil
}

func (db *PostgresDatabase) ListExtensionRequestsByItem(itemID string) ([]models.DeadlineExtensionRequest, error) {
	rows, err := db.db.Query(`
        SELECT id, delegated_item_id, requested_due_date, COALESCE(justification,''), status, requested_by, reviewer_id, created_at, updated_at
        FROM extension_requests WHERE delegated_item_id = $1 ORDER BY created_at ASC
    `, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list extension requests: %w", err)
	}
	defer rows.Close()
	var out []models.DeadlineExtensionRequest
	for rows.Next() {
		var req models.DeadlineExtensionRequest
		var status string
		if err := rows.Scan(&req.ID, &req.DelegatedItemID, &req.RequestedDueDate, &req.Justification, &status, &req.RequestedBy, &req.ReviewerID, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		req.Status = models.ExtensionStatus(status)
		out = append(out, req)
	}
	return out, rows.Err()
}

// DecideExtensionRequestIfPending stamps the decision guarded on PENDING and,
// when approving, moves the item's due date in the same transaction so an
// approved request and an unchanged due date are never visible together.
func (db *PostgresDatabase) DecideExtensionRequestIfPending(id string, status models.ExtensionStatus, reviewerID string) (bool, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return false, err
	}

	var itemID string
	var requestedDueDate time.Time
	err = tx.QueryRow(`
        UPDATE extension_requests SET status = $1, reviewer_id = $2, updated_at = NOW()
        WHERE id = $3 AND status = 'PENDING'
        RETURNING delegated_item_id, requested_due_date
    `, string(status), reviewerID, id).Scan(&itemID, &requestedDueDate)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to decide extension request: %w", err)
	}

	if status == models.ExtensionApproved {
		_, err = tx.Exec(`
            UPDATE delegated_items SET due_date = $1, updated_at = NOW() WHERE id = $2
        `, requestedDueDate, itemID)
		if err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("failed to apply extended due date: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit extension decision: %w", err)
	}
	return true, nil
}

// ==================== Budget ====================

func (db *PostgresDatabase) GetBudgetLedger(workspaceID string) (*models.BudgetLedger, error) {
	var l models.BudgetLedger
	err := db.db.QueryRow(`
        SELECT workspace_id, allocated, used, currency, updated_at FROM budget_ledgers WHERE workspace_id = $1
    `, workspaceID).Scan(&l.WorkspaceID, &l.Allocated, &l.Used, &l.Currency, &l.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ledger %s: %w", workspaceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get budget ledger: %w", err)
	}
	return &l, nil
}

func (db *PostgresDatabase) CreateBudgetRequest(req *models.BudgetRequest) error {
	req.Status = models.BudgetRequestPending
	query := `
        INSERT INTO budget_requests (requesting_workspace_id, target_workspace_id, requested_amount, reason, status, requested_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 'pending', $5, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, req.RequestingWorkspaceID, req.TargetWorkspaceID, req.RequestedAmount, req.Reason, req.RequestedBy).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

const budgetRequestColumns = `id, requesting_workspace_id, target_workspace_id, requested_amount, COALESCE(reason,''), status, requested_by, reviewed_by, reviewed_at, COALESCE(review_notes,''), created_at, updated_at`

func scanBudgetRequest(row interface{ Scan(...interface{}) error }) (*models.BudgetRequest, error) {
	var req models.BudgetRequest
	var status string
	if err := row.Scan(&req.ID, &req.RequestingWorkspaceID, &req.TargetWorkspaceID, &req.RequestedAmount,
		&req.Reason, &status, &req.RequestedBy, &req.ReviewedBy, &req.ReviewedAt, &req.ReviewNotes,
		&req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Status = models.BudgetRequestStatus(status)
	return &req, nil
}

func (db *PostgresDatabase) GetBudgetRequest(id string) (*models.BudgetRequest, error) {
	req, err := scanBudgetRequest(db.db.QueryRow(`SELECT `+budgetRequestColumns+` FROM budget_requests WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("budget request %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get budget request: %w", err)
	}
	return req, nil
}

func (db *PostgresDatabase) ListBudgetRequestsByWorkspace(workspaceID string) ([]models.BudgetRequest, error) {
	rows, err := db.db.Query(`
        SELECT `+budgetRequestColumns+` FROM budget_requests
        WHERE requesting_workspace_id = $1 OR target_workspace_id = $1 ORDER BY created_at ASC
    `, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget requests: %w", err)
	}
	defer rows.Close()
	var out []models.BudgetRequest
	for rows.Next() {
		req, err := scanBudgetRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// ApproveBudgetRequest runs both halves of an approval in one transaction:
// the conditional status flip (the only guard against a double review) and
// the ledger credit. Commit makes them visible together or not at all.
func (db *PostgresDatabase) ApproveBudgetRequest(id, reviewerID, notes string, reviewedAt time.Time) (bool, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return false, err
	}

	var requestingWorkspaceID string
	var amount int64
	err = tx.QueryRow(`
        UPDATE budget_requests
        SET status = 'approved', reviewed_by = $1, reviewed_at = $2, review_notes = $3, updated_at = NOW()
        WHERE id = $4 AND status = 'pending'
        RETURNING requesting_workspace_id, requested_amount
    `, reviewerID, reviewedAt, nullIfEmpty(notes), id).Scan(&requestingWorkspaceID, &amount)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to approve budget request: %w", err)
	}

	_, err = tx.Exec(`
        INSERT INTO budget_ledgers (workspace_id, allocated, used, currency, updated_at)
        VALUES ($1, $2, 0, 'INR', NOW())
        ON CONFLICT (workspace_id)
        DO UPDATE SET allocated = budget_ledgers.allocated + EXCLUDED.allocated, updated_at = NOW()
    `, requestingWorkspaceID, amount)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to credit budget ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit budget approval: %w", err)
	}
	return true, nil
}

func (db *PostgresDatabase) RejectBudgetRequest(id, reviewerID, notes string, reviewedAt time.Time) (bool, error) {
	res, err := db.db.Exec(`
        UPDATE budget_requests
        SET status = 'rejected', reviewed_by = $1, reviewed_at = $2, review_notes = $3, updated_at = NOW()
        WHERE id = $4 AND status = 'pending'
    `, reviewerID, reviewedAt, nullIfEmpty(notes), id)
	if err != nil {
		return false, fmt.Errorf("failed to reject budget request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ==================== Expenses ====================

func (db *PostgresDatabase) CreateExpense(exp *models.Expense) error {
	exp.Status = models.ExpensePending
	query := `
        INSERT INTO expenses (workspace_id, amount, description, status, recorded_by, created_at, updated_at)
        VALUES ($1, $2, $3, 'pending', $4, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, exp.WorkspaceID, exp.Amount, exp.Description, exp.RecordedBy).
		Scan(&exp.ID, &exp.CreatedAt, &exp.UpdatedAt)
}

func (db *PostgresDatabase) GetExpense(id string) (*models.Expense, error) {
	var exp models.Expense
	var status string
	err := db.db.QueryRow(`
        SELECT id, workspace_id, amount, COALESCE(description,''), status, recorded_by, created_at, updated_at
        FROM expenses WHERE id = $1
    `, id).Scan(&exp.ID, &exp.WorkspaceID, &exp.Amount, &exp.Description, &status, &exp.RecordedBy, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	exp.Status = models.ExpenseStatus(status)
	return &exp, nil
}

func (db *PostgresDatabase) ListWorkspaceExpenses(workspaceID string, status models.ExpenseStatus) ([]models.Expense, error) {
	query := `
        SELECT id, workspace_id, amount, COALESCE(description,''), status, recorded_by, created_at, updated_at
        FROM expenses WHERE workspace_id = $1
    `
	args := []interface{}{workspaceID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at ASC`
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()
	var out []models.Expense
	for rows.Next() {
		var exp models.Expense
		var st string
		if err := rows.Scan(&exp.ID, &exp.WorkspaceID, &exp.Amount, &exp.Description, &st, &exp.RecordedBy, &exp.CreatedAt, &exp.UpdatedAt); err != nil {
			return nil, err
		}
		exp.Status = models.ExpenseStatus(st)
		out = append(out, exp)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) ConfirmExpenseIfPending(id string) (bool, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return false, err
	}

	var workspaceID string
	var amount int64
	err = tx.QueryRow(`
        UPDATE expenses SET status = 'confirmed', updated_at = NOW()
        WHERE id = $1 AND status = 'pending'
        RETURNING workspace_id, amount
    `, id).Scan(&workspaceID, &amount)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to confirm expense: %w", err)
	}

	_, err = tx.Exec(`
        INSERT INTO budget_ledgers (workspace_id, allocated, used, currency, updated_at)
        VALUES ($1, 0, $2, 'INR', NOW())
        ON CONFLICT (workspace_id)
        DO UPDATE SET used = budget_ledgers.used + EXCLUDED.used, updated_at = NOW()
    `, workspaceID, amount)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to record expense against ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit expense confirmation: %w", err)
	}
	return true, nil
}

// HealthCheck pings the connection.
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close closes the connection pool.
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
