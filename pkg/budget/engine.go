// Package budget implements the budget request workflow, expense recording,
// and the advisory spend forecast.
package budget

import (
	"errors"
	"time"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/hierarchy"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/notify"
)

// Engine coordinates budget requests, reviews and the ledger view.
type Engine struct {
	db       database.DatabaseInterface
	authz    *authz.Engine
	notifier notify.Notifier
}

func NewEngine(db database.DatabaseInterface, az *authz.Engine, notifier notify.Notifier) *Engine {
	return &Engine{db: db, authz: az, notifier: notifier}
}

// SubmitRequest opens a budget request from a workspace to one of its
// ancestors. The amount must be positive and the target must sit on the
// requesting workspace's ancestor chain.
func (e *Engine) SubmitRequest(userID, requestingWorkspaceID, targetWorkspaceID string, amount int64, reason string) (*models.BudgetRequest, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount,
			"requested amount must be positive, got %d", amount)
	}

	if _, err := e.authz.MemberRole(userID, requestingWorkspaceID); err != nil {
		return nil, err
	}

	requesting, err := e.db.GetWorkspace(requestingWorkspaceID)
	if err != nil {
		return nil, err
	}

	workspaces, err := e.db.ListEventWorkspaces(requesting.EventID)
	if err != nil {
		return nil, err
	}
	tree := hierarchy.Build(workspaces)

	ancestors, err := tree.AncestorsOf(requestingWorkspaceID)
	if err != nil {
		return nil, err
	}
	onChain := false
	for _, id := range ancestors {
		if id == targetWorkspaceID {
			onChain = true
			break
		}
	}
	if !onChain {
		return nil, apperr.New(apperr.KindNotADescendant,
			"workspace %s is not an ancestor of %s", targetWorkspaceID, requestingWorkspaceID)
	}

	req := &models.BudgetRequest{
		RequestingWorkspaceID: requestingWorkspaceID,
		TargetWorkspaceID:     targetWorkspaceID,
		RequestedAmount:       amount,
		Reason:                reason,
		Status:                models.BudgetRequestPending,
		RequestedBy:           userID,
	}
	if err := e.db.CreateBudgetRequest(req); err != nil {
		return nil, err
	}

	e.notifier.BudgetRequested(req)
	return req, nil
}

// Review approves or rejects a pending request. The reviewer needs
// approve_budget in the target workspace. Approval credits the requesting
// workspace's ledger in the same transaction that stamps the decision; a
// request someone else already decided fails with ALREADY_REVIEWED.
func (e *Engine) Review(userID, requestID string, approve bool, notes string) (*models.BudgetRequest, error) {
	req, err := e.db.GetBudgetRequest(requestID)
	if err != nil {
		return nil, err
	}

	if _, err := e.authz.Authorize(userID, req.TargetWorkspaceID, models.CapApproveBudget); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var won bool
	if approve {
		won, err = e.db.ApproveBudgetRequest(requestID, userID, notes, now)
	} else {
		won, err = e.db.RejectBudgetRequest(requestID, userID, notes, now)
	}
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperr.New(apperr.KindAlreadyReviewed,
			"budget request %s has already been reviewed", requestID)
	}

	if approve {
		req.Status = models.BudgetRequestApproved
	} else {
		req.Status = models.BudgetRequestRejected
	}
	req.ReviewedBy = &userID
	req.ReviewedAt = &now
	req.ReviewNotes = notes

	e.notifier.BudgetReviewed(req)
	return req, nil
}

// ListRequests returns requests where the workspace is either side. The
// caller must be a member.
func (e *Engine) ListRequests(userID, workspaceID string) ([]models.BudgetRequest, error) {
	if _, err := e.authz.MemberRole(userID, workspaceID); err != nil {
		return nil, err
	}
	return e.db.ListBudgetRequestsByWorkspace(workspaceID)
}

// RecordExpense records a pending expense against the workspace budget. Any
// member can record; pending expenses only affect the projection until a
// reviewer confirms them.
func (e *Engine) RecordExpense(userID, workspaceID string, amount int64, description string) (*models.Expense, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount,
			"expense amount must be positive, got %d", amount)
	}

	if _, err := e.authz.MemberRole(userID, workspaceID); err != nil {
		return nil, err
	}

	exp := &models.Expense{
		WorkspaceID: workspaceID,
		Amount:      amount,
		Description: description,
		Status:      models.ExpensePending,
		RecordedBy:  userID,
	}
	if err := e.db.CreateExpense(exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// ConfirmExpense moves a pending expense into the ledger's used column. The
// confirmer needs approve_budget in the expense's workspace. An expense
// already confirmed fails with ALREADY_REVIEWED.
func (e *Engine) ConfirmExpense(userID, expenseID string) (*models.Expense, error) {
	exp, err := e.db.GetExpense(expenseID)
	if err != nil {
		return nil, err
	}

	if _, err := e.authz.Authorize(userID, exp.WorkspaceID, models.CapApproveBudget); err != nil {
		return nil, err
	}

	ok, err := e.db.ConfirmExpenseIfPending(expenseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindAlreadyReviewed,
			"expense %s has already been confirmed", expenseID)
	}

	exp.Status = models.ExpenseConfirmed
	return exp, nil
}

// ListExpenses returns a workspace's expenses, optionally filtered by status.
func (e *Engine) ListExpenses(userID, workspaceID string, status models.ExpenseStatus) ([]models.Expense, error) {
	if _, err := e.authz.MemberRole(userID, workspaceID); err != nil {
		return nil, err
	}
	return e.db.ListWorkspaceExpenses(workspaceID, status)
}

// Forecast computes the advisory spend view for a workspace: current
// utilization from the ledger plus a projection that adds pending expenses.
// A workspace without a ledger reads as all zeros, not an error. Bands never
// block anything; they are display state.
func (e *Engine) Forecast(userID, workspaceID string) (*models.BudgetForecast, error) {
	if _, err := e.authz.MemberRole(userID, workspaceID); err != nil {
		return nil, err
	}

	ledger, err := e.db.GetBudgetLedger(workspaceID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		ledger = &models.BudgetLedger{WorkspaceID: workspaceID, Currency: "INR"}
	}

	pending, err := e.db.ListWorkspaceExpenses(workspaceID, models.ExpensePending)
	if err != nil {
		return nil, err
	}
	var pendingAmount int64
	for _, exp := range pending {
		pendingAmount += exp.Amount
	}

	projected := ledger.Used + pendingAmount

	f := &models.BudgetForecast{
		WorkspaceID:          workspaceID,
		Currency:             ledger.Currency,
		Allocated:            ledger.Allocated,
		Used:                 ledger.Used,
		PendingAmount:        pendingAmount,
		ProjectedSpend:       projected,
		Utilization:          utilization(ledger.Used, ledger.Allocated),
		ProjectedUtilization: utilization(projected, ledger.Allocated),
	}
	f.Health = healthBand(ledger.Used, ledger.Allocated)
	f.ProjectedHealth = healthBand(projected, ledger.Allocated)
	return f, nil
}

func utilization(spend, allocated int64) float64 {
	if allocated <= 0 {
		return 0
	}
	return float64(spend) / float64(allocated) * 100
}

// healthBand maps utilization to the advisory band: under 60% healthy, 60-79%
// moderate, 80-99% high, 100% and over over-budget. Spend against a zero
// allocation is over-budget outright.
func healthBand(spend, allocated int64) models.BudgetHealth {
	if allocated <= 0 {
		if spend > 0 {
			return models.HealthOverBudget
		}
		return models.HealthHealthy
	}
	pct := float64(spend) / float64(allocated) * 100
	switch {
	case pct < 60:
		return models.HealthHealthy
	case pct < 80:
		return models.HealthModerate
	case pct < 100:
		return models.HealthHigh
	default:
		return models.HealthOverBudget
	}
}
