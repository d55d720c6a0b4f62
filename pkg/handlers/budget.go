package handlers

import (
	"net/http"
	"strings"

	"thittam1hub-backend/pkg/budget"
	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/middleware"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// BudgetHandler serves budget requests, expenses and the forecast.
type BudgetHandler struct {
	config *config.Config
	engine *budget.Engine
}

func NewBudgetHandler(cfg *config.Config, engine *budget.Engine) *BudgetHandler {
	return &BudgetHandler{config: cfg, engine: engine}
}

// POST /api/budget/requests
func (h *BudgetHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		RequestingWorkspaceID string `json:"requesting_workspace_id"`
		TargetWorkspaceID     string `json:"target_workspace_id"`
		Amount                int64  `json:"amount"`
		Reason                string `json:"reason"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.RequestingWorkspaceID) == "" || strings.TrimSpace(req.TargetWorkspaceID) == "" {
		utils.WriteBadRequestResponse(w, "requesting_workspace_id and target_workspace_id required")
		return
	}

	created, err := h.engine.SubmitRequest(user.ID, req.RequestingWorkspaceID, req.TargetWorkspaceID, req.Amount, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"request": created})
}

// POST /api/budget/requests/{id}/review
// Body: {"approve": true|false, "notes": "..."}
func (h *BudgetHandler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	reviewed, err := h.engine.Review(user.ID, chiRoute.URLParam(r, "id"), req.Approve, req.Notes)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"request": reviewed})
}

// GET /api/workspaces/{id}/budget/requests
func (h *BudgetHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	requests, err := h.engine.ListRequests(user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"requests": requests})
}

// POST /api/workspaces/{id}/expenses
func (h *BudgetHandler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	exp, err := h.engine.RecordExpense(user.ID, chiRoute.URLParam(r, "id"), req.Amount, req.Description)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"expense": exp})
}

// POST /api/expenses/{id}/confirm
func (h *BudgetHandler) ConfirmExpense(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	exp, err := h.engine.ConfirmExpense(user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"expense": exp})
}

// GET /api/workspaces/{id}/expenses?status=pending|confirmed
func (h *BudgetHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	status := models.ExpenseStatus(utils.GetQueryParam(r, "status", ""))
	expenses, err := h.engine.ListExpenses(user.ID, chiRoute.URLParam(r, "id"), status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"expenses": expenses})
}

// GET /api/workspaces/{id}/budget/forecast
func (h *BudgetHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	forecast, err := h.engine.Forecast(user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"forecast": forecast})
}
