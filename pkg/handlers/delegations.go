package handlers

import (
	"net/http"
	"strings"
	"time"

	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/delegation"
	"thittam1hub-backend/pkg/middleware"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// DelegationsHandler serves the delegated item lifecycle.
type DelegationsHandler struct {
	config *config.Config
	engine *delegation.Engine
}

func NewDelegationsHandler(cfg *config.Config, engine *delegation.Engine) *DelegationsHandler {
	return &DelegationsHandler{config: cfg, engine: engine}
}

// POST /api/delegations
func (h *DelegationsHandler) Delegate(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		SourceWorkspaceID string    `json:"source_workspace_id"`
		TargetWorkspaceID string    `json:"target_workspace_id"`
		Title             string    `json:"title"`
		Description       string    `json:"description"`
		DueDate           time.Time `json:"due_date"`
		SyncToSource      bool      `json:"sync_to_source"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.SourceWorkspaceID) == "" || strings.TrimSpace(req.TargetWorkspaceID) == "" {
		utils.WriteBadRequestResponse(w, "source_workspace_id and target_workspace_id required")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.WriteBadRequestResponse(w, "title required")
		return
	}

	item, err := h.engine.Delegate(user.ID, delegation.DelegateInput{
		SourceWorkspaceID: req.SourceWorkspaceID,
		TargetWorkspaceID: req.TargetWorkspaceID,
		Title:             req.Title,
		Description:       req.Description,
		DueDate:           req.DueDate,
		SyncToSource:      req.SyncToSource,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"item": item})
}

// GET /api/delegations/{id}
func (h *DelegationsHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	item, err := h.engine.Get(user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"item": item})
}

// GET /api/workspaces/{id}/delegations?direction=in|out
// Without a direction both sides are returned; "out" keeps items delegated by
// this workspace, "in" keeps items delegated to it.
func (h *DelegationsHandler) ListForWorkspace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	items, err := h.engine.ListForWorkspace(user.ID, workspaceID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	switch utils.GetQueryParam(r, "direction", "") {
	case "out":
		filtered := make([]models.DelegatedItem, 0, len(items))
		for _, item := range items {
			if item.SourceWorkspaceID == workspaceID {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	case "in":
		filtered := make([]models.DelegatedItem, 0, len(items))
		for _, item := range items {
			if item.TargetWorkspaceID == workspaceID {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"items": items})
}

// POST /api/delegations/{id}/decide
// Body: {"accept": true|false}
func (h *DelegationsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Accept bool `json:"accept"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	item, err := h.engine.Decide(user.ID, chiRoute.URLParam(r, "id"), req.Accept)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"item": item})
}

// POST /api/delegations/{id}/advance
// Body: {"status": "IN_PROGRESS"|"COMPLETED"}
func (h *DelegationsHandler) Advance(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		utils.WriteBadRequestResponse(w, "status required")
		return
	}

	item, err := h.engine.Advance(user.ID, chiRoute.URLParam(r, "id"), models.DelegationStatus(req.Status))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"item": item})
}

// PUT /api/delegations/{id}
// Source-side edit of title, description and due date.
func (h *DelegationsHandler) UpdateFromSource(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		DueDate     time.Time `json:"due_date"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.WriteBadRequestResponse(w, "title required")
		return
	}

	item, err := h.engine.UpdateFromSource(user.ID, chiRoute.URLParam(r, "id"), req.Title, req.Description, req.DueDate)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"item": item})
}

// POST /api/delegations/{id}/extensions
func (h *DelegationsHandler) RequestExtension(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		RequestedDueDate time.Time `json:"requested_due_date"`
		Justification    string    `json:"justification"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if req.RequestedDueDate.IsZero() {
		utils.WriteBadRequestResponse(w, "requested_due_date required")
		return
	}

	ext, err := h.engine.RequestExtension(user.ID, chiRoute.URLParam(r, "id"), req.RequestedDueDate, req.Justification)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"extension_request": ext})
}

// GET /api/delegations/{id}/extensions
func (h *DelegationsHandler) ListExtensions(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	requests, err := h.engine.ListExtensions(user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"extension_requests": requests})
}

// POST /api/extensions/{id}/review
// Body: {"approve": true|false}
func (h *DelegationsHandler) ReviewExtension(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	ext, err := h.engine.ReviewExtension(user.ID, chiRoute.URLParam(r, "id"), req.Approve)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"extension_request": ext})
}
