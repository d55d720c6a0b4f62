package handlers

import (
	"net/http"
	"strings"
	"time"

	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/middleware"
	"thittam1hub-backend/pkg/template"
	"thittam1hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// TemplatesHandler serves the template catalog and applies sets.
type TemplatesHandler struct {
	config *config.Config
	engine *template.Engine
}

func NewTemplatesHandler(cfg *config.Config, engine *template.Engine) *TemplatesHandler {
	return &TemplatesHandler{config: cfg, engine: engine}
}

// GET /api/templates/sets
func (h *TemplatesHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{"sets": h.engine.AvailableSets()})
}

// POST /api/workspaces/{id}/templates/apply
func (h *TemplatesHandler) ApplySet(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		TemplateSetID     string    `json:"template_set_id"`
		StartDate         time.Time `json:"start_date"`
		EventDurationDays int       `json:"event_duration_days"`
		SkipTemplateIDs   []string  `json:"skip_template_ids"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.TemplateSetID) == "" {
		utils.WriteBadRequestResponse(w, "template_set_id required")
		return
	}

	count, err := h.engine.ApplySet(user.ID, chiRoute.URLParam(r, "id"), req.TemplateSetID, template.ApplyOptions{
		StartDate:         req.StartDate,
		EventDurationDays: req.EventDurationDays,
		SkipTemplateIDs:   req.SkipTemplateIDs,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"created_count": count})
}
