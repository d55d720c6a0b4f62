package handlers

import (
	"net/http"
	"strings"

	"thittam1hub-backend/pkg/apperr"
	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/middleware"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// RolesHandler projects the role capability matrix for display.
type RolesHandler struct {
	config *config.Config
	authz  *authz.Engine
}

func NewRolesHandler(cfg *config.Config, az *authz.Engine) *RolesHandler {
	return &RolesHandler{config: cfg, authz: az}
}

// GET /api/roles
// Returns every role with its level, capabilities and the roles it manages.
func (h *RolesHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	matrix := h.authz.Matrix()

	type roleView struct {
		Role         models.Role           `json:"role"`
		Level        models.WorkspaceLevel `json:"level"`
		Capabilities []models.Capability   `json:"capabilities"`
		Manages      []models.Role         `json:"manages"`
	}

	roles := matrix.Roles()
	out := make([]roleView, 0, len(roles))
	for _, role := range roles {
		level, _ := matrix.LevelOf(role)
		var manages []models.Role
		for _, other := range roles {
			if h.authz.CanManage(role, other) {
				manages = append(manages, other)
			}
		}
		out = append(out, roleView{
			Role:         role,
			Level:        level,
			Capabilities: matrix.CapabilitiesOf(role),
			Manages:      manages,
		})
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"roles": out})
}

// GET /api/roles/can-manage?acting=...&target=...
func (h *RolesHandler) CanManage(w http.ResponseWriter, r *http.Request) {
	acting := models.Role(strings.TrimSpace(utils.GetQueryParam(r, "acting", "")))
	target := models.Role(strings.TrimSpace(utils.GetQueryParam(r, "target", "")))
	if acting == "" || target == "" {
		utils.WriteBadRequestResponse(w, "acting and target required")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"acting":     acting,
		"target":     target,
		"can_manage": h.authz.CanManage(acting, target),
	})
}

// GET /api/authorize?workspace_id=...&capability=...
// Decision projection: reports whether the caller holds the capability in the
// workspace. Denials answer 200 with allowed=false and the denial code.
func (h *RolesHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := strings.TrimSpace(utils.GetQueryParam(r, "workspace_id", ""))
	capability := models.Capability(strings.TrimSpace(utils.GetQueryParam(r, "capability", "")))
	if workspaceID == "" || capability == "" {
		utils.WriteBadRequestResponse(w, "workspace_id and capability required")
		return
	}

	role, err := h.authz.Authorize(user.ID, workspaceID, capability)
	if err != nil {
		if kind, ok := apperr.KindOf(err); ok {
			utils.WriteSuccessResponse(w, map[string]interface{}{
				"workspace_id": workspaceID,
				"capability":   capability,
				"allowed":      false,
				"reason":       string(kind),
			})
			return
		}
		writeEngineError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"workspace_id": workspaceID,
		"capability":   capability,
		"allowed":      true,
		"role":         role,
	})
}

// GET /api/workspaces/{id}/my-role
// Resolves the caller's role and capabilities in one workspace.
func (h *RolesHandler) MyRole(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	role, err := h.authz.MemberRole(user.ID, workspaceID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"workspace_id": workspaceID,
		"role":         role,
		"capabilities": h.authz.Matrix().CapabilitiesOf(role),
	})
}
