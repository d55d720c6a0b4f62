package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/hierarchy"
	"thittam1hub-backend/pkg/middleware"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// WorkspacesHandler serves the workspace tree, memberships and invitations.
type WorkspacesHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	authz  *authz.Engine
}

func NewWorkspacesHandler(cfg *config.Config, db database.DatabaseInterface, az *authz.Engine) *WorkspacesHandler {
	return &WorkspacesHandler{config: cfg, db: db, authz: az}
}

// POST /api/workspaces
// Creates a ROOT workspace for an event and makes the creator its
// WORKSPACE_OWNER.
func (h *WorkspacesHandler) CreateRootWorkspace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		EventID string `json:"event_id"`
		Name    string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.EventID) == "" || strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "event_id and name required")
		return
	}

	existing, err := h.db.ListEventWorkspaces(req.EventID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to check event workspaces: "+err.Error())
		return
	}
	for _, ws := range existing {
		if ws.Level == models.LevelRoot {
			utils.WriteConflictResponse(w, "Event already has a ROOT workspace")
			return
		}
	}

	ws := &models.Workspace{
		EventID: req.EventID,
		Name:    req.Name,
		Level:   models.LevelRoot,
		Status:  models.WorkspaceActive,
	}
	if err := h.db.CreateWorkspace(ws); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create workspace: "+err.Error())
		return
	}

	m := &models.Membership{
		WorkspaceID: ws.ID,
		UserID:      user.ID,
		Role:        models.RoleWorkspaceOwner,
		Status:      models.MembershipActive,
	}
	if err := h.db.UpsertMembership(m); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create owner membership: "+err.Error())
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"workspace": ws, "membership": m})
}

// POST /api/workspaces/{id}/children
// Creates a child workspace one level below the parent. The actor needs
// edit_settings in the parent; the child's level is derived from the parent.
func (h *WorkspacesHandler) CreateChildWorkspace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	parentID := chiRoute.URLParam(r, "id")

	var req struct {
		Name      string `json:"name"`
		LeadEmail string `json:"lead_email"`
		LeadRole  string `json:"lead_role"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "name required")
		return
	}

	actingRole, err := h.authz.Authorize(user.ID, parentID, models.CapEditSettings)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	parent, err := h.db.GetWorkspace(parentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	childLevel, ok := parent.Level.ChildLevel()
	if !ok {
		utils.WriteBadRequestResponse(w, fmt.Sprintf("%s workspaces cannot have children", parent.Level))
		return
	}
	if err := hierarchy.ValidateChild(*parent, childLevel); err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}

	ws := &models.Workspace{
		EventID:           parent.EventID,
		Name:              req.Name,
		Level:             childLevel,
		ParentWorkspaceID: &parent.ID,
		Status:            models.WorkspaceActive,
	}
	if err := h.db.CreateWorkspace(ws); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create workspace: "+err.Error())
		return
	}

	// Optional lead invitation, gated on the manage-one-level-down rule
	if email := strings.TrimSpace(req.LeadEmail); email != "" {
		leadRole := models.Role(strings.TrimSpace(req.LeadRole))
		if !h.authz.Matrix().Known(leadRole) {
			utils.WriteBadRequestResponse(w, "unknown lead_role")
			return
		}
		if !h.authz.CanManage(actingRole, leadRole) {
			utils.WriteForbiddenResponse(w, fmt.Sprintf("role %s cannot manage role %s", actingRole, leadRole))
			return
		}
		tok, err := utils.GenerateURLToken(24)
		if err != nil {
			fmt.Printf("[warn] failed to generate invitation token for %s: %v\n", email, err)
		} else {
			inv := &models.WorkspaceInvitation{
				WorkspaceID: ws.ID,
				Email:       email,
				Role:        leadRole,
				InviterID:   user.ID,
				Token:       tok,
				Status:      models.InvitationPending,
				ExpiresAt:   time.Now().Add(14 * 24 * time.Hour),
			}
			if err := h.db.CreateInvitation(inv); err != nil {
				fmt.Printf("[warn] failed to create invitation for %s: %v\n", email, err)
			}
		}
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"workspace": ws})
}

// GET /api/workspaces/{id}
func (h *WorkspacesHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	if _, err := h.authz.MemberRole(user.ID, workspaceID); err != nil {
		writeEngineError(w, err)
		return
	}

	ws, err := h.db.GetWorkspace(workspaceID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	children, err := h.db.ListChildWorkspaces(workspaceID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list children: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"workspace": ws, "children": children})
}

// GET /api/workspaces?event_id=...
// Lists the event's workspace tree. Without event_id, lists the caller's
// workspaces across events.
func (h *WorkspacesHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	eventID := utils.GetQueryParam(r, "event_id", "")
	if eventID != "" {
		workspaces, err := h.db.ListEventWorkspaces(eventID)
		if err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to list workspaces: "+err.Error())
			return
		}
		utils.WriteSuccessResponse(w, map[string]interface{}{"workspaces": workspaces})
		return
	}

	memberships, err := h.db.ListUserMemberships(user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list memberships: "+err.Error())
		return
	}
	var workspaces []models.Workspace
	for _, m := range memberships {
		if m.Status != models.MembershipActive {
			continue
		}
		if ws, err := h.db.GetWorkspace(m.WorkspaceID); err == nil {
			workspaces = append(workspaces, *ws)
		}
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"workspaces": workspaces})
}

// POST /api/workspaces/{id}/archive
// Archives a workspace. Refused while the workspace still has active
// children; archive bottom-up.
func (h *WorkspacesHandler) ArchiveWorkspace(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	if _, err := h.authz.Authorize(user.ID, workspaceID, models.CapEditSettings); err != nil {
		writeEngineError(w, err)
		return
	}

	children, err := h.db.ListChildWorkspaces(workspaceID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list children: "+err.Error())
		return
	}
	for _, c := range children {
		if c.Status == models.WorkspaceActive {
			utils.WriteConflictResponse(w, "Workspace has active child workspaces")
			return
		}
	}

	if err := h.db.UpdateWorkspaceStatus(workspaceID, models.WorkspaceArchived); err != nil {
		writeEngineError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"workspace_id": workspaceID, "status": models.WorkspaceArchived})
}

// GET /api/workspaces/{id}/members
func (h *WorkspacesHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	if _, err := h.authz.MemberRole(user.ID, workspaceID); err != nil {
		writeEngineError(w, err)
		return
	}

	members, err := h.db.ListWorkspaceMembers(workspaceID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list members: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"members": members})
}

// POST /api/workspaces/{id}/invitations
// Invites a user into the workspace with a role. The inviter needs
// invite_team, and the invited role must be one the inviter's role manages
// or a role at the inviter's own level or below within the same workspace.
func (h *WorkspacesHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	invitedRole := models.Role(strings.TrimSpace(req.Role))
	if email == "" || invitedRole == "" {
		utils.WriteBadRequestResponse(w, "email and role required")
		return
	}

	actingRole, err := h.authz.Authorize(user.ID, workspaceID, models.CapInviteTeam)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !h.authz.Matrix().Known(invitedRole) {
		utils.WriteBadRequestResponse(w, "unknown role")
		return
	}

	// A role may invite its own level or the level it manages, never upward
	actingLevel, _ := h.authz.Matrix().LevelOf(actingRole)
	invitedLevel, _ := h.authz.Matrix().LevelOf(invitedRole)
	if invitedLevel.Depth() < actingLevel.Depth() {
		utils.WriteForbiddenResponse(w, fmt.Sprintf("role %s cannot invite role %s", actingRole, invitedRole))
		return
	}

	tok, err := utils.GenerateURLToken(24)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate token: "+err.Error())
		return
	}

	inv := &models.WorkspaceInvitation{
		WorkspaceID: workspaceID,
		Email:       email,
		Role:        invitedRole,
		InviterID:   user.ID,
		Token:       tok,
		Status:      models.InvitationPending,
		ExpiresAt:   time.Now().Add(14 * 24 * time.Hour),
	}
	if err := h.db.CreateInvitation(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create invitation: "+err.Error())
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"invitation": inv})
}

// POST /api/invitations/accept
// Accepts an invitation by token, creating the ACTIVE membership carrying
// the invited role.
func (h *WorkspacesHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		utils.WriteBadRequestResponse(w, "token required")
		return
	}

	inv, err := h.db.GetInvitationByToken(req.Token)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if inv.Status != models.InvitationPending {
		utils.WriteConflictResponse(w, "Invitation is not pending")
		return
	}
	if time.Now().After(inv.ExpiresAt) {
		inv.Status = models.InvitationExpired
		_ = h.db.UpdateInvitation(inv)
		utils.WriteConflictResponse(w, "Invitation has expired")
		return
	}
	if !strings.EqualFold(inv.Email, user.Email) {
		utils.WriteForbiddenResponse(w, "Invitation was issued to a different email")
		return
	}

	m := &models.Membership{
		WorkspaceID: inv.WorkspaceID,
		UserID:      user.ID,
		Role:        inv.Role,
		Status:      models.MembershipActive,
	}
	if err := h.db.UpsertMembership(m); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create membership: "+err.Error())
		return
	}

	inv.Status = models.InvitationAccepted
	inv.AcceptedBy = &user.ID
	if err := h.db.UpdateInvitation(inv); err != nil {
		fmt.Printf("[warn] failed to mark invitation %s accepted: %v\n", inv.ID, err)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"membership": m})
}

// GET /api/invitations
// Lists the caller's pending invitations by email.
func (h *WorkspacesHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	invitations, err := h.db.ListInvitationsByEmail(strings.ToLower(user.Email))
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list invitations: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"invitations": invitations})
}

// GET /api/workspaces/{id}/ancestors
// Returns the parent chain, nearest first. Surfaces CYCLE_DETECTED on
// corrupted trees.
func (h *WorkspacesHandler) ListAncestors(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	if _, err := h.authz.MemberRole(user.ID, workspaceID); err != nil {
		writeEngineError(w, err)
		return
	}

	ws, err := h.db.GetWorkspace(workspaceID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	workspaces, err := h.db.ListEventWorkspaces(ws.EventID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list workspaces: "+err.Error())
		return
	}

	tree := hierarchy.Build(workspaces)
	ancestors, err := tree.AncestorsOf(workspaceID)
	if err != nil {
		fmt.Printf("❌ Hierarchy fault for workspace %s: %v\n", workspaceID, err)
		writeEngineError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"ancestors": ancestors})
}
