package handlers

import (
	"net/http"
	"strings"
	"time"

	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/middleware"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// TasksHandler serves workspace tasks, both hand-created and template
// materialized.
type TasksHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	authz  *authz.Engine
}

func NewTasksHandler(cfg *config.Config, db database.DatabaseInterface, az *authz.Engine) *TasksHandler {
	return &TasksHandler{config: cfg, db: db, authz: az}
}

// POST /api/workspaces/{id}/tasks
func (h *TasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	workspaceID := chiRoute.URLParam(r, "id")

	var req struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Priority    string    `json:"priority"`
		DueDate     time.Time `json:"due_date"`
		Tags        []string  `json:"tags"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.WriteBadRequestResponse(w, "title required")
		return
	}

	if _, err := h.authz.Authorize(user.ID, workspaceID, models.CapCreateTasks); err != nil {
		writeEngineError(w, err)
		return
	}

	task := &models.Task{
		WorkspaceID: workspaceID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      models.TaskOpen,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	}
	if err := h.db.CreateTask(task); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create task: "+err.Error())
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"task": task})
}

// GET /api/workspaces/{id}/tasks
func (h *TasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.db.ListWorkspaceTasks(workspaceID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list tasks: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"tasks": tasks})
}

// POST /api/tasks/{id}/status
// Body: {"status": "open"|"in_progress"|"completed"}
func (h *TasksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	taskID := chiRoute.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	status := models.TaskStatus(strings.TrimSpace(req.Status))
	switch status {
	case models.TaskOpen, models.TaskInProgress, models.TaskCompleted:
	default:
		utils.WriteBadRequestResponse(w, "invalid status")
		return
	}

	task, err := h.db.GetTask(taskID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if _, err := h.authz.Authorize(user.ID, task.WorkspaceID, models.CapEditTasks); err != nil {
		writeEngineError(w, err)
		return
	}

	if err := h.db.UpdateTaskStatus(taskID, status); err != nil {
		writeEngineError(w, err)
		return
	}

	task.Status = status
	utils.WriteSuccessResponse(w, map[string]interface{}{"task": task})
}
