package handlers

import (
	"errors"
	"net/http"
	"strings"

	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/utils"
)

// AuthHandler serves token issuance and refresh.
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	jwt    *utils.JWTService
}

func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		jwt:    utils.NewJWTService(cfg.JWTSecret),
	}
}

// POST /api/auth/token
// Issues a token pair for an email, creating the user on first sight. The
// identity provider in front of this service owns actual authentication; this
// endpoint trusts its caller and doubles as the development login.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		utils.WriteBadRequestResponse(w, "email required")
		return
	}

	user, err := h.db.GetUserByEmail(email)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			utils.WriteInternalServerErrorResponse(w, "Failed to look up user: "+err.Error())
			return
		}
		user = &models.User{Email: email, Name: strings.TrimSpace(req.Name)}
		if err := h.db.CreateUser(user); err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to create user: "+err.Error())
			return
		}
	}

	accessToken, refreshToken, expiresAt, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_at":    expiresAt,
	})
}

// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		utils.WriteBadRequestResponse(w, "refresh_token required")
		return
	}

	accessToken, expiresAt, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	})
}

// GET /api/health
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if err := h.db.HealthCheck(); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":      status,
		"database":    dbStatus,
		"environment": h.config.Environment,
	})
}
