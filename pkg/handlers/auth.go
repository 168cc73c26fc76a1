package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"workspace-client/pkg/config"
	"workspace-client/pkg/database"
	"workspace-client/pkg/models"
	"workspace-client/pkg/utils"
	"workspace-client/pkg/version"
)

// AuthHandler issues dev gateway tokens
type AuthHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	jwtService *utils.JWTService
	log        *zap.SugaredLogger
}

func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, jwtService *utils.JWTService, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{config: cfg, db: db, jwtService: jwtService, log: log}
}

// DevLogin POST /api/dev/login
// Creates the user on first use and returns an identity carrying an access token.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if h.config.IsProduction() {
		utils.WriteForbiddenResponse(w, "Dev login is disabled in production")
		return
	}

	var req models.LoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		utils.WriteBadRequestResponse(w, "Username is required")
		return
	}
	if req.Email != "" && models.EmailDomain(req.Email) == "" {
		utils.WriteBadRequestResponse(w, "Invalid email")
		return
	}

	user, err := h.db.UpsertUser(req.Username, req.Email)
	if err != nil {
		h.log.Errorw("upsert user failed", "username", req.Username, "error", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to sign in")
		return
	}

	token, expiresAt, err := h.jwtService.GenerateAccessToken(user)
	if err != nil {
		h.log.Errorw("token generation failed", "user_id", user.ID, "error", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to generate token")
		return
	}

	h.log.Infow("dev login", "user_id", user.ID, "username", user.Username)
	utils.WriteSuccessResponse(w, models.LoginResponse{
		Identity: models.Identity{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Token:    token,
		},
		ExpiresAt: expiresAt,
	})
}

// HealthCheck 健康检查
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	if err := h.db.HealthCheck(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "workspace-dev-gateway",
		"version":     version.Version,
		"environment": h.config.Environment,
		"database":    h.getDatabaseType(),
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}

// getDatabaseType 获取数据库类型
func (h *AuthHandler) getDatabaseType() string {
	if _, ok := h.db.(*database.PostgresDatabase); ok {
		return "postgresql"
	}
	return "memory"
}
