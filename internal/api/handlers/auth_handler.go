package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solbridge/bridge_service/internal/infrastructure/config"
	"github.com/solbridge/bridge_service/pkg/auth"
	"github.com/solbridge/bridge_service/pkg/crypto"
	"github.com/solbridge/bridge_service/pkg/logger"
)

// AuthHandler exchanges the admin key for an owner-scoped JWT.
type AuthHandler struct {
	cfg *config.Config
	log *logger.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(cfg *config.Config, log *logger.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

type tokenRequest struct {
	AdminKey string `json:"admin_key" binding:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Token godoc
// @Summary Issue an owner token
// @Description Exchanges the admin key for a short-lived owner JWT.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body tokenRequest true "Admin key"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} entities.ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if h.cfg.Security.AdminKeyHash == "" || !crypto.CompareKey(h.cfg.Security.AdminKeyHash, req.AdminKey) {
		h.log.Warn("Rejected admin token request", "client_ip", c.ClientIP())
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid admin key", nil)
		return
	}

	token, expiresAt, err := auth.GenerateToken(
		h.cfg.Bridge.Owner,
		auth.RoleOwner,
		h.cfg.JWT.Issuer,
		h.cfg.JWT.Secret,
		h.cfg.JWT.AccessTTL,
	)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", err.Error(), nil)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, ExpiresAt: expiresAt})
}
