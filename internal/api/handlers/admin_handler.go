package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	"github.com/solbridge/bridge_service/internal/domain/services/bridge"
	"github.com/solbridge/bridge_service/pkg/logger"
)

// AdminHandler serves the owner-gated configuration and registry endpoints.
type AdminHandler struct {
	service *bridge.Service
	log     *logger.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(service *bridge.Service, log *logger.Logger) *AdminHandler {
	return &AdminHandler{service: service, log: log}
}

// Initialize godoc
// @Summary Initialize the bridge
// @Description Creates the bridge configuration singleton. Fails once created.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body entities.InitializeRequest true "Initial configuration"
// @Success 201 {object} entities.BridgeConfig
// @Failure 400 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/initialize [post]
func (h *AdminHandler) Initialize(c *gin.Context) {
	var req entities.InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	cfg, err := h.service.Initialize(c.Request.Context(), getCaller(c), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// GetConfig godoc
// @Summary Get bridge configuration
// @Tags admin
// @Produce json
// @Success 200 {object} entities.BridgeConfig
// @Failure 404 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/config [get]
func (h *AdminHandler) GetConfig(c *gin.Context) {
	cfg, err := h.service.GetConfig(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SetProtocolFee godoc
// @Summary Update the protocol fee
// @Tags admin
// @Accept json
// @Produce json
// @Param request body entities.SetProtocolFeeRequest true "New fee"
// @Success 200 {object} entities.BridgeConfig
// @Failure 400 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/protocol-fee [put]
func (h *AdminHandler) SetProtocolFee(c *gin.Context) {
	var req entities.SetProtocolFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.service.SetProtocolFee(c.Request.Context(), getCaller(c), req.ProtocolFee); err != nil {
		respondDomainError(c, err)
		return
	}

	cfg, err := h.service.GetConfig(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// AddToken godoc
// @Summary Register a token pairing
// @Tags admin
// @Accept json
// @Produce json
// @Param request body entities.AddTokenRequest true "Token pairing"
// @Success 201 {object} entities.RegisteredToken
// @Failure 400 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/tokens [post]
func (h *AdminHandler) AddToken(c *gin.Context) {
	var req entities.AddTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	token, err := h.service.AddToken(c.Request.Context(), getCaller(c), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

// RemoveToken godoc
// @Summary Remove a token pairing
// @Description Removes a registry entry. Entries with locked liquidity are refused.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body entities.RemoveTokenRequest true "Token pairing"
// @Success 204
// @Failure 404 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/tokens [delete]
func (h *AdminHandler) RemoveToken(c *gin.Context) {
	var req entities.RemoveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.service.RemoveToken(c.Request.Context(), getCaller(c), &req); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateTokenBalance godoc
// @Summary Adjust the remote-chain balance counter
// @Tags admin
// @Accept json
// @Produce json
// @Param token_id path string true "Token ID"
// @Param request body entities.UpdateTokenBalanceRequest true "Adjustment"
// @Success 200 {object} entities.RegisteredToken
// @Failure 404 {object} entities.ErrorResponse
// @Failure 422 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/tokens/{token_id}/balance [put]
func (h *AdminHandler) UpdateTokenBalance(c *gin.Context) {
	var req entities.UpdateTokenBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	token, err := h.service.UpdateTokenBalance(
		c.Request.Context(), getCaller(c), c.Param("token_id"), req.Amount, req.Increase)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// WithdrawToken godoc
// @Summary Withdraw locked token liquidity
// @Tags admin
// @Accept json
// @Produce json
// @Param request body entities.WithdrawTokenRequest true "Withdrawal"
// @Success 204
// @Failure 422 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/withdraw-token [post]
func (h *AdminHandler) WithdrawToken(c *gin.Context) {
	var req entities.WithdrawTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.service.WithdrawToken(c.Request.Context(), getCaller(c), &req); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Withdraw godoc
// @Summary Withdraw accumulated fees
// @Tags admin
// @Accept json
// @Produce json
// @Param request body entities.WithdrawRequest true "Withdrawal"
// @Success 204
// @Failure 422 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /admin/withdraw [post]
func (h *AdminHandler) Withdraw(c *gin.Context) {
	var req entities.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.service.Withdraw(c.Request.Context(), getCaller(c), &req); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetToken godoc
// @Summary Get one registry entry
// @Tags tokens
// @Produce json
// @Param token_id path string true "Token ID"
// @Success 200 {object} entities.RegisteredToken
// @Failure 404 {object} entities.ErrorResponse
// @Router /tokens/{token_id} [get]
func (h *AdminHandler) GetToken(c *gin.Context) {
	token, err := h.service.GetToken(c.Request.Context(), c.Param("token_id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// ListTokens godoc
// @Summary List registry entries
// @Tags tokens
// @Produce json
// @Success 200 {array} entities.RegisteredToken
// @Router /tokens [get]
func (h *AdminHandler) ListTokens(c *gin.Context) {
	tokens, err := h.service.ListTokens(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func parseUintQuery(c *gin.Context, name string, def uint64) uint64 {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
