package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	"github.com/solbridge/bridge_service/internal/domain/services/transfer"
	"github.com/solbridge/bridge_service/pkg/logger"
)

// TransferHandler serves the value-moving endpoints.
type TransferHandler struct {
	service *transfer.Service
	log     *logger.Logger
}

// NewTransferHandler creates the transfer handler.
func NewTransferHandler(service *transfer.Service, log *logger.Logger) *TransferHandler {
	return &TransferHandler{service: service, log: log}
}

// AddLiquidity godoc
// @Summary Deposit liquidity into a token vault
// @Tags transfers
// @Accept json
// @Produce json
// @Param request body entities.AddLiquidityRequest true "Deposit"
// @Success 200 {object} entities.RegisteredToken
// @Failure 404 {object} entities.ErrorResponse
// @Router /liquidity [post]
func (h *TransferHandler) AddLiquidity(c *gin.Context) {
	var req entities.AddLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	token, err := h.service.AddLiquidity(c.Request.Context(), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Send godoc
// @Summary Send tokens to a remote chain
// @Description Escrows principal plus fee and emits the event that authorizes
// @Description the release on the remote chain.
// @Tags transfers
// @Accept json
// @Produce json
// @Param request body entities.SendRequest true "Transfer"
// @Success 200 {object} entities.SendResponse
// @Failure 400 {object} entities.ErrorResponse
// @Failure 422 {object} entities.ErrorResponse
// @Router /send [post]
func (h *TransferHandler) Send(c *gin.Context) {
	var req entities.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Send(c.Request.Context(), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MessageReceive godoc
// @Summary Credit an inbound cross-chain message
// @Description Owner-only. Each message is credited at most once.
// @Tags transfers
// @Accept json
// @Produce json
// @Param request body entities.TransferMessage true "Inbound message"
// @Success 200 {object} entities.MessageReceiveResponse
// @Failure 403 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /message-receive [post]
func (h *TransferHandler) MessageReceive(c *gin.Context) {
	var msg entities.TransferMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.MessageReceive(c.Request.Context(), getCaller(c), &msg)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
