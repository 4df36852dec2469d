package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
)

// getCaller extracts the authenticated caller from context.
func getCaller(c *gin.Context) string {
	return c.GetString("caller")
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// respondBadRequest sends a bad request error
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}

// respondDomainError maps a domain error to its HTTP status and envelope.
func respondDomainError(c *gin.Context, err error) {
	status := statusForError(err)
	var details map[string]interface{}
	var domainErr *domainerrors.DomainError
	if errors.As(err, &domainErr) {
		details = domainErr.Details
	}
	respondError(c, status, domainerrors.Code(err), err.Error(), details)
}

func statusForError(err error) int {
	switch {
	case domainerrors.Is(err, domainerrors.ErrUnauthorized):
		return http.StatusForbidden
	case domainerrors.Is(err, domainerrors.ErrNotFound),
		domainerrors.Is(err, domainerrors.ErrUnknownToken),
		domainerrors.Is(err, domainerrors.ErrNotInitialized):
		return http.StatusNotFound
	case domainerrors.Is(err, domainerrors.ErrAlreadyInitialized),
		domainerrors.Is(err, domainerrors.ErrDuplicateEntry),
		domainerrors.Is(err, domainerrors.ErrReplayedMessage),
		domainerrors.Is(err, domainerrors.ErrLiquidityNotEmpty):
		return http.StatusConflict
	case domainerrors.Is(err, domainerrors.ErrChainMismatch),
		domainerrors.Is(err, domainerrors.ErrInvalidProtocolFee),
		domainerrors.Is(err, domainerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case domainerrors.Is(err, domainerrors.ErrUnderflow),
		domainerrors.Is(err, domainerrors.ErrInsufficientLiquidity),
		domainerrors.Is(err, domainerrors.ErrInsufficientTargetBalance),
		domainerrors.Is(err, domainerrors.ErrInsufficientFeeBalance):
		return http.StatusUnprocessableEntity
	case domainerrors.Is(err, domainerrors.ErrOracleUnavailable),
		domainerrors.Is(err, domainerrors.ErrStalePrice):
		return http.StatusServiceUnavailable
	case domainerrors.Is(err, domainerrors.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
