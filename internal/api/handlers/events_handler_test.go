package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbridge/bridge_service/internal/domain/entities"
	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
	"github.com/solbridge/bridge_service/internal/domain/repositories/storetest"
	"github.com/solbridge/bridge_service/internal/domain/services/events"
	"github.com/solbridge/bridge_service/pkg/logger"
)

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, event *entities.BridgeEvent) error { return nil }
func (noopPublisher) Close() error                                                   { return nil }

func newEventsRouter(t *testing.T) (*gin.Engine, *events.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storetest.NewMemoryStore()
	svc := events.NewService(store, noopPublisher{}, logger.New("error", "test"))
	handler := NewEventsHandler(svc, 100, logger.New("error", "test"))

	router := gin.New()
	router.GET("/events", handler.List)
	return router, svc
}

func TestListEventsReturnsAfterCursor(t *testing.T) {
	router, svc := newEventsRouter(t)

	for i := 0; i < 4; i++ {
		_, err := svc.Append(context.Background(), entities.EventSendToken, "token-a", entities.SendTokenEvent{Amount: uint64(i)})
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events?after=2", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var page []entities.BridgeEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].Seq)
	assert.Equal(t, int64(4), page[1].Seq)
}

func TestListEventsEmptyLog(t *testing.T) {
	router, _ := newEventsRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusForErrorMapping(t *testing.T) {
	cases := map[error]int{
		domainerrors.ErrUnauthorized:                http.StatusForbidden,
		domainerrors.ErrUnknownToken:                http.StatusNotFound,
		domainerrors.ErrNotInitialized:              http.StatusNotFound,
		domainerrors.ErrAlreadyInitialized:          http.StatusConflict,
		domainerrors.ErrReplayedMessage:             http.StatusConflict,
		domainerrors.ErrLiquidityNotEmpty:           http.StatusConflict,
		domainerrors.ErrChainMismatch:               http.StatusBadRequest,
		domainerrors.ErrInvalidProtocolFee:          http.StatusBadRequest,
		domainerrors.ErrInsufficientLiquidity:       http.StatusUnprocessableEntity,
		domainerrors.ErrInsufficientTargetBalance:   http.StatusUnprocessableEntity,
		domainerrors.ErrOracleUnavailable:           http.StatusServiceUnavailable,
		domainerrors.ErrTransferFailed:              http.StatusBadGateway,
		assert.AnError:                              http.StatusInternalServerError,
	}

	for err, want := range cases {
		assert.Equal(t, want, statusForError(err), err.Error())
	}

	// Wrapped sentinels keep their mapping.
	wrapped := domainerrors.ReplayedMessageError("abc")
	assert.Equal(t, http.StatusConflict, statusForError(wrapped))
}
