package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solbridge/bridge_service/internal/domain/services/events"
	"github.com/solbridge/bridge_service/pkg/logger"
)

// EventsHandler serves the event log polling endpoint relayers consume.
type EventsHandler struct {
	service  *events.Service
	pageSize int
	log      *logger.Logger
}

// NewEventsHandler creates the events handler.
func NewEventsHandler(service *events.Service, pageSize int, log *logger.Logger) *EventsHandler {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &EventsHandler{service: service, pageSize: pageSize, log: log}
}

// List godoc
// @Summary List bridge events
// @Description Returns events ordered by sequence number, after the given cursor.
// @Tags events
// @Produce json
// @Param after query int false "Return events with seq greater than this" default(0)
// @Param limit query int false "Page size"
// @Success 200 {array} entities.BridgeEvent
// @Router /events [get]
func (h *EventsHandler) List(c *gin.Context) {
	after := int64(parseUintQuery(c, "after", 0))
	limit := int(parseUintQuery(c, "limit", uint64(h.pageSize)))

	eventList, err := h.service.List(c.Request.Context(), after, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, eventList)
}
