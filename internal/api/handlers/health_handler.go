package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/solbridge/bridge_service/internal/infrastructure/database"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db        *sqlx.DB
	startedAt time.Time
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(db *sqlx.DB) *HealthHandler {
	return &HealthHandler{db: db, startedAt: time.Now()}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// Ready reports readiness including database connectivity.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := database.HealthCheck(h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
