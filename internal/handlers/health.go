package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// connectionReporter is implemented by *eventbus.NATSPublisher.
type connectionReporter interface {
	IsConnected() bool
}

func (h *Handler) busState() string {
	r, ok := h.bus.(connectionReporter)
	if !ok {
		return "disabled"
	}
	if r.IsConnected() {
		return "connected"
	}
	return "disconnected"
}

// Health answers 503 only when the database is unreachable. A lost event bus
// is reported but does not fail the check.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "database": "ok", "eventBus": h.busState()}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		body["status"] = "degraded"
		body["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
