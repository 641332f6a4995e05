package handlers

import (
	"net/http"

	"ctem-enterprise/internal/models"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs returns the latest 200 journal rows. Role checks are done by
// the router.
func (h *Handler) ListAuditLogs(c *gin.Context) {
	var logs []models.AuditLog
	err := h.db.
		Preload("User").
		Order("created_at desc").
		Limit(200).
		Find(&logs).Error
	if err != nil {
		internalError(c, "failed to fetch audit logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
