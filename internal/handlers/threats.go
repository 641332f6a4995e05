package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ctem-enterprise/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListThreats serves the scoring service's threats when one is configured,
// the local catalog otherwise.
func (h *Handler) ListThreats(c *gin.Context) {
	if h.scoring.Configured() {
		threats, err := h.scoring.Threats(c.Request.Context())
		if err != nil {
			upstreamError(c, "failed to fetch threats", err)
			return
		}
		c.JSON(http.StatusOK, threats)
		return
	}

	threats, err := h.catalogThreats(c.Request.Context())
	if err != nil {
		internalError(c, "failed to fetch threats", err)
		return
	}
	c.JSON(http.StatusOK, threats)
}

func (h *Handler) catalogThreats(ctx context.Context) ([]models.Threat, error) {
	var threats []models.Threat
	err := h.db.WithContext(ctx).Order("timestamp desc").Order("id asc").Find(&threats).Error
	return threats, err
}

// ThreatsSnapshot feeds the realtime threats stream.
func (h *Handler) ThreatsSnapshot(ctx context.Context) (interface{}, error) {
	if h.scoring.Configured() {
		return h.scoring.Threats(ctx)
	}
	return h.catalogThreats(ctx)
}

type threatLookup struct {
	ID string `json:"id" binding:"required"`
}

// GetThreat answers POST /api/threats with a body {"id": "..."}.
func (h *Handler) GetThreat(c *gin.Context) {
	var req threatLookup
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "threat id is required")
		return
	}

	var threat models.Threat
	err := h.db.WithContext(c.Request.Context()).First(&threat, "id = ?", strings.TrimSpace(req.ID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "threat not found")
		return
	}
	if err != nil {
		internalError(c, "failed to fetch threat", err)
		return
	}
	c.JSON(http.StatusOK, threat)
}
