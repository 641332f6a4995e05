package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"ctem-enterprise/internal/database"
	"ctem-enterprise/internal/models"
	"ctem-enterprise/internal/remediation"

	"github.com/gin-gonic/gin"
)

type metricView struct {
	Timestamp      string  `json:"timestamp"`
	ActiveCount    int     `json:"activeCount"`
	CompletedCount int     `json:"completedCount"`
	FailedCount    int     `json:"failedCount"`
	RiskScore      float64 `json:"riskScore"`
}

// GetAutoRemediation returns the engine status with its last 30 metric
// points, plus the scoring service's own status when one is configured.
func (h *Handler) GetAutoRemediation(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.remediation.Status(ctx)
	if err != nil {
		internalError(c, "failed to fetch auto-remediation status", err)
		return
	}
	points, err := h.remediation.Metrics(ctx, 30)
	if err != nil {
		internalError(c, "failed to fetch auto-remediation metrics", err)
		return
	}

	metrics := make([]metricView, 0, len(points))
	for _, m := range points {
		metrics = append(metrics, metricView{
			Timestamp:      m.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
			ActiveCount:    m.ActiveCount,
			CompletedCount: m.CompletedCount,
			FailedCount:    m.FailedCount,
			RiskScore:      m.RiskScore,
		})
	}

	body := gin.H{
		"isRunning":             st.IsRunning,
		"activeRemediations":    st.ActiveRemediations,
		"completedRemediations": st.CompletedRemediations,
		"failedRemediations":    st.FailedRemediations,
		"lastUpdate":            st.LastUpdate,
		"config":                st.Config,
		"metrics":               metrics,
	}
	if h.scoring.Configured() {
		upstream, err := h.scoring.Status(ctx)
		if err != nil {
			upstreamWarn(c, "scoring service status unavailable", err)
		} else {
			body["upstream"] = upstream
		}
	}
	c.JSON(http.StatusOK, body)
}

type executeRequest struct {
	ThreatID string `json:"threatId" binding:"required"`
}

func (h *Handler) ExecuteRemediation(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "threatId is required")
		return
	}

	rem, err := h.remediation.Execute(c.Request.Context(), req.ThreatID)
	if errors.Is(err, remediation.ErrThreatNotFound) {
		respondError(c, http.StatusNotFound, fmt.Sprintf("Threat %s not found", req.ThreatID))
		return
	}
	if err != nil {
		internalError(c, "Failed to execute auto-remediation", err)
		return
	}

	database.CreateAuditLog(h.db, currentUserID(c), "remediation", rem.ID, "execute",
		fmt.Sprintf("remediation %s started for threat %s", rem.Details["action"], rem.ThreatID))

	if h.scoring.Configured() {
		if _, err := h.scoring.StartRemediation(c.Request.Context(), rem.ThreatID); err != nil {
			upstreamWarn(c, "scoring service did not accept remediation", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"result": rem})
}

type statusRequest struct {
	RemediationID string                  `json:"remediationId" binding:"required"`
	Status        models.RemediationState `json:"status" binding:"required"`
	Details       map[string]interface{}  `json:"details"`
}

func (h *Handler) UpdateRemediationStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "remediationId and status are required")
		return
	}

	rem, err := h.remediation.UpdateStatus(c.Request.Context(), req.RemediationID, req.Status, req.Details)
	switch {
	case errors.Is(err, remediation.ErrInvalidStatus):
		respondError(c, http.StatusBadRequest, "status must be one of active, completed, failed")
		return
	case errors.Is(err, remediation.ErrRemediationNotFound):
		respondError(c, http.StatusNotFound, "remediation not found")
		return
	case err != nil:
		internalError(c, "failed to update remediation status", err)
		return
	}

	database.CreateAuditLog(h.db, currentUserID(c), "remediation", rem.ID, "status_change",
		"status set to "+string(rem.Status))

	if h.scoring.Configured() {
		payload := gin.H{"remediationId": rem.ID, "status": rem.Status, "details": req.Details}
		if _, err := h.scoring.UpdateStatus(c.Request.Context(), payload); err != nil {
			upstreamWarn(c, "scoring service did not accept status update", err)
		}
	}

	c.JSON(http.StatusOK, rem)
}

func (h *Handler) GetRemediationConfig(c *gin.Context) {
	cfg, err := h.remediation.Config(c.Request.Context())
	if err != nil {
		internalError(c, "failed to fetch remediation config", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// configRequest uses pointers so a missing field is told apart from zero.
type configRequest struct {
	SafeImpactThreshold *float64 `json:"safeImpactThreshold" binding:"required"`
	MaxAffectedSystems  *int     `json:"maxAffectedSystems" binding:"required"`
	RiskThreshold       *float64 `json:"riskThreshold" binding:"required"`
	SystemicThreshold   *float64 `json:"systemicThreshold" binding:"required"`
	MonitoringInterval  *int     `json:"monitoringInterval" binding:"required"`
}

func (r configRequest) config() models.RemediationConfig {
	return models.RemediationConfig{
		SafeImpactThreshold: *r.SafeImpactThreshold,
		MaxAffectedSystems:  *r.MaxAffectedSystems,
		RiskThreshold:       *r.RiskThreshold,
		SystemicThreshold:   *r.SystemicThreshold,
		MonitoringInterval:  *r.MonitoringInterval,
	}
}

func (h *Handler) UpdateRemediationConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest,
			"invalid configuration: safeImpactThreshold, maxAffectedSystems, riskThreshold, systemicThreshold and monitoringInterval are required")
		return
	}
	cfg := req.config()

	saved, err := h.remediation.UpdateConfig(c.Request.Context(), cfg)
	var ve *remediation.ValidationError
	if errors.As(err, &ve) {
		respondError(c, http.StatusBadRequest, ve.Error())
		return
	}
	if err != nil {
		internalError(c, "failed to save remediation config", err)
		return
	}

	database.CreateAuditLog(h.db, currentUserID(c), "remediation_config", fmt.Sprint(saved.ID), "update",
		fmt.Sprintf("interval=%ds maxSystems=%d risk=%.2f", saved.MonitoringInterval, saved.MaxAffectedSystems, saved.RiskThreshold))
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) ListRemediations(c *gin.Context) {
	rems, err := h.remediation.List(c.Request.Context())
	if err != nil {
		internalError(c, "failed to fetch remediations", err)
		return
	}
	c.JSON(http.StatusOK, rems)
}

func (h *Handler) GetRemediation(c *gin.Context) {
	rem, err := h.remediation.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, remediation.ErrRemediationNotFound) {
		respondError(c, http.StatusNotFound, "remediation not found")
		return
	}
	if err != nil {
		internalError(c, "failed to fetch remediation", err)
		return
	}
	c.JSON(http.StatusOK, rem)
}
