package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"ctem-enterprise/internal/dashboard"
	"ctem-enterprise/internal/models"

	"github.com/gin-gonic/gin"
)

type behaviorAnomaly struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
}

type scorePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`
}

type behaviorTrends struct {
	Daily  []scorePoint `json:"daily"`
	Weekly []scorePoint `json:"weekly"`
}

type userBehaviorView struct {
	RiskScore   float64           `json:"riskScore"`
	Anomalies   []behaviorAnomaly `json:"anomalies"`
	Trends      behaviorTrends    `json:"trends"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// behaviorRiskScore is the mean of the latest 30 user_behavior samples,
// rounded to two decimals, 0 without samples.
func (h *Handler) behaviorRiskScore(ctx context.Context) (float64, error) {
	var values []float64
	err := h.db.WithContext(ctx).Model(&models.SecurityMetric{}).
		Where("category = ?", models.MetricUserBehavior).
		Order("timestamp desc").
		Limit(30).
		Pluck("value", &values).Error
	if err != nil || len(values) == 0 {
		return 0, err
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*100) / 100, nil
}

func (h *Handler) UserBehavior(c *gin.Context) {
	score, err := h.behaviorRiskScore(c.Request.Context())
	if err != nil {
		internalError(c, "failed to fetch user behavior data", err)
		return
	}

	now := h.now().UTC()
	c.JSON(http.StatusOK, userBehaviorView{
		RiskScore: score,
		Anomalies: []behaviorAnomaly{
			{Type: "login", Description: "Multiple failed login attempts", Severity: "high", Timestamp: now},
			{Type: "access", Description: "Unusual file access pattern", Severity: "medium", Timestamp: now},
		},
		Trends: behaviorTrends{
			Daily: []scorePoint{
				{Timestamp: now, Score: 75},
				{Timestamp: now.Add(-24 * time.Hour), Score: 82},
			},
			Weekly: []scorePoint{
				{Timestamp: now, Score: 78},
				{Timestamp: now.Add(-7 * 24 * time.Hour), Score: 85},
			},
		},
		LastUpdated: now,
	})
}

type activityLocationView struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	City    string `json:"city"`
}

type userActivityView struct {
	ID           string               `json:"id"`
	UserID       string               `json:"userId"`
	Username     string               `json:"username"`
	Action       string               `json:"action"`
	Resource     string               `json:"resource"`
	Timestamp    time.Time            `json:"timestamp"`
	RiskScore    int                  `json:"riskScore"`
	AnomalyScore float64              `json:"anomalyScore"`
	Location     activityLocationView `json:"location"`
	Device       dashboard.Device     `json:"device"`
}

func (h *Handler) activityViews(timeRange string) []userActivityView {
	src := h.dashboard.UserActivities(timeRange)
	out := make([]userActivityView, 0, len(src))
	for _, a := range src {
		out = append(out, userActivityView{
			ID:           a.ID,
			UserID:       a.UserID,
			Username:     a.Username,
			Action:       a.Action,
			Resource:     a.Resource,
			Timestamp:    a.Timestamp,
			RiskScore:    a.RiskScore,
			AnomalyScore: a.AnomalyScore,
			Location:     activityLocationView(a.Location),
			Device:       a.Device,
		})
	}
	return out
}

// BehaviorSnapshot feeds the realtime behavior stream.
func (h *Handler) BehaviorSnapshot(context.Context) (interface{}, error) {
	return h.activityViews("24h"), nil
}

func (h *Handler) UserActivities(c *gin.Context) {
	c.JSON(http.StatusOK, h.activityViews(c.DefaultQuery("timeRange", "24h")))
}

func (h *Handler) Anomalies(c *gin.Context) {
	src := h.dashboard.Anomalies()
	anomalies := make([]gin.H, 0, len(src.Anomalies))
	for _, a := range src.Anomalies {
		anomalies = append(anomalies, gin.H{
			"id":           a.ID,
			"type":         a.Type,
			"description":  a.Description,
			"severity":     strings.ToLower(a.Severity),
			"confidence":   a.Confidence,
			"affectedUser": a.AffectedUser,
			"timestamp":    a.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"anomalies": anomalies,
		"stats": gin.H{
			"totalEvents":       src.Stats.TotalEvents,
			"anomalyRate":       src.Stats.AnomalyRate,
			"falsePositiveRate": src.Stats.FalsePositiveRate,
		},
	})
}

func (h *Handler) RiskProfiles(c *gin.Context) {
	src := h.dashboard.UserRiskProfiles()
	out := make([]gin.H, 0, len(src))
	for _, p := range src {
		out = append(out, gin.H{
			"userId":          p.UserID,
			"username":        p.Username,
			"riskLevel":       strings.ToLower(p.RiskLevel),
			"riskFactors":     p.RiskFactors,
			"recommendations": p.Recommendations,
			"lastUpdated":     p.LastUpdated,
		})
	}
	c.JSON(http.StatusOK, out)
}

var defaultPermissions = []string{
	"dashboard.view",
	"threats.manage",
	"assets.manage",
	"users.view",
}

// UserProfile describes the session user, else the first user, else a demo
// profile.
func (h *Handler) UserProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		if err := h.db.WithContext(c.Request.Context()).Order("id asc").First(&user).Error; err == nil {
			ok = true
		}
	}

	profile := gin.H{
		"id":          "default",
		"name":        "Demo User",
		"email":       "demo@example.com",
		"role":        "Admin",
		"department":  "Security",
		"lastLogin":   h.now().UTC(),
		"permissions": defaultPermissions,
		"settings": gin.H{
			"theme":            "light",
			"notifications":    true,
			"twoFactorEnabled": true,
		},
	}
	if ok {
		profile["id"] = user.ID
		profile["name"] = user.Name
		profile["email"] = user.Username
		profile["role"] = string(user.Role)
		if user.Department != "" {
			profile["department"] = user.Department
		}
	}
	c.JSON(http.StatusOK, profile)
}
