package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"ctem-enterprise/internal/dashboard"

	"github.com/gin-gonic/gin"
)

// Panel responses. The dashboard package keeps the analytics engine's
// snake_case records; these are the shapes the UI reads.

type riskMetricView struct {
	Category      string `json:"category"`
	Score         int    `json:"score"`
	Trend         string `json:"trend"`
	PreviousScore int    `json:"previousScore"`
}

type riskOverviewView struct {
	OverallScore int              `json:"overallScore"`
	Metrics      []riskMetricView `json:"metrics"`
	LastUpdated  time.Time        `json:"lastUpdated"`
}

func (h *Handler) RiskOverview(c *gin.Context) {
	src := h.dashboard.RiskOverview()
	out := riskOverviewView{
		OverallScore: src.OverallScore,
		Metrics:      make([]riskMetricView, 0, len(src.Metrics)),
		LastUpdated:  src.LastUpdated,
	}
	for _, m := range src.Metrics {
		out.Metrics = append(out.Metrics, riskMetricView{
			Category:      m.Category,
			Score:         m.Score,
			Trend:         strings.ToLower(m.Trend),
			PreviousScore: m.PreviousScore,
		})
	}
	c.JSON(http.StatusOK, out)
}

type discoveryCategoryView struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type discoveryView struct {
	TotalAssets  int                     `json:"totalAssets"`
	NewAssets    int                     `json:"newAssets"`
	ScanProgress int                     `json:"scanProgress"`
	Categories   []discoveryCategoryView `json:"categories"`
	LastScanTime time.Time               `json:"lastScanTime"`
	NextScanTime time.Time               `json:"nextScanTime"`
}

func (h *Handler) Discovery(c *gin.Context) {
	src := h.dashboard.AssetDiscovery()
	out := discoveryView{
		TotalAssets:  src.TotalAssets,
		NewAssets:    src.NewAssetsCount,
		ScanProgress: src.ScanProgress,
		Categories:   make([]discoveryCategoryView, 0, len(src.AssetCategories)),
		LastScanTime: src.LastScanTime,
		NextScanTime: src.NextScanTime,
	}
	for _, cat := range src.AssetCategories {
		var pct float64
		if src.TotalAssets > 0 {
			pct = float64(cat.Count) / float64(src.TotalAssets) * 100
		}
		out.Categories = append(out.Categories, discoveryCategoryView{Name: cat.Name, Count: cat.Count, Percentage: pct})
	}
	c.JSON(http.StatusOK, out)
}

type categoryView struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
}

type trendView struct {
	Period string `json:"period"`
	Change int    `json:"change"`
}

type exposureView struct {
	TotalExposures    int            `json:"totalExposures"`
	CriticalExposures int            `json:"criticalExposures"`
	ExposureScore     int            `json:"exposureScore"`
	Categories        []categoryView `json:"categories"`
	Trends            []trendView    `json:"trends"`
	LastUpdated       time.Time      `json:"lastUpdated"`
}

func lowerCategories(src []dashboard.Category) []categoryView {
	out := make([]categoryView, 0, len(src))
	for _, cat := range src {
		out = append(out, categoryView{Name: cat.Name, Count: cat.Count, Severity: strings.ToLower(cat.Severity)})
	}
	return out
}

func (h *Handler) Exposure(c *gin.Context) {
	src := h.dashboard.Exposure()
	out := exposureView{
		TotalExposures:    src.TotalExposures,
		CriticalExposures: src.CriticalExposures,
		ExposureScore:     src.ExposureScore,
		Categories:        lowerCategories(src.ExposureCategories),
		Trends:            make([]trendView, 0, len(src.Trends)),
		LastUpdated:       src.LastUpdated,
	}
	for _, t := range src.Trends {
		out.Trends = append(out.Trends, trendView{Period: t.TimePeriod, Change: t.PercentageChange})
	}
	c.JSON(http.StatusOK, out)
}

type activityView struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
}

type threatIntelView struct {
	NewThreats      int            `json:"newThreats"`
	TotalThreats    int            `json:"totalThreats"`
	Severity        string         `json:"severity"`
	SeverityScore   int            `json:"severityScore"`
	Categories      []categoryView `json:"categories"`
	RecentActivity  []activityView `json:"recentActivity"`
	Recommendations []string       `json:"recommendations"`
	LastUpdated     time.Time      `json:"lastUpdated"`
}

func (h *Handler) ThreatIntel(c *gin.Context) {
	src := h.dashboard.ThreatIntelligence()
	out := threatIntelView{
		NewThreats:      src.NewThreatsCount,
		TotalThreats:    src.TotalThreats,
		Severity:        strings.ToLower(src.OverallSeverity),
		SeverityScore:   src.SeverityScore,
		Categories:      lowerCategories(src.ThreatCategories),
		RecentActivity:  make([]activityView, 0, len(src.RecentActivity)),
		Recommendations: src.Recommendations,
		LastUpdated:     src.LastUpdated,
	}
	for _, a := range src.RecentActivity {
		out.RecentActivity = append(out.RecentActivity, activityView{
			Type:        a.Type,
			Timestamp:   a.Timestamp,
			Description: a.Description,
			Severity:    strings.ToLower(a.Severity),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ThreatFeed(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.ThreatFeed(c.Request.Context()))
}

type factorView struct {
	Name         string  `json:"name"`
	ImpactWeight float64 `json:"impactWeight"`
}

type forecastView struct {
	Month               string       `json:"month"`
	PredictedCount      float64      `json:"predictedCount"`
	ConfidenceScore     float64      `json:"confidenceScore"`
	RiskLevel           string       `json:"riskLevel"`
	ContributingFactors []factorView `json:"contributingFactors"`
}

type historicalView struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type forecastDetailView struct {
	forecastView
	PredictionMethodology string             `json:"predictionMethodology"`
	HistoricalData        []historicalView   `json:"historicalData"`
	ConfidenceFactors     map[string]float64 `json:"confidenceFactors"`
}

func toForecastView(p dashboard.ForecastPoint) forecastView {
	v := forecastView{
		Month:               p.Month,
		PredictedCount:      math.Round(p.PredictedCount*100) / 100,
		ConfidenceScore:     p.ConfidenceScore,
		RiskLevel:           strings.ToLower(p.RiskLevel),
		ContributingFactors: make([]factorView, 0, len(p.ContributingFactors)),
	}
	for _, f := range p.ContributingFactors {
		v.ContributingFactors = append(v.ContributingFactors, factorView{Name: f.Name, ImpactWeight: f.ImpactWeight})
	}
	return v
}

func (h *Handler) Forecast(c *gin.Context) {
	points := h.dashboard.Forecast(c.Request.Context())
	out := make([]forecastView, 0, len(points))
	for _, p := range points {
		out = append(out, toForecastView(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ForecastDetail(c *gin.Context) {
	d, ok := h.dashboard.ForecastDetail(c.Request.Context(), c.Param("month"))
	if !ok {
		respondError(c, http.StatusNotFound, "forecast not found")
		return
	}
	out := forecastDetailView{
		forecastView:          toForecastView(d.ForecastPoint),
		PredictionMethodology: d.PredictionMethodology,
		HistoricalData:        make([]historicalView, 0, len(d.HistoricalData)),
		ConfidenceFactors:     d.ConfidenceFactors,
	}
	for _, hd := range d.HistoricalData {
		out.HistoricalData = append(out.HistoricalData, historicalView{Month: hd.Month, Count: hd.Count})
	}
	c.JSON(http.StatusOK, out)
}

type alertView struct {
	ID              string                    `json:"id"`
	Title           string                    `json:"title"`
	Message         string                    `json:"message"`
	Type            string                    `json:"type"`
	Severity        string                    `json:"severity"`
	Source          string                    `json:"source"`
	Timestamp       time.Time                 `json:"timestamp"`
	Acknowledged    bool                      `json:"acknowledged"`
	RelatedEntities []dashboard.RelatedEntity `json:"relatedEntities"`
}

func toAlertView(a dashboard.Alert) alertView {
	return alertView{
		ID:              a.ID,
		Title:           a.Title,
		Message:         a.Message,
		Type:            a.Type,
		Severity:        a.Severity,
		Source:          a.Source,
		Timestamp:       a.Timestamp,
		Acknowledged:    a.Acknowledged,
		RelatedEntities: a.RelatedEntities,
	}
}

func (h *Handler) alertViews() []alertView {
	alerts := h.dashboard.Alerts()
	out := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertView(a))
	}
	return out
}

// AlertsSnapshot feeds the realtime alerts stream.
func (h *Handler) AlertsSnapshot(context.Context) (interface{}, error) {
	return h.alertViews(), nil
}

func (h *Handler) Notifications(c *gin.Context) {
	alerts := h.alertViews()
	unread := 0
	for _, a := range alerts {
		if !a.Acknowledged {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": alerts, "unreadCount": unread})
}

func (h *Handler) alertAction(c *gin.Context, fn func(string) error) {
	if err := fn(c.Param("id")); err != nil {
		if errors.Is(err, dashboard.ErrAlertNotFound) {
			respondError(c, http.StatusNotFound, "notification not found")
			return
		}
		internalError(c, "failed to update notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) AcknowledgeNotification(c *gin.Context) {
	h.alertAction(c, h.dashboard.AcknowledgeAlert)
}

func (h *Handler) DismissNotification(c *gin.Context) {
	h.alertAction(c, h.dashboard.DismissAlert)
}

func (h *Handler) NotificationDetails(c *gin.Context) {
	d, err := h.dashboard.AlertDetails(c.Param("id"))
	if errors.Is(err, dashboard.ErrAlertNotFound) {
		respondError(c, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		internalError(c, "failed to fetch notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alert":               toAlertView(d.Alert),
		"cve":                 d.CVE,
		"detailedDescription": d.Description,
		"remediation":         d.Remediation,
		"affectedSystems":     d.AffectedSystems,
		"eventTimeline":       d.Timeline,
	})
}

func (h *Handler) AttackPaths(c *gin.Context) {
	if h.scoring.Configured() {
		g, err := h.scoring.AttackPaths(c.Request.Context())
		if err != nil {
			upstreamError(c, "failed to fetch attack paths", err)
			return
		}
		c.JSON(http.StatusOK, g)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.AttackGraph())
}

type attackStepView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Status       string   `json:"status"`
	Requirements []string `json:"requirements"`
}

type mitigationView struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Effectiveness        string `json:"effectiveness"`
	ImplementationStatus string `json:"implementationStatus"`
}

type attackPathView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Severity    string           `json:"severity"`
	Probability float64          `json:"probability"`
	ImpactScore int              `json:"impactScore"`
	Steps       []attackStepView `json:"steps"`
	Mitigations []mitigationView `json:"mitigations"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

func (h *Handler) AttackPathList(c *gin.Context) {
	paths := h.dashboard.AttackPaths()
	out := make([]attackPathView, 0, len(paths))
	for _, p := range paths {
		v := attackPathView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Severity:    strings.ToLower(p.Severity),
			Probability: p.Probability,
			ImpactScore: p.ImpactScore,
			LastUpdated: p.LastUpdated,
		}
		for _, s := range p.Steps {
			v.Steps = append(v.Steps, attackStepView(s))
		}
		for _, m := range p.Mitigations {
			v.Mitigations = append(v.Mitigations, mitigationView(m))
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) AttackData(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.AttackData())
}

func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondError(c, http.StatusBadRequest, `Query parameter "q" is required`)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Search(q))
}
