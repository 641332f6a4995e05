package dashboard

import (
	"context"
	"time"

	"ctem-enterprise/internal/kev"
	"ctem-enterprise/internal/logger"
)

const (
	// KEVSurgeThreshold is the number of entries added in the last month
	// above which forecasts are scaled by KEVSurgeFactor.
	KEVSurgeThreshold = 10
	KEVSurgeFactor    = 1.2

	kevFeedWindow = 7 * 24 * time.Hour
	kevFeedSource = "CISA KEV Catalog"
)

func baseForecast() []ForecastPoint {
	factors := func(hist, seasonal float64) []ContributingFactor {
		return []ContributingFactor{
			{Name: "Historical Trends", ImpactWeight: hist},
			{Name: "Seasonal Patterns", ImpactWeight: seasonal},
			{Name: "Industry Events", ImpactWeight: 0.3},
		}
	}
	return []ForecastPoint{
		{Month: "Jan", PredictedCount: 45, ConfidenceScore: 0.85, RiskLevel: "MEDIUM", ContributingFactors: factors(0.4, 0.3)},
		{Month: "Feb", PredictedCount: 52, ConfidenceScore: 0.82, RiskLevel: "HIGH", ContributingFactors: factors(0.35, 0.35)},
		{Month: "Mar", PredictedCount: 38, ConfidenceScore: 0.88, RiskLevel: "LOW", ContributingFactors: factors(0.45, 0.25)},
		{Month: "Apr", PredictedCount: 63, ConfidenceScore: 0.79, RiskLevel: "HIGH", ContributingFactors: factors(0.3, 0.4)},
		{Month: "May", PredictedCount: 55, ConfidenceScore: 0.84, RiskLevel: "MEDIUM", ContributingFactors: factors(0.4, 0.3)},
		{Month: "Jun", PredictedCount: 48, ConfidenceScore: 0.86, RiskLevel: "MEDIUM", ContributingFactors: factors(0.35, 0.35)},
	}
}

// Forecast scales every predicted count when the catalog shows a surge of
// new entries in the month before now. A nil catalog leaves base unchanged.
func Forecast(base []ForecastPoint, catalog *kev.Catalog, now time.Time) []ForecastPoint {
	out := make([]ForecastPoint, len(base))
	copy(out, base)
	if catalog == nil {
		return out
	}
	if len(catalog.RecentlyAdded(now.AddDate(0, -1, 0))) <= KEVSurgeThreshold {
		return out
	}
	for i := range out {
		out[i].PredictedCount *= KEVSurgeFactor
	}
	return out
}

// ThreatFeed puts entries added to the catalog during the last week in front
// of the base feed.
func ThreatFeed(base []FeedItem, catalog *kev.Catalog, now time.Time) []FeedItem {
	recent := catalog.RecentlyAdded(now.Add(-kevFeedWindow))
	out := make([]FeedItem, 0, len(recent)+len(base))
	for _, v := range recent {
		out = append(out, FeedItem{
			Type:           "KEV",
			Severity:       "critical",
			Title:          v.VulnerabilityName,
			Description:    v.ShortDescription,
			Source:         kevFeedSource,
			Timestamp:      v.DateAdded,
			CVEID:          v.CVEID,
			RequiredAction: v.RequiredAction,
			DueDate:        v.DueDate,
		})
	}
	return append(out, base...)
}

func (p *Provider) baseThreatFeed() []FeedItem {
	return []FeedItem{
		{
			Type:        "malware",
			Severity:    "high",
			Title:       "New Ransomware Variant Detected",
			Description: "New ransomware strain targeting healthcare sector",
			Source:      "Internal Analysis",
			Timestamp:   p.now().UTC().Format(time.RFC3339),
		},
	}
}

// catalog returns nil when no source is wired or the feed is down; panels
// then render without KEV adjustments.
func (p *Provider) catalog(ctx context.Context) *kev.Catalog {
	if p.kev == nil {
		return nil
	}
	c, err := p.kev.Catalog(ctx)
	if err != nil {
		logger.Warnf("kev catalog unavailable, serving unadjusted data: %v", err)
		return nil
	}
	return c
}

func (p *Provider) Forecast(ctx context.Context) []ForecastPoint {
	return Forecast(baseForecast(), p.catalog(ctx), p.now())
}

// ForecastDetail returns false when month is not part of the forecast.
func (p *Provider) ForecastDetail(ctx context.Context, month string) (ForecastDetail, bool) {
	for _, f := range p.Forecast(ctx) {
		if f.Month != month {
			continue
		}
		return ForecastDetail{
			ForecastPoint:         f,
			PredictionMethodology: "Machine Learning with Historical Analysis",
			HistoricalData: []HistoricalCount{
				{Month: "Previous 3", Count: 42},
				{Month: "Previous 2", Count: 48},
				{Month: "Previous 1", Count: 44},
			},
			ConfidenceFactors: map[string]float64{
				"data_quality":         0.9,
				"model_accuracy":       0.85,
				"prediction_stability": 0.88,
			},
		}, true
	}
	return ForecastDetail{}, false
}

func (p *Provider) ThreatFeed(ctx context.Context) []FeedItem {
	return ThreatFeed(p.baseThreatFeed(), p.catalog(ctx), p.now())
}
