// Package dashboard serves the panel data behind the CTEM UI. Source records
// use the analytics engine's snake_case shape; handlers reshape them.
package dashboard

import "time"

type RiskMetric struct {
	Category      string `json:"category"`
	Score         int    `json:"score"`
	Trend         string `json:"trend"` // UP / DOWN / STABLE
	PreviousScore int    `json:"previous_score"`
}

type RiskOverview struct {
	OverallScore int          `json:"overall_score"`
	Metrics      []RiskMetric `json:"metrics"`
	LastUpdated  time.Time    `json:"last_updated"`
}

type Category struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
}

type AssetDiscovery struct {
	TotalAssets     int        `json:"total_assets"`
	NewAssetsCount  int        `json:"new_assets_count"`
	ScanProgress    int        `json:"scan_progress"`
	AssetCategories []Category `json:"asset_categories"`
	LastScanTime    time.Time  `json:"last_scan_time"`
	NextScanTime    time.Time  `json:"next_scan_time"`
}

type ExposureTrend struct {
	TimePeriod       string `json:"time_period"`
	PercentageChange int    `json:"percentage_change"`
}

type Exposure struct {
	TotalExposures     int             `json:"total_exposures"`
	CriticalExposures  int             `json:"critical_exposures"`
	ExposureScore      int             `json:"exposure_score"`
	ExposureCategories []Category      `json:"exposure_categories"`
	Trends             []ExposureTrend `json:"trends"`
	LastUpdated        time.Time       `json:"last_updated"`
}

type Activity struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
}

type ThreatIntelligence struct {
	NewThreatsCount  int        `json:"new_threats_count"`
	TotalThreats     int        `json:"total_threats"`
	OverallSeverity  string     `json:"overall_severity"`
	SeverityScore    int        `json:"severity_score"`
	ThreatCategories []Category `json:"threat_categories"`
	RecentActivity   []Activity `json:"recent_activity"`
	Recommendations  []string   `json:"recommendations"`
	LastUpdated      time.Time  `json:"last_updated"`
}

type ContributingFactor struct {
	Name         string  `json:"name"`
	ImpactWeight float64 `json:"impact_weight"`
}

type ForecastPoint struct {
	Month               string               `json:"month"`
	PredictedCount      float64              `json:"predicted_count"`
	ConfidenceScore     float64              `json:"confidence_score"`
	RiskLevel           string               `json:"risk_level"`
	ContributingFactors []ContributingFactor `json:"contributing_factors"`
}

type HistoricalCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type ForecastDetail struct {
	ForecastPoint
	PredictionMethodology string             `json:"prediction_methodology"`
	HistoricalData        []HistoricalCount  `json:"historical_data"`
	ConfidenceFactors     map[string]float64 `json:"confidence_factors"`
}

type RelatedEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Alert struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Message         string          `json:"message"`
	Type            string          `json:"type"`
	Severity        string          `json:"severity"`
	Source          string          `json:"source"`
	Timestamp       time.Time       `json:"timestamp"`
	Acknowledged    bool            `json:"acknowledged"`
	RelatedEntities []RelatedEntity `json:"related_entities"`
}

type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
}

type AlertDetails struct {
	Alert
	CVE             string          `json:"cve"`
	Description     string          `json:"detailed_description"`
	Remediation     string          `json:"remediation"`
	AffectedSystems []string        `json:"affected_systems"`
	Timeline        []TimelineEvent `json:"event_timeline"`
}

type Location struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	City    string `json:"city"`
}

type Device struct {
	Type    string `json:"type"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

type UserActivity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Action       string    `json:"action"`
	Resource     string    `json:"resource"`
	Timestamp    time.Time `json:"timestamp"`
	RiskScore    int       `json:"risk_score"`
	AnomalyScore float64   `json:"anomaly_score"`
	Location     Location  `json:"location"`
	Device       Device    `json:"device"`
}

type Anomaly struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	Severity     string    `json:"severity"`
	Confidence   float64   `json:"confidence"`
	AffectedUser string    `json:"affected_user"`
	Timestamp    time.Time `json:"timestamp"`
}

type AnomalyStats struct {
	TotalEvents       int     `json:"total_events"`
	AnomalyRate       float64 `json:"anomaly_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

type AnomalyReport struct {
	Anomalies []Anomaly    `json:"anomalies"`
	Stats     AnomalyStats `json:"stats"`
}

type RiskFactor struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Description string `json:"description"`
}

type UserRiskProfile struct {
	UserID          string       `json:"user_id"`
	Username        string       `json:"username"`
	RiskLevel       string       `json:"risk_level"`
	RiskFactors     []RiskFactor `json:"risk_factors"`
	Recommendations []string     `json:"recommendations"`
	LastUpdated     time.Time    `json:"last_updated"`
}

type AttackStep struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Status       string   `json:"status"`
	Requirements []string `json:"requirements"`
}

type Mitigation struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Effectiveness        string `json:"effectiveness"`
	ImplementationStatus string `json:"implementation_status"`
}

type AttackPath struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Severity    string       `json:"severity"`
	Probability float64      `json:"probability"`
	ImpactScore int          `json:"impact_score"`
	Steps       []AttackStep `json:"steps"`
	Mitigations []Mitigation `json:"mitigations"`
	LastUpdated time.Time    `json:"last_updated"`
}

// GraphNode and GraphEdge are already in UI shape.
type GraphNode struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"` // asset | vulnerability | attack | impact
	Label   string                 `json:"label"`
	Details map[string]interface{} `json:"details"`
	Risk    float64                `json:"risk"`
}

type GraphEdge struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Probability float64 `json:"probability"`
	Type        string  `json:"type"` // exploit | lateral_movement | privilege_escalation
}

type AttackGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type SearchItem struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
}

type SearchResult struct {
	Items []SearchItem `json:"items"`
	Total int          `json:"total"`
	Query string       `json:"query"`
}

type FeedItem struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Source         string `json:"source"`
	Timestamp      string `json:"timestamp"`
	CVEID          string `json:"cveId,omitempty"`
	RequiredAction string `json:"requiredAction,omitempty"`
	DueDate        string `json:"dueDate,omitempty"`
}
