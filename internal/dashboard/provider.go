package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ctem-enterprise/internal/kev"
)

var ErrAlertNotFound = errors.New("alert not found")

// CatalogSource is satisfied by *kev.Feed.
type CatalogSource interface {
	Catalog(ctx context.Context) (*kev.Catalog, error)
}

// Provider serves panel data. Figures are fixed demo values except where
// the KEV catalog adjusts them.
type Provider struct {
	kev CatalogSource
	now func() time.Time

	mu           sync.RWMutex
	acknowledged map[string]bool
	dismissed    map[string]bool
}

func NewProvider(source CatalogSource) *Provider {
	return &Provider{
		kev:          source,
		now:          time.Now,
		acknowledged: map[string]bool{"2": true},
		dismissed:    map[string]bool{},
	}
}

func (p *Provider) RiskOverview() RiskOverview {
	return RiskOverview{
		OverallScore: 65,
		Metrics: []RiskMetric{
			{Category: "Vulnerability", Score: 72, Trend: "DOWN", PreviousScore: 78},
			{Category: "Threat", Score: 58, Trend: "UP", PreviousScore: 52},
			{Category: "Asset", Score: 85, Trend: "STABLE", PreviousScore: 85},
			{Category: "User", Score: 45, Trend: "DOWN", PreviousScore: 55},
		},
		LastUpdated: p.now().UTC(),
	}
}

func (p *Provider) AssetDiscovery() AssetDiscovery {
	now := p.now().UTC()
	return AssetDiscovery{
		TotalAssets:    1250,
		NewAssetsCount: 15,
		ScanProgress:   78,
		AssetCategories: []Category{
			{Name: "Servers", Count: 450, Severity: "HIGH"},
			{Name: "Workstations", Count: 580, Severity: "MEDIUM"},
			{Name: "Network Devices", Count: 120, Severity: "LOW"},
			{Name: "IoT Devices", Count: 100, Severity: "HIGH"},
		},
		LastScanTime: now.Add(-time.Hour),
		NextScanTime: now.Add(time.Hour),
	}
}

func (p *Provider) ThreatIntelligence() ThreatIntelligence {
	now := p.now().UTC()
	return ThreatIntelligence{
		NewThreatsCount: 18,
		TotalThreats:    156,
		OverallSeverity: "MEDIUM",
		SeverityScore:   65,
		ThreatCategories: []Category{
			{Name: "Malware", Count: 45, Severity: "HIGH"},
			{Name: "Phishing", Count: 32, Severity: "MEDIUM"},
			{Name: "Zero-Day", Count: 12, Severity: "CRITICAL"},
			{Name: "DDoS", Count: 67, Severity: "LOW"},
		},
		RecentActivity: []Activity{
			{
				Type:        "Detection",
				Timestamp:   now.Add(-30 * time.Minute),
				Description: "New ransomware variant detected",
				Severity:    "HIGH",
			},
		},
		Recommendations: []string{"Update firewall rules", "Patch vulnerable systems"},
		LastUpdated:     now,
	}
}

func (p *Provider) Exposure() Exposure {
	return Exposure{
		TotalExposures:    156,
		CriticalExposures: 12,
		ExposureScore:     68,
		ExposureCategories: []Category{
			{Name: "Open Ports", Count: 45, Severity: "HIGH"},
			{Name: "Misconfigurations", Count: 32, Severity: "MEDIUM"},
			{Name: "Outdated Software", Count: 58, Severity: "HIGH"},
			{Name: "Weak Credentials", Count: 21, Severity: "CRITICAL"},
		},
		Trends: []ExposureTrend{
			{TimePeriod: "24h", PercentageChange: -5},
			{TimePeriod: "7d", PercentageChange: -15},
			{TimePeriod: "30d", PercentageChange: -25},
		},
		LastUpdated: p.now().UTC(),
	}
}

func (p *Provider) alerts() []Alert {
	now := p.now().UTC()
	return []Alert{
		{
			ID:        "1",
			Title:     "Critical Vulnerability Detected",
			Message:   "A critical vulnerability was detected in the production server.",
			Type:      "error",
			Severity:  "critical",
			Source:    "Vulnerability Scanner",
			Timestamp: now,
			RelatedEntities: []RelatedEntity{
				{Type: "server", ID: "srv-001", Name: "Production Web Server"},
			},
		},
		{
			ID:        "2",
			Title:     "Suspicious Login Activity",
			Message:   "Multiple failed login attempts detected from unusual IP.",
			Type:      "warning",
			Severity:  "high",
			Source:    "Security Gateway",
			Timestamp: now.Add(-time.Hour),
			RelatedEntities: []RelatedEntity{
				{Type: "user", ID: "usr-123", Name: "admin"},
			},
		},
		{
			ID:        "3",
			Title:     "KEV Deadline Approaching",
			Message:   "A known exploited vulnerability on the edge router is due for remediation this week.",
			Type:      "warning",
			Severity:  "medium",
			Source:    "KEV Monitor",
			Timestamp: now.Add(-3 * time.Hour),
			RelatedEntities: []RelatedEntity{
				{Type: "network_device", ID: "rtr-edge-01", Name: "Edge Router"},
			},
		},
	}
}

// Alerts returns the alerts that were not dismissed.
func (p *Provider) Alerts() []Alert {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Alert
	for _, a := range p.alerts() {
		if p.dismissed[a.ID] {
			continue
		}
		a.Acknowledged = p.acknowledged[a.ID]
		out = append(out, a)
	}
	return out
}

func (p *Provider) findAlert(id string) (Alert, bool) {
	for _, a := range p.alerts() {
		if a.ID == id && !p.dismissed[id] {
			a.Acknowledged = p.acknowledged[id]
			return a, true
		}
	}
	return Alert{}, false
}

func (p *Provider) AcknowledgeAlert(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.findAlert(id); !ok {
		return ErrAlertNotFound
	}
	p.acknowledged[id] = true
	return nil
}

func (p *Provider) DismissAlert(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.findAlert(id); !ok {
		return ErrAlertNotFound
	}
	p.dismissed[id] = true
	return nil
}

func (p *Provider) AlertDetails(id string) (AlertDetails, error) {
	p.mu.RLock()
	a, ok := p.findAlert(id)
	p.mu.RUnlock()
	if !ok {
		return AlertDetails{}, ErrAlertNotFound
	}

	now := p.now().UTC()
	return AlertDetails{
		Alert:           a,
		CVE:             "CVE-2023-1234",
		Description:     "Remote code execution vulnerability in web server software",
		Remediation:     "Update web server to latest version",
		AffectedSystems: []string{"srv-001", "srv-002"},
		Timeline: []TimelineEvent{
			{Timestamp: now.Add(-2 * time.Hour), Event: "Vulnerability detected"},
			{Timestamp: now.Add(-time.Hour), Event: "Alert created"},
		},
	}, nil
}

// UserActivities filters the activity log to the given window ("24h", "7d").
// An unparseable window means 24h.
func (p *Provider) UserActivities(timeRange string) []UserActivity {
	now := p.now().UTC()
	window := parseWindow(timeRange)

	all := []UserActivity{
		{
			ID:           "activity-1",
			UserID:       "user-123",
			Username:     "john.doe",
			Action:       "FILE_ACCESS",
			Resource:     "/sensitive/data.txt",
			Timestamp:    now,
			RiskScore:    75,
			AnomalyScore: 0.85,
			Location:     Location{IP: "192.168.1.100", Country: "United States", City: "San Francisco"},
			Device:       Device{Type: "DESKTOP", OS: "Windows 10", Browser: "Chrome"},
		},
		{
			ID:           "activity-2",
			UserID:       "user-456",
			Username:     "jane.smith",
			Action:       "LOGIN",
			Resource:     "vpn-gateway",
			Timestamp:    now.Add(-36 * time.Hour),
			RiskScore:    40,
			AnomalyScore: 0.32,
			Location:     Location{IP: "10.20.0.14", Country: "Germany", City: "Berlin"},
			Device:       Device{Type: "LAPTOP", OS: "macOS 14", Browser: "Safari"},
		},
	}

	var out []UserActivity
	for _, a := range all {
		if now.Sub(a.Timestamp) <= window {
			out = append(out, a)
		}
	}
	return out
}

func parseWindow(s string) time.Duration {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		if d, err := time.ParseDuration(strings.TrimSuffix(s, "d") + "h"); err == nil && d > 0 {
			return d * 24
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

func (p *Provider) Anomalies() AnomalyReport {
	return AnomalyReport{
		Anomalies: []Anomaly{
			{
				ID:           "anomaly-1",
				Type:         "LOGIN_PATTERN",
				Description:  "Unusual login time detected",
				Severity:     "MEDIUM",
				Confidence:   0.85,
				AffectedUser: "john.doe",
				Timestamp:    p.now().UTC(),
			},
		},
		Stats: AnomalyStats{TotalEvents: 1500, AnomalyRate: 0.02, FalsePositiveRate: 0.001},
	}
}

func (p *Provider) UserRiskProfiles() []UserRiskProfile {
	return []UserRiskProfile{
		{
			UserID:    "user-123",
			Username:  "john.doe",
			RiskLevel: "MEDIUM",
			RiskFactors: []RiskFactor{
				{Name: "Access Pattern", Score: 65, Description: "Unusual access times detected"},
			},
			Recommendations: []string{"Enable 2FA", "Review access permissions"},
			LastUpdated:     p.now().UTC(),
		},
	}
}

func (p *Provider) AttackPaths() []AttackPath {
	return []AttackPath{
		{
			ID:          "path-1",
			Name:        "Web Server Compromise",
			Description: "Potential path through exposed web server",
			Severity:    "HIGH",
			Probability: 0.75,
			ImpactScore: 85,
			Steps: []AttackStep{
				{
					ID:           "step-1",
					Name:         "Initial Access",
					Description:  "Exploit vulnerable web application",
					Status:       "POSSIBLE",
					Requirements: []string{"CVE-2023-1234"},
				},
			},
			Mitigations: []Mitigation{
				{ID: "mit-1", Name: "Web Application Firewall", Effectiveness: "HIGH", ImplementationStatus: "PLANNED"},
			},
			LastUpdated: p.now().UTC(),
		},
	}
}

func (p *Provider) AttackGraph() AttackGraph {
	return AttackGraph{
		Nodes: []GraphNode{
			{ID: "web-server", Type: "asset", Label: "Web Server", Risk: 0.8, Details: map[string]interface{}{
				"hostname": "web-01", "ip": "10.0.1.10", "services": []string{"http", "https"},
			}},
			{ID: "cve-2023-1234", Type: "vulnerability", Label: "SQL Injection", Risk: 0.9, Details: map[string]interface{}{
				"cve": "CVE-2023-1234", "cvss": 8.5, "description": "SQL injection vulnerability in login form",
			}},
			{ID: "db-server", Type: "asset", Label: "Database Server", Risk: 0.7, Details: map[string]interface{}{
				"hostname": "db-01", "ip": "10.0.1.20", "services": []string{"mysql"},
			}},
			{ID: "data-exfil", Type: "attack", Label: "Data Exfiltration", Risk: 0.85, Details: map[string]interface{}{
				"technique": "T1048", "description": "Exfiltration over alternative protocol",
			}},
			{ID: "admin-creds", Type: "impact", Label: "Admin Credentials Compromised", Risk: 0.95, Details: map[string]interface{}{
				"severity": "Critical", "affected_systems": []string{"web-01", "db-01"},
			}},
		},
		Edges: []GraphEdge{
			{Source: "web-server", Target: "cve-2023-1234", Probability: 0.8, Type: "exploit"},
			{Source: "cve-2023-1234", Target: "db-server", Probability: 0.7, Type: "lateral_movement"},
			{Source: "db-server", Target: "data-exfil", Probability: 0.6, Type: "exploit"},
			{Source: "data-exfil", Target: "admin-creds", Probability: 0.9, Type: "privilege_escalation"},
		},
	}
}

// Search matches the query against type, title and description.
func (p *Provider) Search(query string) SearchResult {
	now := p.now().UTC()
	items := []SearchItem{
		{Type: "vulnerability", Title: "Critical SQL Injection", Description: "SQL Injection vulnerability found in login form", Severity: "high", Timestamp: now},
		{Type: "asset", Title: "Web Server", Description: "Production web server with critical vulnerabilities", Severity: "medium", Timestamp: now},
		{Type: "threat", Title: "Suspicious Login Activity", Description: "Multiple failed login attempts detected", Severity: "low", Timestamp: now},
	}

	q := strings.ToLower(strings.TrimSpace(query))
	matched := []SearchItem{}
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Type), q) ||
			strings.Contains(strings.ToLower(it.Title), q) ||
			strings.Contains(strings.ToLower(it.Description), q) {
			matched = append(matched, it)
		}
	}
	return SearchResult{Items: matched, Total: len(matched), Query: query}
}
