package scoring

import "time"

// Wire shapes of the scoring service.

type rawNode struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Name      string                 `json:"name"`
	Details   map[string]interface{} `json:"details"`
	RiskScore float64                `json:"risk_score"`
}

type rawEdge struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Probability float64 `json:"probability"`
	Type        string  `json:"type"`
}

type rawAttackGraph struct {
	Nodes []rawNode `json:"nodes"`
	Edges []rawEdge `json:"edges"`
}

type rawThreat struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Severity        float64   `json:"severity"`
	Description     string    `json:"description"`
	Timestamp       time.Time `json:"timestamp"`
	AffectedSystems []string  `json:"affected_systems"`
	Status          string    `json:"status"`
}

type rawVulnerability struct {
	ID               string   `json:"id"`
	CVEID            string   `json:"cve_id"`
	Description      string   `json:"description"`
	Severity         float64  `json:"severity"`
	Status           string   `json:"status"`
	AffectedAssets   []string `json:"affected_assets"`
	RemediationSteps []string `json:"remediation_steps"`
}

// UI shapes.

type Node struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Label   string                 `json:"label"`
	Details map[string]interface{} `json:"details"`
	Risk    float64                `json:"risk"`
}

type Edge struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Probability float64 `json:"probability"`
	Type        string  `json:"type"`
}

type AttackGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Threat struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Severity        string    `json:"severity"`
	Description     string    `json:"description"`
	Timestamp       time.Time `json:"timestamp"`
	AffectedSystems []string  `json:"affectedSystems"`
	Status          string    `json:"status"`
}

type Vulnerability struct {
	ID             string   `json:"id"`
	CVE            string   `json:"cve"`
	Description    string   `json:"description"`
	Severity       string   `json:"severity"`
	Status         string   `json:"status"`
	AffectedAssets []string `json:"affectedAssets"`
	Remediation    []string `json:"remediation"`
}

var nodeTypes = map[string]string{
	"ASSET":         "asset",
	"VULNERABILITY": "vulnerability",
	"ATTACK_STEP":   "attack",
	"IMPACT":        "impact",
}

var edgeTypes = map[string]string{
	"EXPLOITS":             "exploit",
	"LATERAL_MOVEMENT":     "lateral_movement",
	"PRIVILEGE_ESCALATION": "privilege_escalation",
}

func mapNodeType(t string) string {
	if v, ok := nodeTypes[t]; ok {
		return v
	}
	return "attack"
}

func mapEdgeType(t string) string {
	if v, ok := edgeTypes[t]; ok {
		return v
	}
	return "exploit"
}

// MapSeverity buckets a 0-10 score into a severity label.
func MapSeverity(score float64) string {
	switch {
	case score >= 9:
		return "critical"
	case score >= 7:
		return "high"
	case score >= 4:
		return "medium"
	default:
		return "low"
	}
}

func transformAttackPaths(raw rawAttackGraph) AttackGraph {
	g := AttackGraph{
		Nodes: make([]Node, 0, len(raw.Nodes)),
		Edges: make([]Edge, 0, len(raw.Edges)),
	}
	for _, n := range raw.Nodes {
		g.Nodes = append(g.Nodes, Node{
			ID:      n.ID,
			Type:    mapNodeType(n.Type),
			Label:   n.Name,
			Details: n.Details,
			Risk:    n.RiskScore,
		})
	}
	for _, e := range raw.Edges {
		g.Edges = append(g.Edges, Edge{
			Source:      e.Source,
			Target:      e.Target,
			Probability: e.Probability,
			Type:        mapEdgeType(e.Type),
		})
	}
	return g
}

func transformThreats(raw []rawThreat) []Threat {
	out := make([]Threat, 0, len(raw))
	for _, t := range raw {
		out = append(out, Threat{
			ID:              t.ID,
			Type:            t.Type,
			Severity:        MapSeverity(t.Severity),
			Description:     t.Description,
			Timestamp:       t.Timestamp,
			AffectedSystems: t.AffectedSystems,
			Status:          t.Status,
		})
	}
	return out
}

func transformVulnerabilities(raw []rawVulnerability) []Vulnerability {
	out := make([]Vulnerability, 0, len(raw))
	for _, v := range raw {
		out = append(out, Vulnerability{
			ID:             v.ID,
			CVE:            v.CVEID,
			Description:    v.Description,
			Severity:       MapSeverity(v.Severity),
			Status:         v.Status,
			AffectedAssets: v.AffectedAssets,
			Remediation:    v.RemediationSteps,
		})
	}
	return out
}
