package dashboard

// Attack narrative records are served as-is; they are already in UI shape.

type AttackNarrativeStep struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Target      string   `json:"target"`
	ThreatActor string   `json:"threatActor"`
	Technique   string   `json:"technique"`
	Details     string   `json:"details"`
	Indicators  []string `json:"indicators"`
	Mitigation  string   `json:"mitigation"`
}

type ThreatActor struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Sophistication       int      `json:"sophistication"`
	Motivation           []string `json:"motivation"`
	RecentTargets        []string `json:"recentTargets"`
	AssociatedTechniques []string `json:"associatedTechniques"`
}

type AttackTechnique struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MitreTactic string   `json:"mitreTactic"`
	Severity    string   `json:"severity"`
	UsedBy      []string `json:"usedBy"`
}

type AttackData struct {
	Steps            []AttackNarrativeStep `json:"steps"`
	ThreatActors     []ThreatActor         `json:"threatActors"`
	AttackTechniques []AttackTechnique     `json:"attackTechniques"`
}

func (p *Provider) AttackData() AttackData {
	return AttackData{
		Steps: []AttackNarrativeStep{
			{
				ID:          1,
				Name:        "Initial Access",
				Description: "Phishing email compromises user credentials",
				Type:        "Initial Access",
				Target:      "User Workstation",
				ThreatActor: "BlackBasta",
				Technique:   "T1566 - Phishing",
				Details:     "Sophisticated phishing campaign targeting specific employees",
				Indicators:  []string{"Suspicious email patterns", "Unusual login attempts"},
				Mitigation:  "Enhanced email filtering and security awareness training",
			},
		},
		ThreatActors: []ThreatActor{
			{
				ID:                   "TA001",
				Name:                 "BlackBasta",
				Type:                 "Ransomware Group",
				Sophistication:       85,
				Motivation:           []string{"Financial gain", "Data theft"},
				RecentTargets:        []string{"Manufacturing", "Healthcare", "Technology"},
				AssociatedTechniques: []string{"T1566", "T1078", "T1048"},
			},
		},
		AttackTechniques: []AttackTechnique{
			{
				ID:          "T1566",
				Name:        "Phishing",
				Description: "Adversaries may send phishing messages to gain access to victim systems",
				MitreTactic: "Initial Access",
				Severity:    "High",
				UsedBy:      []string{"BlackBasta", "LockBit"},
			},
		},
	}
}
