package models

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ThreatStatus string

const (
	ThreatActive        ThreatStatus = "active"
	ThreatMitigated     ThreatStatus = "mitigated"
	ThreatInvestigating ThreatStatus = "investigating"
)

// Threat catalog entry. IDs are external strings ("threat-001").
type Threat struct {
	ID              string                 `gorm:"primaryKey;size:64" json:"id"`
	Type            string                 `gorm:"size:64;not null" json:"type"`
	Severity        Severity               `gorm:"type:varchar(16);not null" json:"severity"`
	Description     string                 `gorm:"type:text" json:"description"`
	AffectedSystems []string               `gorm:"serializer:json" json:"affectedSystems"`
	Status          ThreatStatus           `gorm:"type:varchar(20);not null" json:"status"`
	Details         map[string]interface{} `gorm:"serializer:json" json:"details"`
	Timestamp       time.Time              `json:"timestamp"`
}
