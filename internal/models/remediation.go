package models

import "time"

type RemediationState string

const (
	RemediationActive    RemediationState = "active"
	RemediationCompleted RemediationState = "completed"
	RemediationFailed    RemediationState = "failed"
)

func (s RemediationState) Valid() bool {
	switch s {
	case RemediationActive, RemediationCompleted, RemediationFailed:
		return true
	}
	return false
}

// Remediation is a tracked fix action. ThreatID is informal, no FK.
type Remediation struct {
	ID              string                 `gorm:"primaryKey;size:64" json:"id"`
	ThreatID        string                 `gorm:"size:64;index" json:"threatId"`
	Title           string                 `gorm:"size:255" json:"title"`
	Status          RemediationState       `gorm:"type:varchar(16);index;not null" json:"status"`
	Details         map[string]interface{} `gorm:"serializer:json" json:"details"`
	AffectedSystems int                    `json:"affectedSystems"`
	RiskLevel       Severity               `gorm:"type:varchar(16)" json:"riskLevel"`
	CreatedAt       time.Time              `json:"timestamp"`
	LastUpdate      time.Time              `json:"lastUpdate"`
}

type RemediationConfig struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	SafeImpactThreshold float64   `json:"safeImpactThreshold"`
	MaxAffectedSystems  int       `json:"maxAffectedSystems"`
	RiskThreshold       float64   `json:"riskThreshold"`
	SystemicThreshold   float64   `json:"systemicThreshold"`
	MonitoringInterval  int       `json:"monitoringInterval"` // seconds
	Timestamp           time.Time `gorm:"index" json:"timestamp"`
}

// AutoRemediationStatus is a point-in-time snapshot of the engine state.
type AutoRemediationStatus struct {
	ID        uint      `gorm:"primaryKey"`
	IsRunning bool      `gorm:"not null"`
	Timestamp time.Time `gorm:"index"`
}

type RemediationMetric struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	Timestamp         time.Time `gorm:"index" json:"timestamp"`
	ActiveCount       int       `json:"activeCount"`
	CompletedCount    int       `json:"completedCount"`
	FailedCount       int       `json:"failedCount"`
	RiskScore         float64   `json:"riskScore"`
	SuccessRate       float64   `json:"successRate"`
	TotalRemediations int       `json:"totalRemediations"`
	AverageTime       float64   `json:"averageTime"` // seconds
}

type Incident struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	Severity      Severity  `gorm:"type:varchar(16)" json:"severity"`
	Status        string    `gorm:"size:16" json:"status"` // open / closed
	Type          string    `gorm:"size:64" json:"type"`
	RemediationID string    `gorm:"size:64;index" json:"remediationId"`
}
