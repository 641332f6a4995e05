package models

import "time"

const MetricUserBehavior = "user_behavior"

// SecurityMetric is a generic time-series sample per category.
type SecurityMetric struct {
	ID        uint                   `gorm:"primaryKey" json:"id"`
	Category  string                 `gorm:"size:64;index;not null" json:"category"`
	Name      string                 `gorm:"size:128" json:"name"`
	Value     float64                `json:"value"`
	Details   map[string]interface{} `gorm:"serializer:json" json:"details,omitempty"`
	Timestamp time.Time              `gorm:"index" json:"timestamp"`
}
