package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID uint `json:"userId"`
	User   User `json:"user"`

	Entity   string `gorm:"size:50;not null" json:"entity"` // "remediation", "remediation_config"
	EntityID string `gorm:"size:64" json:"entityId"`
	Action   string `gorm:"size:50;not null" json:"action"` // "execute", "status_change", ...
	Details  string `gorm:"type:text" json:"details"`
}
