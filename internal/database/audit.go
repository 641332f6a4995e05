package database

import (
	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"

	"gorm.io/gorm"
)

// CreateAuditLog writes a journal row; failures are logged, never returned.
func CreateAuditLog(db *gorm.DB, userID uint, entity, entityID, action, details string) {
	if db == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := db.Create(&record).Error; err != nil {
		logger.Warnf("failed to write audit log for %s %s: %v", entity, entityID, err)
	}
}
