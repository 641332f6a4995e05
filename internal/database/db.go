package database

import (
	"fmt"
	"time"

	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"

	"github.com/cenkalti/backoff"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init connects to postgres, migrates the schema and seeds demo data.
func Init(dsn string, admin AdminSeed) error {
	db, err := Connect(postgres.Open(dsn), 2*time.Minute)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	if err := Seed(db, admin); err != nil {
		return err
	}
	DB = db
	return nil
}

// Connect opens the dialector, retrying with exponential backoff until
// maxElapsed passes.
func Connect(dialector gorm.Dialector, maxElapsed time.Duration) (*gorm.DB, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 15 * time.Second
	bo.MaxElapsedTime = maxElapsed

	var db *gorm.DB
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		logger.Infof("trying to connect to DB (attempt %d)...", attempt)

		var err error
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}, bo, func(err error, wait time.Duration) {
		logger.Warnf("failed to connect to DB: %v (retry in %s)", err, wait)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db after %d attempts: %w", attempt, err)
	}

	logger.Infof("connected to DB successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.Threat{},
		&models.Asset{},
		&models.Vulnerability{},
		&models.Remediation{},
		&models.RemediationConfig{},
		&models.AutoRemediationStatus{},
		&models.RemediationMetric{},
		&models.Incident{},
		&models.SecurityMetric{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
