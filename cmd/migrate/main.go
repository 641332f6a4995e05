// Command migrate applies the schema and seeds demo data, then exits.
package main

import (
	"flag"
	"log"
	"time"

	"ctem-enterprise/internal/config"
	"ctem-enterprise/internal/database"
	"ctem-enterprise/internal/logger"

	"gorm.io/driver/postgres"
)

func main() {
	seed := flag.Bool("seed", true, "seed demo data into empty tables")
	flag.Parse()

	cfg := config.Load()
	if _, err := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatalf("logger init: %v", err)
	}

	db, err := database.Connect(postgres.Open(cfg.DBDSN), time.Minute)
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	logger.Infof("schema migrated")

	if *seed {
		admin := database.AdminSeed{Username: cfg.AdminUsername, Password: cfg.AdminPassword}
		if err := database.Seed(db, admin); err != nil {
			logger.Fatalf("seed: %v", err)
		}
		logger.Infof("seed complete")
	}
}
