package database

import (
	"fmt"
	"time"

	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AdminSeed struct {
	Username string
	Password string
}

// Seed fills empty tables with demo data. Tables that already have rows are
// left alone, so it is safe to run on every start.
func Seed(db *gorm.DB, admin AdminSeed) error {
	steps := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"users", func(db *gorm.DB) error { return seedUsers(db, admin) }},
		{"threats", seedThreats},
		{"assets", seedAssets},
		{"remediations", seedRemediations},
		{"remediation metrics", seedRemediationMetrics},
		{"remediation status", seedRemediationStatus},
		{"remediation config", seedRemediationConfig},
		{"security metrics", seedSecurityMetrics},
	}

	for _, s := range steps {
		if err := s.fn(db); err != nil {
			return fmt.Errorf("seed %s: %w", s.name, err)
		}
	}
	return nil
}

func empty(db *gorm.DB, model interface{}) (bool, error) {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

func seedUsers(db *gorm.DB, admin AdminSeed) error {
	if admin.Username == "" {
		admin.Username = "admin@ctem.local"
	}
	if admin.Password == "" {
		admin.Password = "Admin123!"
	}

	users := []struct {
		Username string
		Password string
		Name     string
		Role     models.UserRole
	}{
		{admin.Username, admin.Password, "Admin User", models.RoleAdmin},
		{"eng@ctem.local", "Eng123!", "Remediation Engineer", models.RoleEngineer},
		{"analyst@ctem.local", "Analyst123!", "SOC Analyst", models.RoleAnalyst},
	}

	for _, u := range users {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", u.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		user := models.User{
			Username:     u.Username,
			Name:         u.Name,
			Department:   "Security",
			PasswordHash: string(hash),
			Role:         u.Role,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		logger.Infof("created seed user: %s (role=%s)", u.Username, u.Role)
	}
	return nil
}

func seedThreats(db *gorm.DB) error {
	ok, err := empty(db, &models.Threat{})
	if err != nil || !ok {
		return err
	}

	now := time.Now().UTC()
	threats := []models.Threat{
		{
			ID:              "threat-001",
			Type:            "ransomware",
			Severity:        models.SeverityCritical,
			Description:     "Potential ransomware activity detected in marketing department",
			AffectedSystems: []string{"MKTG-001", "MKTG-002"},
			Status:          models.ThreatActive,
			Details: map[string]interface{}{
				"indicators": []string{"encrypted files", "suspicious network traffic"},
				"location":   "marketing-subnet",
			},
			Timestamp: now,
		},
		{
			ID:              "threat-002",
			Type:            "data_exfiltration",
			Severity:        models.SeverityHigh,
			Description:     "Unusual data transfer patterns detected",
			AffectedSystems: []string{"HR-001"},
			Status:          models.ThreatInvestigating,
			Details: map[string]interface{}{
				"dataType": "employee records",
				"volume":   "2.3GB",
			},
			Timestamp: now,
		},
		{
			ID:              "threat-003",
			Type:            "phishing",
			Severity:        models.SeverityMedium,
			Description:     "Credential phishing campaign targeting finance mailboxes",
			AffectedSystems: []string{"FIN-004", "FIN-007", "FIN-011"},
			Status:          models.ThreatActive,
			Details: map[string]interface{}{
				"technique": "T1566",
				"sender":    "invoices@payrol1.example",
			},
			Timestamp: now,
		},
	}
	return db.Create(&threats).Error
}

func seedAssets(db *gorm.DB) error {
	ok, err := empty(db, &models.Asset{})
	if err != nil || !ok {
		return err
	}

	assets := []models.Asset{
		{Name: "Web Server", Hostname: "web-01", AssetType: models.AssetServer, Criticality: 9, Exposed: true},
		{Name: "Database Server", Hostname: "db-01", AssetType: models.AssetServer, Criticality: 10},
		{Name: "Marketing Workstation", Hostname: "mktg-001", AssetType: models.AssetWorkstation, Criticality: 4},
		{Name: "Edge Router", Hostname: "rtr-edge-01", AssetType: models.AssetNetwork, Criticality: 8, Exposed: true},
	}
	if err := db.Create(&assets).Error; err != nil {
		return err
	}

	score := func(v float64) *float64 { return &v }
	vulns := []models.Vulnerability{
		{
			CVEID:       "CVE-2023-1234",
			Title:       "SQL Injection",
			Description: "SQL injection vulnerability in login form",
			CVSSScore:   score(8.5),
			Status:      "open",
			AssetID:     assets[0].ID,
		},
		{
			CVEID:       "CVE-2021-44228",
			Title:       "Apache Log4j2 JNDI RCE",
			Description: "Remote code execution through JNDI lookups in log messages",
			CVSSVector:  "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H",
			Status:      "open",
			AssetID:     assets[1].ID,
		},
		{
			CVEID:       "CVE-2023-4863",
			Title:       "libwebp heap buffer overflow",
			Description: "Heap overflow in WebP decoding reachable from crafted images",
			CVSSScore:   score(8.8),
			Status:      "open",
			AssetID:     assets[2].ID,
		},
		{
			CVEID:       "CVE-2018-0171",
			Title:       "Smart Install remote code execution",
			Description: "Unauthenticated RCE via Smart Install protocol",
			Status:      "open",
			AssetID:     assets[3].ID,
		},
	}
	return db.Create(&vulns).Error
}

func seedRemediations(db *gorm.DB) error {
	ok, err := empty(db, &models.Remediation{})
	if err != nil || !ok {
		return err
	}

	dec30 := time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC)
	dec29 := time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC)
	rems := []models.Remediation{
		{
			ID:         "1",
			ThreatID:   "threat-003",
			Title:      "Patch mail gateway",
			Status:     models.RemediationCompleted,
			Details:    map[string]interface{}{"type": "patch", "severity": "high"},
			RiskLevel:  models.SeverityHigh,
			CreatedAt:  dec29,
			LastUpdate: dec30,
		},
		{
			ID:         "2",
			ThreatID:   "threat-002",
			Title:      "Harden HR file share",
			Status:     models.RemediationActive,
			Details:    map[string]interface{}{"type": "configuration", "severity": "medium"},
			RiskLevel:  models.SeverityMedium,
			CreatedAt:  dec29,
			LastUpdate: dec30,
		},
		{
			ID:         "3",
			ThreatID:   "threat-001",
			Title:      "Block C2 egress",
			Status:     models.RemediationFailed,
			Details:    map[string]interface{}{"type": "firewall", "severity": "critical"},
			RiskLevel:  models.SeverityCritical,
			CreatedAt:  dec29,
			LastUpdate: dec29,
		},
		{
			ID:              "rem-001",
			ThreatID:        "threat-001",
			Title:           "isolate_systems: ransomware",
			Status:          models.RemediationActive,
			Details:         map[string]interface{}{"action": "isolate_systems", "progress": 0.6},
			AffectedSystems: 2,
			RiskLevel:       models.SeverityCritical,
			CreatedAt:       time.Now().UTC(),
			LastUpdate:      time.Now().UTC(),
		},
	}
	return db.Create(&rems).Error
}

func seedRemediationMetrics(db *gorm.DB) error {
	ok, err := empty(db, &models.RemediationMetric{})
	if err != nil || !ok {
		return err
	}

	points := []models.RemediationMetric{
		{Timestamp: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), SuccessRate: 95, TotalRemediations: 100, AverageTime: 120},
		{Timestamp: time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC), SuccessRate: 97, TotalRemediations: 150, AverageTime: 110},
		{Timestamp: time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), SuccessRate: 98, TotalRemediations: 200, AverageTime: 100},
	}
	return db.Create(&points).Error
}

func seedRemediationStatus(db *gorm.DB) error {
	ok, err := empty(db, &models.AutoRemediationStatus{})
	if err != nil || !ok {
		return err
	}
	return db.Create(&models.AutoRemediationStatus{IsRunning: true, Timestamp: time.Now().UTC()}).Error
}

func seedRemediationConfig(db *gorm.DB) error {
	ok, err := empty(db, &models.RemediationConfig{})
	if err != nil || !ok {
		return err
	}
	return db.Create(&models.RemediationConfig{
		SafeImpactThreshold: 0.5,
		MaxAffectedSystems:  10,
		RiskThreshold:       0.7,
		SystemicThreshold:   0.8,
		MonitoringInterval:  300,
		Timestamp:           time.Now().UTC(),
	}).Error
}

func seedSecurityMetrics(db *gorm.DB) error {
	ok, err := empty(db, &models.SecurityMetric{})
	if err != nil || !ok {
		return err
	}

	now := time.Now().UTC()
	values := []float64{62.5, 71.25, 68, 74.5, 66.75}
	metrics := make([]models.SecurityMetric, 0, len(values))
	for i, v := range values {
		metrics = append(metrics, models.SecurityMetric{
			Category:  models.MetricUserBehavior,
			Name:      "daily_risk",
			Value:     v,
			Timestamp: now.Add(-time.Duration(i) * 24 * time.Hour),
		})
	}
	return db.Create(&metrics).Error
}
