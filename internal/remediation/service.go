// Package remediation runs the auto-remediation engine: tracked fix actions
// against catalogued threats, engine configuration and health metrics.
package remediation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctem-enterprise/internal/eventbus"
	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrThreatNotFound      = errors.New("threat not found")
	ErrRemediationNotFound = errors.New("remediation not found")
	ErrInvalidStatus       = errors.New("invalid remediation status")
)

// ValidationError reports a rejected configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DefaultConfig is served until a configuration row exists.
func DefaultConfig() models.RemediationConfig {
	return models.RemediationConfig{
		SafeImpactThreshold: 0.5,
		MaxAffectedSystems:  10,
		RiskThreshold:       0.7,
		SystemicThreshold:   0.8,
		MonitoringInterval:  300,
	}
}

type Status struct {
	IsRunning             bool                     `json:"isRunning"`
	ActiveRemediations    int64                    `json:"activeRemediations"`
	CompletedRemediations int64                    `json:"completedRemediations"`
	FailedRemediations    int64                    `json:"failedRemediations"`
	LastUpdate            time.Time                `json:"lastUpdate"`
	Config                models.RemediationConfig `json:"config"`
}

type Service struct {
	db  *gorm.DB
	bus eventbus.Publisher
	now func() time.Time
}

func NewService(db *gorm.DB, bus eventbus.Publisher) *Service {
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{db: db, bus: bus, now: time.Now}
}

func (s *Service) Status(ctx context.Context) (*Status, error) {
	db := s.db.WithContext(ctx)

	var snap models.AutoRemediationStatus
	err := db.Order("timestamp desc").Order("id desc").First(&snap).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load status snapshot: %w", err)
	}
	found := err == nil

	counts, err := s.countByStatus(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		IsRunning:             found && snap.IsRunning,
		ActiveRemediations:    counts[models.RemediationActive],
		CompletedRemediations: counts[models.RemediationCompleted],
		FailedRemediations:    counts[models.RemediationFailed],
		LastUpdate:            s.now().UTC(),
		Config:                cfg,
	}
	if found {
		st.LastUpdate = snap.Timestamp
	}
	return st, nil
}

func (s *Service) countByStatus(ctx context.Context) (map[models.RemediationState]int64, error) {
	var rows []struct {
		Status models.RemediationState
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Remediation{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count remediations: %w", err)
	}

	out := make(map[models.RemediationState]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// Config returns the newest configuration row, or DefaultConfig.
func (s *Service) Config(ctx context.Context) (models.RemediationConfig, error) {
	var cfg models.RemediationConfig
	err := s.db.WithContext(ctx).Order("timestamp desc").Order("id desc").First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return models.RemediationConfig{}, fmt.Errorf("load remediation config: %w", err)
	}
	return cfg, nil
}

// Metrics returns up to limit points, newest first.
func (s *Service) Metrics(ctx context.Context, limit int) ([]models.RemediationMetric, error) {
	if limit <= 0 {
		limit = 30
	}
	var out []models.RemediationMetric
	err := s.db.WithContext(ctx).Order("timestamp desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load remediation metrics: %w", err)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]models.Remediation, error) {
	var out []models.Remediation
	if err := s.db.WithContext(ctx).Order("last_update desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list remediations: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Remediation, error) {
	var r models.Remediation
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRemediationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load remediation %s: %w", id, err)
	}
	return &r, nil
}

func actionFor(threatType string) string {
	switch threatType {
	case "ransomware":
		return "isolate_systems"
	case "data_exfiltration":
		return "block_traffic"
	default:
		return "investigate"
	}
}

// Execute opens an active remediation for a catalogued threat.
func (s *Service) Execute(ctx context.Context, threatID string) (*models.Remediation, error) {
	var threat models.Threat
	err := s.db.WithContext(ctx).First(&threat, "id = ?", threatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrThreatNotFound, threatID)
	}
	if err != nil {
		return nil, fmt.Errorf("load threat %s: %w", threatID, err)
	}

	action := actionFor(threat.Type)
	now := s.now().UTC()
	rem := &models.Remediation{
		ID:       "rem-" + uuid.NewString(),
		ThreatID: threat.ID,
		Title:    fmt.Sprintf("%s: %s", action, threat.Type),
		Status:   models.RemediationActive,
		Details: map[string]interface{}{
			"action":   action,
			"progress": 0,
		},
		AffectedSystems: len(threat.AffectedSystems),
		RiskLevel:       threat.Severity,
		CreatedAt:       now,
		LastUpdate:      now,
	}
	if err := s.db.WithContext(ctx).Create(rem).Error; err != nil {
		return nil, fmt.Errorf("create remediation: %w", err)
	}

	logger.WithField("remediation", rem.ID).Infof("remediation started for %s (%s)", threat.ID, action)
	s.publish(eventbus.SubjectRemediationStarted, rem)
	return rem, nil
}

// UpdateStatus moves a remediation to status and merges details into its
// blob. A failed remediation opens an incident in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.RemediationState, details map[string]interface{}) (*models.Remediation, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var rem models.Remediation
	var incident *models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rem, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRemediationNotFound
			}
			return err
		}

		if rem.Details == nil {
			rem.Details = map[string]interface{}{}
		}
		for k, v := range details {
			rem.Details[k] = v
		}
		rem.Status = status
		rem.LastUpdate = s.now().UTC()
		if err := tx.Save(&rem).Error; err != nil {
			return err
		}

		if status != models.RemediationFailed {
			return nil
		}
		incident = &models.Incident{
			Title:         "Auto-remediation failure: " + rem.Title,
			Description:   fmt.Sprintf("Auto-remediation action failed.\nRemediation ID: %s\nDetails: %s", rem.ID, detailsJSON(details)),
			Severity:      models.SeverityHigh,
			Status:        "open",
			Type:          "auto_remediation_failure",
			RemediationID: rem.ID,
		}
		return tx.Create(incident).Error
	})
	if errors.Is(err, ErrRemediationNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRemediationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update remediation %s: %w", id, err)
	}

	s.publish(eventbus.SubjectRemediationStatus, &rem)
	if incident != nil {
		logger.WithField("remediation", rem.ID).Warnf("remediation failed, incident %d opened", incident.ID)
		s.publish(eventbus.SubjectIncidentOpened, incident)
	}
	return &rem, nil
}

// detailsJSON renders a details blob for humans; nil renders as "null".
func detailsJSON(details map[string]interface{}) string {
	b, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return fmt.Sprint(details)
	}
	return string(b)
}

func validateConfig(cfg models.RemediationConfig) error {
	thresholds := []struct {
		name string
		v    float64
	}{
		{"safeImpactThreshold", cfg.SafeImpactThreshold},
		{"riskThreshold", cfg.RiskThreshold},
		{"systemicThreshold", cfg.SystemicThreshold},
	}
	for _, th := range thresholds {
		if th.v < 0 || th.v > 1 {
			return &ValidationError{Field: th.name, Reason: "must be between 0 and 1"}
		}
	}
	if cfg.MaxAffectedSystems < 1 {
		return &ValidationError{Field: "maxAffectedSystems", Reason: "must be at least 1"}
	}
	if cfg.MonitoringInterval < 60 {
		return &ValidationError{Field: "monitoringInterval", Reason: "must be at least 60 seconds"}
	}
	return nil
}

// UpdateConfig stores cfg as the newest configuration. History is kept.
func (s *Service) UpdateConfig(ctx context.Context, cfg models.RemediationConfig) (*models.RemediationConfig, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.ID = 0
	cfg.Timestamp = s.now().UTC()
	if err := s.db.WithContext(ctx).Create(&cfg).Error; err != nil {
		return nil, fmt.Errorf("save remediation config: %w", err)
	}
	return &cfg, nil
}

func (s *Service) publish(subject string, payload interface{}) {
	if err := s.bus.Publish(subject, payload); err != nil {
		logger.Warnf("event %s not published: %v", subject, err)
	}
}
