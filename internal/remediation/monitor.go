package remediation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"
)

var riskWeights = map[models.Severity]float64{
	models.SeverityLow:      2.5,
	models.SeverityMedium:   5,
	models.SeverityHigh:     7.5,
	models.SeverityCritical: 10,
}

// RecordSnapshot stores the engine running flag.
func (s *Service) RecordSnapshot(ctx context.Context, running bool) error {
	snap := models.AutoRemediationStatus{IsRunning: running, Timestamp: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&snap).Error; err != nil {
		return fmt.Errorf("save status snapshot: %w", err)
	}
	return nil
}

// RecordMetric derives a metric point from the current remediation table.
// RiskScore is the mean risk weight of active remediations on a 0-10 scale.
// SuccessRate is completed over finished, in percent.
func (s *Service) RecordMetric(ctx context.Context) (*models.RemediationMetric, error) {
	var rems []models.Remediation
	if err := s.db.WithContext(ctx).Find(&rems).Error; err != nil {
		return nil, fmt.Errorf("load remediations: %w", err)
	}

	m := &models.RemediationMetric{
		Timestamp:         s.now().UTC(),
		TotalRemediations: len(rems),
	}
	var riskSum, durSum float64
	for _, r := range rems {
		switch r.Status {
		case models.RemediationActive:
			m.ActiveCount++
			riskSum += riskWeights[r.RiskLevel]
		case models.RemediationCompleted:
			m.CompletedCount++
			durSum += r.LastUpdate.Sub(r.CreatedAt).Seconds()
		case models.RemediationFailed:
			m.FailedCount++
		}
	}
	if m.ActiveCount > 0 {
		m.RiskScore = round2(riskSum / float64(m.ActiveCount))
	}
	if finished := m.CompletedCount + m.FailedCount; finished > 0 {
		m.SuccessRate = round2(float64(m.CompletedCount) / float64(finished) * 100)
	}
	if m.CompletedCount > 0 {
		m.AverageTime = round2(durSum / float64(m.CompletedCount))
	}

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("save remediation metric: %w", err)
	}
	return m, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Monitor records a status snapshot and a metric point every
// MonitoringInterval. The interval is re-read from the configuration after
// each cycle so updates apply without a restart.
type Monitor struct {
	svc  *Service
	unit time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(svc *Service) *Monitor {
	return &Monitor{svc: svc, unit: time.Second}
}

// Start launches the loop. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx, m.done)
	logger.Infof("auto-remediation monitor started")
}

// Stop ends the loop and records a final not-running snapshot.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := m.svc.RecordSnapshot(ctx, false); err != nil {
		logger.Errorf("auto-remediation monitor: %v", err)
	}
	logger.Infof("auto-remediation monitor stopped")
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.cycle(ctx)
	timer := time.NewTimer(m.interval(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.cycle(ctx)
			timer.Reset(m.interval(ctx))
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	if err := m.svc.RecordSnapshot(ctx, true); err != nil && ctx.Err() == nil {
		logger.Errorf("auto-remediation monitor: %v", err)
	}
	metric, err := m.svc.RecordMetric(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Errorf("auto-remediation monitor: %v", err)
		}
		return
	}
	logger.WithField("active", metric.ActiveCount).Debugf("remediation metric recorded, risk %.2f", metric.RiskScore)
}

func (m *Monitor) interval(ctx context.Context) time.Duration {
	cfg, err := m.svc.Config(ctx)
	if err != nil || cfg.MonitoringInterval <= 0 {
		return time.Duration(DefaultConfig().MonitoringInterval) * m.unit
	}
	return time.Duration(cfg.MonitoringInterval) * m.unit
}
