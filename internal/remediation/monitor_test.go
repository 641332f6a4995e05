package remediation

import (
	"context"
	"testing"
	"time"

	"ctem-enterprise/internal/models"
	"ctem-enterprise/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMetric(t *testing.T) {
	svc := NewService(testutil.NewDB(t), nil)
	created := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	rems := []models.Remediation{
		{ID: "a", Status: models.RemediationActive, RiskLevel: models.SeverityCritical, CreatedAt: created, LastUpdate: created},
		{ID: "b", Status: models.RemediationActive, RiskLevel: models.SeverityMedium, CreatedAt: created, LastUpdate: created},
		{ID: "c", Status: models.RemediationCompleted, CreatedAt: created, LastUpdate: created.Add(2 * time.Minute)},
		{ID: "d", Status: models.RemediationCompleted, CreatedAt: created, LastUpdate: created.Add(4 * time.Minute)},
		{ID: "e", Status: models.RemediationFailed, CreatedAt: created, LastUpdate: created},
	}
	require.NoError(t, svc.db.Create(&rems).Error)

	m, err := svc.RecordMetric(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.ActiveCount)
	assert.Equal(t, 2, m.CompletedCount)
	assert.Equal(t, 1, m.FailedCount)
	assert.Equal(t, 5, m.TotalRemediations)
	assert.Equal(t, 7.5, m.RiskScore)
	assert.Equal(t, 66.67, m.SuccessRate)
	assert.Equal(t, 180.0, m.AverageTime)

	points, err := svc.Metrics(context.Background(), 30)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestMonitorRecordsAndStops(t *testing.T) {
	svc := NewService(testutil.NewSeededDB(t), nil)
	mon := NewMonitor(svc)
	mon.unit = time.Millisecond // seeded interval 300 -> 300ms

	mon.Start(context.Background())
	mon.Start(context.Background()) // no-op

	require.Eventually(t, func() bool {
		var n int64
		svc.db.Model(&models.RemediationMetric{}).Count(&n)
		return n >= 5 // 3 seeded + at least two cycles
	}, 3*time.Second, 20*time.Millisecond)

	mon.Stop()
	mon.Stop() // no-op

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.IsRunning)
}
