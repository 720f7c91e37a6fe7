package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/traffic/internal/anomaly"
	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/isolation"
	"github.com/smartcity/traffic/internal/repository/postgres"
)

func newAnomalyService(repo ObservationRepository, pub *recordingPublisher) *AnomalyService {
	svc := NewAnomalyService(anomaly.NewDetector(isolation.DefaultConfig(), nopLogger()), repo, pub, nopLogger())
	svc.now = fixedClock
	return svc
}

func anomalyRepo(t *testing.T) *postgres.MockRepository {
	t.Helper()
	repo := postgres.NewMockRepository()
	seedHourly(t, repo, now.Add(-24*time.Hour), 200, 1, 7)

	ctx := context.Background()
	require.NoError(t, repo.SaveObservation(ctx, domain.Observation{
		RoadSegmentID: 9, Timestamp: now.Add(-2 * time.Hour), AverageSpeed: 4, VehicleCount: 31,
	}))
	require.NoError(t, repo.SaveObservation(ctx, domain.Observation{
		RoadSegmentID: 3, Timestamp: now.Add(-time.Hour), AverageSpeed: 39, VehicleCount: 180,
	}))
	require.NoError(t, repo.SaveObservation(ctx, domain.Observation{
		RoadSegmentID: 1, Timestamp: now.Add(-time.Hour), AverageSpeed: 40, VehicleCount: 33,
	}))
	return repo
}

func TestAnomalyService_Detect(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newAnomalyService(anomalyRepo(t), pub)

	got, err := svc.Detect(context.Background(), 0, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(9), got[0].RoadSegmentID)
	assert.Equal(t, domain.AnomalySevereSlowdown, got[0].AnomalyType)
	assert.Equal(t, int64(3), got[1].RoadSegmentID)
	assert.Equal(t, domain.AnomalyHighVolume, got[1].AnomalyType)

	require.Len(t, pub.anomalies, 1)
	assert.Len(t, pub.anomalies[0], 2)
}

func TestAnomalyService_SeverityFilter(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newAnomalyService(anomalyRepo(t), pub)

	got, err := svc.Detect(context.Background(), 24, domain.SeverityHigh)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].RoadSegmentID)

	// the event carries the unfiltered batch
	require.Len(t, pub.anomalies, 1)
	assert.Len(t, pub.anomalies[0], 2)
}

func TestAnomalyService_Validation(t *testing.T) {
	svc := newAnomalyService(postgres.NewMockRepository(), &recordingPublisher{})

	tests := []struct {
		name     string
		hours    int
		severity domain.Severity
	}{
		{"hours above week", 169, ""},
		{"negative hours", -1, ""},
		{"unknown severity", 24, "catastrophic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Detect(context.Background(), tt.hours, tt.severity)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestAnomalyService_EmptyWindow(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newAnomalyService(postgres.NewMockRepository(), pub)

	got, err := svc.Detect(context.Background(), 24, "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, pub.anomalies)
}

func TestAnomalyService_InsufficientBaseline(t *testing.T) {
	repo := postgres.NewMockRepository()
	require.NoError(t, repo.SaveObservation(context.Background(), domain.Observation{
		RoadSegmentID: 1, Timestamp: now.Add(-time.Hour), AverageSpeed: 3, VehicleCount: 10,
	}))
	svc := newAnomalyService(repo, &recordingPublisher{})

	_, err := svc.Detect(context.Background(), 24, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientBaseline)
}

func TestAnomalyService_StorageError(t *testing.T) {
	svc := newAnomalyService(brokenRepo{}, &recordingPublisher{})
	_, err := svc.Detect(context.Background(), 24, "")
	assert.ErrorIs(t, err, errStorage)
}
