package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/forecast"
	"github.com/smartcity/traffic/internal/forest"
	"github.com/smartcity/traffic/internal/repository/postgres"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func smallForecaster() *forecast.SpeedForecaster {
	cfg := forest.DefaultConfig()
	cfg.NumTrees = 10
	return forecast.NewSpeedForecaster(nil, "speed_model", cfg, nopLogger())
}

// seedHourly stores one observation per segment per hour for the given span ending at end
func seedHourly(t *testing.T, repo *postgres.MockRepository, end time.Time, hours int, segments int, seed int64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	for h := hours; h >= 1; h-- {
		for s := 1; s <= segments; s++ {
			require.NoError(t, repo.SaveObservation(context.Background(), domain.Observation{
				RoadSegmentID: int64(s),
				Timestamp:     end.Add(-time.Duration(h) * time.Hour),
				AverageSpeed:  40 + rng.NormFloat64()*3,
				VehicleCount:  30 + rng.Intn(8),
			}))
		}
	}
}

type recordingPublisher struct {
	mu        sync.Mutex
	jobs      []domain.TrainingJob
	anomalies [][]domain.Anomaly
}

func (p *recordingPublisher) TrainingFinished(_ context.Context, job domain.TrainingJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) AnomaliesDetected(_ context.Context, a []domain.Anomaly) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(a) > 0 {
		p.anomalies = append(p.anomalies, a)
	}
	return nil
}

func (p *recordingPublisher) Close() {}

// brokenRepo fails every call
type brokenRepo struct{}

var errStorage = errors.New("connection refused")

func (brokenRepo) ObservationsBetween(context.Context, time.Time, time.Time) ([]domain.Observation, error) {
	return nil, errStorage
}

func (brokenRepo) SegmentHistory(context.Context, int64, time.Time) ([]domain.Observation, error) {
	return nil, errStorage
}

func (brokenRepo) SaveObservation(context.Context, domain.Observation) error { return errStorage }

func (brokenRepo) Health(context.Context) error { return errStorage }

// countingRepo counts SegmentHistory calls
type countingRepo struct {
	*postgres.MockRepository
	mu    sync.Mutex
	calls int
}

func (r *countingRepo) SegmentHistory(ctx context.Context, id int64, since time.Time) ([]domain.Observation, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.MockRepository.SegmentHistory(ctx, id, since)
}
