package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/anomaly"
	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/forecast"
)

const healthTimeout = 2 * time.Second

// StatsService aggregates the state of all models
type StatsService struct {
	forecaster *forecast.SpeedForecaster
	detector   *anomaly.Detector
	routes     *RouteService
	repo       ObservationRepository
	now        clock
	logger     *zap.SugaredLogger
}

// NewStatsService creates a new stats service
func NewStatsService(
	forecaster *forecast.SpeedForecaster,
	detector *anomaly.Detector,
	routes *RouteService,
	repo ObservationRepository,
	logger *zap.SugaredLogger,
) *StatsService {
	return &StatsService{
		forecaster: forecaster,
		detector:   detector,
		routes:     routes,
		repo:       repo,
		now:        time.Now,
		logger:     logger,
	}
}

// ModelStats reports every model plus storage health. Storage failures are
// logged and reported, never returned.
func (s *StatsService) ModelStats(ctx context.Context) domain.EngineStats {
	speed := s.forecaster.Stats()
	speedStatus := "not_trained"
	if speed.SpeedModelLoaded {
		speedStatus = "active"
	}

	cfg := s.detector.Config()

	healthCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	healthy := true
	if err := s.repo.Health(healthCtx); err != nil {
		s.logger.Warnw("storage health check failed", "error", err)
		healthy = false
	}

	return domain.EngineStats{
		SpeedPrediction: domain.SpeedModelStatus{Status: speedStatus, ModelStats: speed},
		AnomalyDetection: domain.DetectorStatus{
			Status:        "active",
			Type:          "isolation_forest",
			Contamination: cfg.Contamination,
			Trees:         cfg.NumTrees,
			MinBaseline:   anomaly.MinBaseline,
		},
		RouteRecommendation: s.routes.Status(),
		StorageHealthy:      healthy,
		ServerTime:          s.now(),
	}
}

// Health checks storage connectivity
func (s *StatsService) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return s.repo.Health(healthCtx)
}
