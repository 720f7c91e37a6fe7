package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/forecast"
)

const (
	DefaultHorizonHours = 4
	// DefaultSegmentID is used when a request names no segment
	DefaultSegmentID int64 = 1
)

// ForecastOptions tunes history loading and request bounds
type ForecastOptions struct {
	HistoryDays int
	CacheSize   int
	CacheTTL    time.Duration
	MaxHorizon  int
}

// ForecastService produces hourly speed and congestion forecasts
type ForecastService struct {
	forecaster *forecast.SpeedForecaster
	repo       ObservationRepository
	history    *expirable.LRU[int64, []domain.Observation]
	opts       ForecastOptions
	now        clock
	logger     *zap.SugaredLogger
}

// NewForecastService creates a forecast service backed by repo
func NewForecastService(
	forecaster *forecast.SpeedForecaster,
	repo ObservationRepository,
	opts ForecastOptions,
	logger *zap.SugaredLogger,
) *ForecastService {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 30
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.MaxHorizon <= 0 {
		opts.MaxHorizon = 24
	}
	return &ForecastService{
		forecaster: forecaster,
		repo:       repo,
		history:    expirable.NewLRU[int64, []domain.Observation](opts.CacheSize, nil, opts.CacheTTL),
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// Forecast predicts one value per hour starting at the requested time
func (s *ForecastService) Forecast(ctx context.Context, req domain.ForecastRequest) ([]domain.Forecast, error) {
	horizon := req.HorizonHours
	if horizon == 0 {
		horizon = DefaultHorizonHours
	}
	if horizon < 1 || horizon > s.opts.MaxHorizon {
		return nil, fmt.Errorf("service: %w: horizon_hours must be between 1 and %d, got %d",
			domain.ErrInvalidInput, s.opts.MaxHorizon, req.HorizonHours)
	}

	start := s.now()
	if req.PredictionTime != nil {
		start = *req.PredictionTime
	}

	segmentID := DefaultSegmentID
	var history []domain.Observation
	if req.RoadSegmentID != nil {
		segmentID = *req.RoadSegmentID
		h, err := s.segmentHistory(ctx, segmentID)
		if err != nil {
			return nil, err
		}
		history = h
	}

	forecasts := make([]domain.Forecast, 0, horizon)
	for i := 0; i < horizon; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		p, err := s.forecaster.Predict(ts, segmentID, history)
		if err != nil {
			return nil, fmt.Errorf("service: failed to forecast segment %d: %w", segmentID, err)
		}
		forecasts = append(forecasts, domain.Forecast{
			Time:            ts,
			PredictedSpeed:  p.Speed,
			Confidence:      p.Confidence,
			CongestionState: forecast.Classify(p.Speed),
			LowerBound:      p.LowerBound,
			UpperBound:      p.UpperBound,
			IsBaseline:      p.IsBaseline,
		})
	}
	return forecasts, nil
}

// CongestionOutlook is the congestion-only view of Forecast
func (s *ForecastService) CongestionOutlook(ctx context.Context, req domain.ForecastRequest) ([]domain.CongestionOutlook, error) {
	forecasts, err := s.Forecast(ctx, req)
	if err != nil {
		return nil, err
	}
	outlook := make([]domain.CongestionOutlook, len(forecasts))
	for i, f := range forecasts {
		outlook[i] = domain.CongestionOutlook{
			Time:            f.Time,
			CongestionState: f.CongestionState,
			Confidence:      f.Confidence,
			PredictedSpeed:  f.PredictedSpeed,
			IsBaseline:      f.IsBaseline,
		}
	}
	return outlook, nil
}

// InvalidateHistory drops cached history, e.g. after new observations were ingested
func (s *ForecastService) InvalidateHistory() {
	s.history.Purge()
}

func (s *ForecastService) segmentHistory(ctx context.Context, segmentID int64) ([]domain.Observation, error) {
	if h, ok := s.history.Get(segmentID); ok {
		return h, nil
	}
	since := s.now().AddDate(0, 0, -s.opts.HistoryDays)
	h, err := s.repo.SegmentHistory(ctx, segmentID, since)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load history for segment %d: %w", segmentID, err)
	}
	s.history.Add(segmentID, h)
	s.logger.Debugw("loaded segment history", "segment", segmentID, "observations", len(h))
	return h, nil
}
