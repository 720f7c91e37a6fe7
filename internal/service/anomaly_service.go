package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/anomaly"
	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/events"
)

const (
	DefaultAnomalyWindowHours = 24
	MaxAnomalyWindowHours     = 168
	// baselineDays is how far back the detector's training history reaches
	baselineDays = 30
)

// AnomalyService scores the recent window against the preceding month
type AnomalyService struct {
	detector  *anomaly.Detector
	repo      ObservationRepository
	publisher events.Publisher
	now       clock
	logger    *zap.SugaredLogger
}

// NewAnomalyService creates an anomaly service; publisher may be events.Noop
func NewAnomalyService(
	detector *anomaly.Detector,
	repo ObservationRepository,
	publisher events.Publisher,
	logger *zap.SugaredLogger,
) *AnomalyService {
	return &AnomalyService{
		detector:  detector,
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// Detect returns anomalies in the last hours, optionally filtered by severity.
// An empty window yields no anomalies; a thin baseline yields ErrInsufficientBaseline.
func (s *AnomalyService) Detect(ctx context.Context, hours int, severity domain.Severity) ([]domain.Anomaly, error) {
	if hours == 0 {
		hours = DefaultAnomalyWindowHours
	}
	if hours < 1 || hours > MaxAnomalyWindowHours {
		return nil, fmt.Errorf("service: %w: hours must be between 1 and %d, got %d",
			domain.ErrInvalidInput, MaxAnomalyWindowHours, hours)
	}
	switch severity {
	case "", domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium:
	default:
		return nil, fmt.Errorf("service: %w: unknown severity %q", domain.ErrInvalidInput, severity)
	}

	now := s.now()
	cutoff := now.Add(-time.Duration(hours) * time.Hour)

	current, err := s.repo.ObservationsBetween(ctx, cutoff, now)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load current window: %w", err)
	}
	if len(current) == 0 {
		return []domain.Anomaly{}, nil
	}

	historical, err := s.repo.ObservationsBetween(ctx, now.AddDate(0, 0, -baselineDays), cutoff)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load baseline: %w", err)
	}

	found, err := s.detector.Detect(ctx, current, historical)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	if err := s.publisher.AnomaliesDetected(ctx, found); err != nil {
		s.logger.Warnw("failed to publish anomalies", "count", len(found), "error", err)
	}

	filtered := anomaly.FilterBySeverity(found, severity)
	if filtered == nil {
		filtered = []domain.Anomaly{}
	}
	return filtered, nil
}
