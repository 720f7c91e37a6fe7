// Package anomaly flags unusual (speed, vehicle count) observations against recent history.
package anomaly

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/isolation"
	"github.com/smartcity/traffic/pkg/utils"
)

// MinBaseline is the history size the detector needs to exceed before fitting
const MinBaseline = 50

// Detector fits a fresh isolation forest per call; it holds no model between calls
type Detector struct {
	cfg    isolation.Config
	logger *zap.SugaredLogger
}

// NewDetector creates a detector with the given isolation forest parameters
func NewDetector(cfg isolation.Config, logger *zap.SugaredLogger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// Config returns the isolation forest parameters
func (d *Detector) Config() isolation.Config {
	return d.cfg
}

// Detect scores current against a model fit on historical. With MinBaseline
// or fewer historical records it returns ErrInsufficientBaseline and no anomalies.
func (d *Detector) Detect(ctx context.Context, current, historical []domain.Observation) ([]domain.Anomaly, error) {
	if len(historical) <= MinBaseline {
		return nil, fmt.Errorf("anomaly: %w: have %d historical records, need more than %d",
			domain.ErrInsufficientBaseline, len(historical), MinBaseline)
	}

	points := make([][]float64, len(historical))
	for i, obs := range historical {
		points[i] = point(obs)
	}
	model, err := isolation.Fit(ctx, points, d.cfg)
	if err != nil {
		return nil, fmt.Errorf("anomaly: failed to fit baseline: %w", err)
	}

	anomalies := make([]domain.Anomaly, 0)
	for _, obs := range current {
		if err := obs.Validate(); err != nil {
			return nil, fmt.Errorf("anomaly: %w", err)
		}
		margin := model.Margin(point(obs))
		if margin <= 0 {
			continue
		}
		anomalyType, severity := Classify(obs)
		anomalies = append(anomalies, domain.Anomaly{
			RoadSegmentID: obs.RoadSegmentID,
			Timestamp:     obs.Timestamp,
			AnomalyType:   anomalyType,
			Severity:      severity,
			AnomalyScore:  utils.RoundTo(margin, 3),
			Speed:         obs.AverageSpeed,
			VehicleCount:  obs.VehicleCount,
			Description:   Describe(anomalyType, obs),
		})
	}

	d.logger.Debugw("anomaly detection finished",
		"current", len(current),
		"historical", len(historical),
		"anomalies", len(anomalies),
		"threshold", model.Threshold(),
	)
	return anomalies, nil
}

func point(obs domain.Observation) []float64 {
	return []float64{obs.AverageSpeed, float64(obs.VehicleCount)}
}

// Classify assigns a type and severity to an observation already flagged as anomalous
func Classify(obs domain.Observation) (domain.AnomalyType, domain.Severity) {
	switch {
	case obs.AverageSpeed < 10:
		return domain.AnomalySevereSlowdown, domain.SeverityCritical
	case obs.VehicleCount > 100:
		return domain.AnomalyHighVolume, domain.SeverityHigh
	default:
		return domain.AnomalyUnusualPattern, domain.SeverityMedium
	}
}

// Describe renders the operator-facing summary of an anomaly
func Describe(t domain.AnomalyType, obs domain.Observation) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	desc := strings.Join(words, " ") + " detected"

	switch t {
	case domain.AnomalySevereSlowdown:
		desc += fmt.Sprintf(" (speed: %v km/h)", obs.AverageSpeed)
	case domain.AnomalyHighVolume:
		desc += fmt.Sprintf(" (vehicles: %d)", obs.VehicleCount)
	}
	return desc
}

// FilterBySeverity keeps anomalies of the given severity; an empty severity keeps all
func FilterBySeverity(anomalies []domain.Anomaly, severity domain.Severity) []domain.Anomaly {
	if severity == "" {
		return anomalies
	}
	out := make([]domain.Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if a.Severity == severity {
			out = append(out, a)
		}
	}
	return out
}
