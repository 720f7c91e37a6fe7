// Package events notifies the platform about training runs and anomaly batches.
package events

import (
	"context"

	"github.com/smartcity/traffic/internal/domain"
)

// Subject suffixes appended to the configured prefix
const (
	SubjectTrainingFinished = "model.training.finished"
	SubjectAnomaliesFound   = "anomalies.detected"
)

// Publisher delivers engine events
type Publisher interface {
	TrainingFinished(ctx context.Context, job domain.TrainingJob) error
	AnomaliesDetected(ctx context.Context, anomalies []domain.Anomaly) error
	Close()
}

// Noop discards events; used when no broker is configured
type Noop struct{}

func (Noop) TrainingFinished(context.Context, domain.TrainingJob) error { return nil }

func (Noop) AnomaliesDetected(context.Context, []domain.Anomaly) error { return nil }

func (Noop) Close() {}
