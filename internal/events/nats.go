package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/smartcity/traffic/internal/domain"
)

// flushTimeout bounds a flush when the caller's context carries no deadline
const flushTimeout = 2 * time.Second

// NATSConfig holds NATS publisher configuration
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultNATSConfig returns sensible defaults
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "traffic",
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// conn is the subset of *nats.Conn the publisher uses
type conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes JSON events on core NATS subjects
type NATSPublisher struct {
	nc     conn
	prefix string
}

// NewNATSPublisher connects to the broker
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("traffic-engine"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.RetryAttempts),
		nats.ReconnectWait(cfg.RetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("events: failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, prefix: cfg.SubjectPrefix}, nil
}

func (p *NATSPublisher) subject(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}

func (p *NATSPublisher) publish(ctx context.Context, suffix string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("events: failed to marshal %s: %w", suffix, err)
	}
	subject := p.subject(suffix)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("events: failed to publish to %s: %w", subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("events: failed to flush %s: %w", subject, err)
	}
	return nil
}

// TrainingFinished announces the terminal state of a training job
func (p *NATSPublisher) TrainingFinished(ctx context.Context, job domain.TrainingJob) error {
	return p.publish(ctx, SubjectTrainingFinished, job)
}

// AnomaliesDetected announces a non-empty anomaly batch
func (p *NATSPublisher) AnomaliesDetected(ctx context.Context, anomalies []domain.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	return p.publish(ctx, SubjectAnomaliesFound, map[string]any{
		"count":     len(anomalies),
		"anomalies": anomalies,
	})
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
