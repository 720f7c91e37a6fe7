// Package service wires the forecasting, anomaly, routing and training engines to storage and events.
package service

import (
	"time"

	"github.com/smartcity/traffic/internal/domain"
)

// ObservationRepository is re-exported from domain for convenience
type ObservationRepository = domain.ObservationRepository

// RoadGraphSource is re-exported from domain for convenience
type RoadGraphSource = domain.RoadGraphSource

// clock is overridden in tests
type clock func() time.Time
