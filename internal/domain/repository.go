package domain

import (
	"context"
	"time"
)

// ObservationRepository defines the interface for traffic observation storage
// The engine only reads; SaveObservation exists for ingestion tooling and tests
type ObservationRepository interface {
	// ObservationsBetween returns all observations in [from, to) ordered by time
	ObservationsBetween(ctx context.Context, from, to time.Time) ([]Observation, error)

	// SegmentHistory returns observations for one segment since the cutoff, ordered by time
	SegmentHistory(ctx context.Context, segmentID int64, since time.Time) ([]Observation, error)

	// SaveObservation persists a single observation
	SaveObservation(ctx context.Context, obs Observation) error

	// Health checks storage connectivity
	Health(ctx context.Context) error
}

// RoadGraphSource provides the externally built road network
type RoadGraphSource interface {
	LoadRoadEdges(ctx context.Context) ([]RoadEdge, error)
}
