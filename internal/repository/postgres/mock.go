package postgres

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/smartcity/traffic/internal/domain"
)

// MockRepository is an in-memory repository used when no database is configured and in tests
type MockRepository struct {
	mu    sync.RWMutex
	obs   []domain.Observation
	edges []domain.RoadEdge
}

// NewMockRepository creates an empty in-memory repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveObservation stores a validated observation
func (r *MockRepository) SaveObservation(ctx context.Context, obs domain.Observation) error {
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("mock: %w", err)
	}
	r.mu.Lock()
	r.obs = append(r.obs, obs)
	r.mu.Unlock()
	return nil
}

// AddRoadEdges appends edges to the in-memory road network
func (r *MockRepository) AddRoadEdges(edges ...domain.RoadEdge) {
	r.mu.Lock()
	r.edges = append(r.edges, edges...)
	r.mu.Unlock()
}

// ObservationsBetween returns observations in [from, to) ordered by time
func (r *MockRepository) ObservationsBetween(ctx context.Context, from, to time.Time) ([]domain.Observation, error) {
	return r.filter(func(o domain.Observation) bool {
		return !o.Timestamp.Before(from) && o.Timestamp.Before(to)
	}), nil
}

// SegmentHistory returns one segment's observations since the cutoff
func (r *MockRepository) SegmentHistory(ctx context.Context, segmentID int64, since time.Time) ([]domain.Observation, error) {
	return r.filter(func(o domain.Observation) bool {
		return o.RoadSegmentID == segmentID && !o.Timestamp.Before(since)
	}), nil
}

func (r *MockRepository) filter(keep func(domain.Observation) bool) []domain.Observation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Observation
	for _, o := range r.obs {
		if keep(o) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Observation) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// LoadRoadEdges returns a copy of the stored edges
func (r *MockRepository) LoadRoadEdges(ctx context.Context) ([]domain.RoadEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.edges), nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
