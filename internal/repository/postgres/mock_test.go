package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/traffic/internal/domain"
)

var t0 = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *MockRepository {
	t.Helper()
	repo := NewMockRepository()
	ctx := context.Background()
	// inserted out of order on purpose
	for _, h := range []int{5, 1, 3, 0, 4, 2} {
		seg := int64(1 + h%2)
		require.NoError(t, repo.SaveObservation(ctx, domain.Observation{
			RoadSegmentID: seg,
			Timestamp:     t0.Add(time.Duration(h) * time.Hour),
			AverageSpeed:  float64(30 + h),
			VehicleCount:  10,
		}))
	}
	return repo
}

func TestMockRepository_ObservationsBetween(t *testing.T) {
	repo := seeded(t)

	got, err := repo.ObservationsBetween(context.Background(), t0.Add(time.Hour), t0.Add(4*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, t0.Add(time.Hour), got[0].Timestamp)
	assert.Equal(t, t0.Add(3*time.Hour), got[2].Timestamp, "upper bound is exclusive")
}

func TestMockRepository_SegmentHistory(t *testing.T) {
	repo := seeded(t)

	got, err := repo.SegmentHistory(context.Background(), 2, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].RoadSegmentID)
	assert.Equal(t, 33.0, got[0].AverageSpeed)
}

func TestMockRepository_RejectsInvalid(t *testing.T) {
	err := NewMockRepository().SaveObservation(context.Background(), domain.Observation{VehicleCount: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMockRepository_RoadEdges(t *testing.T) {
	repo := NewMockRepository()
	repo.AddRoadEdges(domain.RoadEdge{From: domain.Coordinate{Lon: 0}, To: domain.Coordinate{Lon: 1}, Length: 1})

	edges, err := repo.LoadRoadEdges(context.Background())
	require.NoError(t, err)
	require.Len(t, edges, 1)

	edges[0].Length = 99
	again, _ := repo.LoadRoadEdges(context.Background())
	assert.Equal(t, 1.0, again[0].Length)
	assert.NoError(t, repo.Health(context.Background()))
}
