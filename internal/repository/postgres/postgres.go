package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/traffic/internal/domain"
)

// PostgresRepository implements domain.ObservationRepository and domain.RoadGraphSource
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveObservation persists a single sensor reading
func (r *PostgresRepository) SaveObservation(ctx context.Context, obs domain.Observation) error {
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	query := `
		INSERT INTO traffic_dynamics (road_segment_id, timestamp, average_speed, vehicle_count)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, obs.RoadSegmentID, obs.Timestamp, obs.AverageSpeed, obs.VehicleCount)
	if err != nil {
		return fmt.Errorf("postgres: failed to save observation: %w", err)
	}

	return nil
}

// ObservationsBetween retrieves all observations in [from, to)
func (r *PostgresRepository) ObservationsBetween(ctx context.Context, from, to time.Time) ([]domain.Observation, error) {
	query := `
		SELECT road_segment_id, timestamp, average_speed, vehicle_count
		FROM traffic_dynamics
		WHERE timestamp >= $1 AND timestamp < $2
		ORDER BY timestamp, road_segment_id
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query observations: %w", err)
	}
	return scanObservations(rows)
}

// SegmentHistory retrieves one segment's observations since the cutoff
func (r *PostgresRepository) SegmentHistory(ctx context.Context, segmentID int64, since time.Time) ([]domain.Observation, error) {
	query := `
		SELECT road_segment_id, timestamp, average_speed, vehicle_count
		FROM traffic_dynamics
		WHERE road_segment_id = $1 AND timestamp >= $2
		ORDER BY timestamp
	`

	rows, err := r.pool.Query(ctx, query, segmentID, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query segment history: %w", err)
	}
	return scanObservations(rows)
}

// observationRows is the subset of pgx.Rows read by scanObservations
type observationRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

var _ observationRows = pgx.Rows(nil)

// scanObservations reads observation rows. Rows with a NULL average_speed are
// skipped.
func scanObservations(rows observationRows) ([]domain.Observation, error) {
	defer rows.Close()

	var results []domain.Observation
	for rows.Next() {
		var o domain.Observation
		var speed *float64
		if err := rows.Scan(&o.RoadSegmentID, &o.Timestamp, &speed, &o.VehicleCount); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan observation row: %w", err)
		}
		if speed == nil {
			continue
		}
		o.AverageSpeed = *speed
		results = append(results, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read observations: %w", err)
	}

	return results, nil
}

// LoadRoadEdges reads the directed road network produced by geometry ingestion
func (r *PostgresRepository) LoadRoadEdges(ctx context.Context) ([]domain.RoadEdge, error) {
	query := `
		SELECT from_lon, from_lat, to_lon, to_lat, length
		FROM road_edges
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query road edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.RoadEdge
	for rows.Next() {
		var e domain.RoadEdge
		if err := rows.Scan(&e.From.Lon, &e.From.Lat, &e.To.Lon, &e.To.Lat, &e.Length); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan road edge row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read road edges: %w", err)
	}

	return edges, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
