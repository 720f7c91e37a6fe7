// Package features turns timestamps and observation history into model inputs.
package features

import (
	"fmt"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/smartcity/traffic/internal/domain"
)

// Defaults used when a segment has no history
const (
	DefaultHistAvgSpeed    = 40.0
	DefaultHistStdSpeed    = 10.0
	DefaultHistAvgVehicles = 25.0
)

// Schema names the feature columns in the order the model consumes them.
// Bump Version whenever Names or their meaning changes.
type Schema struct {
	Version int      `json:"version"`
	Names   []string `json:"names"`
}

// CurrentSchema is the layout produced by Builder
var CurrentSchema = Schema{
	Version: 1,
	Names: []string{
		"hour",
		"day_of_week",
		"day_of_month",
		"month",
		"is_weekend",
		"is_rush_hour",
		"is_night",
		"road_segment_id",
		"hist_avg_speed",
		"hist_std_speed",
		"hist_avg_vehicles",
	},
}

// Len returns the number of columns
func (s Schema) Len() int {
	return len(s.Names)
}

// Compatible reports whether vectors built under other can feed a model trained under s
func (s Schema) Compatible(other Schema) bool {
	return s.Version == other.Version && slices.Equal(s.Names, other.Names)
}

// Vector is one row of model input
type Vector struct {
	Hour            float64
	DayOfWeek       float64
	DayOfMonth      float64
	Month           float64
	IsWeekend       float64
	IsRushHour      float64
	IsNight         float64
	RoadSegmentID   float64
	HistAvgSpeed    float64
	HistStdSpeed    float64
	HistAvgVehicles float64
}

// Values returns the vector in CurrentSchema order
func (v Vector) Values() []float64 {
	return []float64{
		v.Hour,
		v.DayOfWeek,
		v.DayOfMonth,
		v.Month,
		v.IsWeekend,
		v.IsRushHour,
		v.IsNight,
		v.RoadSegmentID,
		v.HistAvgSpeed,
		v.HistStdSpeed,
		v.HistAvgVehicles,
	}
}

// Builder extracts feature vectors
type Builder struct{}

// NewBuilder creates a new feature builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build extracts calendar and history features for a segment at ts.
// history must belong to segmentID; an empty history falls back to the defaults.
func (b *Builder) Build(ts time.Time, segmentID int64, history []domain.Observation) (Vector, error) {
	hour := ts.Hour()
	weekday := mondayFirst(ts.Weekday())

	v := Vector{
		Hour:            float64(hour),
		DayOfWeek:       float64(weekday),
		DayOfMonth:      float64(ts.Day()),
		Month:           float64(ts.Month()),
		IsWeekend:       boolToFloat(weekday >= 5),
		IsRushHour:      boolToFloat(isRushHour(hour)),
		IsNight:         boolToFloat(hour < 6 || hour > 22),
		RoadSegmentID:   float64(segmentID),
		HistAvgSpeed:    DefaultHistAvgSpeed,
		HistStdSpeed:    DefaultHistStdSpeed,
		HistAvgVehicles: DefaultHistAvgVehicles,
	}

	if len(history) == 0 {
		return v, nil
	}

	speeds := make([]float64, len(history))
	vehicles := make([]float64, len(history))
	for i, obs := range history {
		if obs.RoadSegmentID != segmentID {
			return Vector{}, fmt.Errorf("features: %w: history for segment %d passed for segment %d",
				domain.ErrInvalidInput, obs.RoadSegmentID, segmentID)
		}
		if err := obs.Validate(); err != nil {
			return Vector{}, fmt.Errorf("features: %w", err)
		}
		speeds[i] = obs.AverageSpeed
		vehicles[i] = float64(obs.VehicleCount)
	}

	// Sample std is undefined for a single reading
	mean, std := stat.MeanStdDev(speeds, nil)
	if len(speeds) == 1 {
		std = 0
	}
	v.HistAvgSpeed = mean
	v.HistStdSpeed = std
	v.HistAvgVehicles = stat.Mean(vehicles, nil)

	return v, nil
}

// mondayFirst maps time.Weekday (Sunday=0) to Monday=0..Sunday=6
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func isRushHour(hour int) bool {
	switch hour {
	case 7, 8, 9, 17, 18, 19:
		return true
	}
	return false
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
