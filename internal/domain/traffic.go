package domain

import (
	"fmt"
	"time"
)

// Observation is a single sensor reading for a road segment
type Observation struct {
	RoadSegmentID int64     `json:"road_segment_id"`
	Timestamp     time.Time `json:"timestamp"`
	AverageSpeed  float64   `json:"average_speed"` // km/h
	VehicleCount  int       `json:"vehicle_count"`
}

// Validate rejects physically impossible readings
func (o Observation) Validate() error {
	if o.AverageSpeed < 0 {
		return fmt.Errorf("%w: negative average speed %v on segment %d", ErrInvalidInput, o.AverageSpeed, o.RoadSegmentID)
	}
	if o.VehicleCount < 0 {
		return fmt.Errorf("%w: negative vehicle count %d on segment %d", ErrInvalidInput, o.VehicleCount, o.RoadSegmentID)
	}
	return nil
}

// CongestionState is a discretization of speed
type CongestionState string

const (
	CongestionFreeFlow CongestionState = "free_flow"
	CongestionLight    CongestionState = "light"
	CongestionModerate CongestionState = "moderate"
	CongestionHeavy    CongestionState = "heavy"
	CongestionSevere   CongestionState = "severe"
)

// SpeedPrediction is the raw forecaster output for one timestamp
type SpeedPrediction struct {
	Speed      float64 `json:"predicted_speed"`
	Confidence float64 `json:"confidence"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	StdDev     float64 `json:"std_dev"`
	Model      string  `json:"model"`
	IsBaseline bool    `json:"is_baseline"`
}

// Forecast is one hour of a speed/congestion forecast
type Forecast struct {
	Time            time.Time       `json:"time"`
	PredictedSpeed  float64         `json:"predicted_speed"`
	Confidence      float64         `json:"confidence"`
	CongestionState CongestionState `json:"congestion_state"`
	LowerBound      float64         `json:"lower_bound"`
	UpperBound      float64         `json:"upper_bound"`
	IsBaseline      bool            `json:"is_baseline"`
}

// CongestionOutlook is the congestion-only view of a forecast hour
type CongestionOutlook struct {
	Time            time.Time       `json:"time"`
	CongestionState CongestionState `json:"congestion_state"`
	Confidence      float64         `json:"confidence"`
	PredictedSpeed  float64         `json:"predicted_speed"`
	IsBaseline      bool            `json:"is_baseline"`
}

// ForecastRequest represents input for speed and congestion forecasts
type ForecastRequest struct {
	RoadSegmentID  *int64     `json:"road_segment_id,omitempty"`
	PredictionTime *time.Time `json:"prediction_time,omitempty"`
	HorizonHours   int        `json:"horizon_hours"`
}

// ModelStats describes the state of the engine's models
type ModelStats struct {
	SpeedModelLoaded bool       `json:"speed_model_loaded"`
	LastTrained      *time.Time `json:"last_trained"`
	ModelType        string     `json:"model_type"`
	FeaturesCount    int        `json:"features_count"`
	SchemaVersion    int        `json:"schema_version"`
	ValidationR2     float64    `json:"validation_r2"`
}
