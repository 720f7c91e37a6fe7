package domain

import "time"

type AnomalyType string

const (
	AnomalySevereSlowdown AnomalyType = "severe_slowdown"
	AnomalyHighVolume     AnomalyType = "high_volume"
	AnomalyUnusualPattern AnomalyType = "unusual_pattern"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Anomaly is an observation the outlier model flagged
type Anomaly struct {
	RoadSegmentID int64       `json:"road_segment_id"`
	Timestamp     time.Time   `json:"timestamp"`
	AnomalyType   AnomalyType `json:"anomaly_type"`
	Severity      Severity    `json:"severity"`
	AnomalyScore  float64     `json:"anomaly_score"`
	Speed         float64     `json:"speed"`
	VehicleCount  int         `json:"vehicle_count"`
	Description   string      `json:"description"`
}
