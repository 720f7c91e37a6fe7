package domain

import "time"

// EngineStats reports the state of every model the engine serves
type EngineStats struct {
	SpeedPrediction     SpeedModelStatus  `json:"speed_prediction"`
	AnomalyDetection    DetectorStatus    `json:"anomaly_detection"`
	RouteRecommendation RouteScorerStatus `json:"route_recommendation"`
	StorageHealthy      bool              `json:"storage_healthy"`
	ServerTime          time.Time         `json:"server_time"`
}

type SpeedModelStatus struct {
	Status string `json:"status"`
	ModelStats
}

type DetectorStatus struct {
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	Contamination float64 `json:"contamination"`
	Trees         int     `json:"trees"`
	MinBaseline   int     `json:"min_baseline"`
}

type RouteScorerStatus struct {
	Status string `json:"status"`
	Type   string `json:"type"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}
