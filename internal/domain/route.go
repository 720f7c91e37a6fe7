package domain

// Coordinate is a (longitude, latitude) pair in degrees
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// NodeKey is a road graph node on a fixed 1e-7 degree integer grid
type NodeKey struct {
	LonE7 int64 `json:"lon_e7"`
	LatE7 int64 `json:"lat_e7"`
}

// Alternative is one ranked candidate route
type Alternative struct {
	ID               int       `json:"route_id"`
	Path             []NodeKey `json:"path"`
	LengthKM         float64   `json:"length_km"`
	NumSegments      int       `json:"num_segments"`
	SuitabilityScore float64   `json:"suitability_score"`
	Rank             int       `json:"rank"`
}

// Recommendation is the best alternative with a human-readable reason
type Recommendation struct {
	Best          *Alternative  `json:"recommended"`
	Alternatives  []Alternative `json:"all_alternatives"`
	Justification string        `json:"recommendation_justification"`
}

// RoadEdge is a directed edge as stored by the geometry ingestion pipeline
type RoadEdge struct {
	From   Coordinate `json:"from" yaml:"from"`
	To     Coordinate `json:"to" yaml:"to"`
	Length float64    `json:"length" yaml:"length"`
}

// LineMetrics summarizes a raw coordinate polyline
type LineMetrics struct {
	LengthDegrees float64 `json:"length_degrees"`
	NumSegments   int     `json:"num_segments"`
	ApproxKM      float64 `json:"approximate_length_km"`
}
