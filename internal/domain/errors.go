package domain

import "errors"

var (
	// ErrInsufficientData is returned when training gets fewer samples than required
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrModelUnavailable means no trained or persisted model exists
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrRouteNotFound means an endpoint could not be resolved on the road graph
	ErrRouteNotFound = errors.New("route not found")

	// ErrPersistence wraps model serialization failures
	ErrPersistence = errors.New("model persistence failure")

	// ErrTrainingInProgress is returned when a second training run is requested
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrInsufficientBaseline means the anomaly detector has no history to fit against
	ErrInsufficientBaseline = errors.New("insufficient baseline for anomaly detection")

	// ErrInvalidInput marks malformed caller input
	ErrInvalidInput = errors.New("invalid input")
)
