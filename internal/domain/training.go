package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// TrainingJob tracks a background training run
type TrainingJob struct {
	ID           uuid.UUID  `json:"id"`
	Status       JobStatus  `json:"status"`
	Days         int        `json:"training_days"`
	Samples      int        `json:"samples"`
	ValidationR2 float64    `json:"validation_r2"`
	Error        string     `json:"error,omitempty"`
	QueuedAt     time.Time  `json:"queued_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
