package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/events"
	"github.com/smartcity/traffic/internal/forecast"
)

const (
	DefaultTrainingDays = 30
	MinTrainingDays     = 7
	MaxTrainingDays     = 180

	// maxJobs bounds the retained job history
	maxJobs = 50

	trainingTimeout = 30 * time.Minute
)

// TrainingService runs forecaster training off the request path
type TrainingService struct {
	forecaster *forecast.SpeedForecaster
	repo       ObservationRepository
	publisher  events.Publisher
	now        clock
	logger     *zap.SugaredLogger

	mu      sync.Mutex
	jobs    map[uuid.UUID]*domain.TrainingJob
	order   []uuid.UUID
	running bool

	wgBg sync.WaitGroup // tracks training goroutines for graceful shutdown
}

// NewTrainingService creates a training service; publisher may be events.Noop
func NewTrainingService(
	forecaster *forecast.SpeedForecaster,
	repo ObservationRepository,
	publisher events.Publisher,
	logger *zap.SugaredLogger,
) *TrainingService {
	return &TrainingService{
		forecaster: forecaster,
		repo:       repo,
		publisher:  publisher,
		now:        time.Now,
		logger:     logger,
		jobs:       make(map[uuid.UUID]*domain.TrainingJob),
	}
}

// Start queues a training run over the last days of observations and returns
// immediately. Only one run may be active.
func (s *TrainingService) Start(days int) (domain.TrainingJob, error) {
	if days == 0 {
		days = DefaultTrainingDays
	}
	if days < MinTrainingDays || days > MaxTrainingDays {
		return domain.TrainingJob{}, fmt.Errorf("service: %w: days must be between %d and %d, got %d",
			domain.ErrInvalidInput, MinTrainingDays, MaxTrainingDays, days)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return domain.TrainingJob{}, fmt.Errorf("service: %w", domain.ErrTrainingInProgress)
	}

	job := &domain.TrainingJob{
		ID:       uuid.New(),
		Status:   domain.JobQueued,
		Days:     days,
		QueuedAt: s.now(),
	}
	s.remember(job)
	s.running = true

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		s.run(job.ID, days)
	}()

	return *job, nil
}

// remember stores job and evicts the oldest finished ones; s.mu must be held
func (s *TrainingService) remember(job *domain.TrainingJob) {
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	for len(s.order) > maxJobs {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *TrainingService) update(id uuid.UUID, fn func(*domain.TrainingJob)) domain.TrainingJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.TrainingJob{}
	}
	fn(job)
	return *job
}

func (s *TrainingService) run(id uuid.UUID, days int) {
	ctx, cancel := context.WithTimeout(context.Background(), trainingTimeout)
	defer cancel()

	started := s.now()
	s.update(id, func(j *domain.TrainingJob) {
		j.Status = domain.JobRunning
		j.StartedAt = &started
	})

	samples, r2, err := s.train(ctx, started, days)

	finished := s.now()
	job := s.update(id, func(j *domain.TrainingJob) {
		j.Samples = samples
		j.FinishedAt = &finished
		switch {
		case err == nil:
			j.Status = domain.JobSucceeded
			j.ValidationR2 = r2
		case errors.Is(err, domain.ErrPersistence):
			// installed in memory, only the artifact write failed
			j.Status = domain.JobSucceeded
			j.ValidationR2 = r2
			j.Error = err.Error()
		default:
			j.Status = domain.JobFailed
			j.Error = err.Error()
		}
	})

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Errorw("training failed", "job", id, "samples", samples, "error", err)
	} else {
		s.logger.Infow("training finished", "job", id, "samples", samples, "validation_r2", r2)
	}

	if pubErr := s.publisher.TrainingFinished(ctx, job); pubErr != nil {
		s.logger.Warnw("failed to publish training result", "job", id, "error", pubErr)
	}
}

func (s *TrainingService) train(ctx context.Context, now time.Time, days int) (int, float64, error) {
	obs, err := s.repo.ObservationsBetween(ctx, now.AddDate(0, 0, -days), now)
	if err != nil {
		return 0, 0, fmt.Errorf("service: failed to load training data: %w", err)
	}
	samples := forecast.SamplesFromObservations(obs)
	r2, err := s.forecaster.Train(ctx, samples)
	return len(samples), r2, err
}

// Job returns a snapshot of the job with id
func (s *TrainingService) Job(id uuid.UUID) (domain.TrainingJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.TrainingJob{}, false
	}
	return *job, true
}

// Jobs returns retained jobs, oldest first
func (s *TrainingService) Jobs() []domain.TrainingJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TrainingJob, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.jobs[id])
	}
	return out
}

// Wait blocks until all training goroutines complete.
// Call during graceful shutdown so a model is not half persisted.
func (s *TrainingService) Wait() {
	s.wgBg.Wait()
}
