// Package forecast predicts road speed and congestion from calendar and history features.
package forecast

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/features"
	"github.com/smartcity/traffic/internal/forest"
	"github.com/smartcity/traffic/internal/modelstore"
	"github.com/smartcity/traffic/pkg/utils"
)

const (
	// MinTrainingSamples is the smallest training set accepted
	MinTrainingSamples = 50
	// ValidationFraction of samples held out for R²
	ValidationFraction = 0.2

	ModelRandomForest = "random_forest"
	ModelBaseline     = "baseline"

	// σ at which confidence reaches zero
	confidenceSpread = 20.0
)

// Baseline returned when no model is available
var Baseline = domain.SpeedPrediction{
	Speed:      40.0,
	Confidence: 0.5,
	LowerBound: 30.0,
	UpperBound: 50.0,
	Model:      ModelBaseline,
	IsBaseline: true,
}

// ModelStore persists trained artifacts
type ModelStore interface {
	Save(id string, a modelstore.Artifact) error
	Load(id string) (modelstore.Artifact, bool)
}

// TrainingSample is one observed speed used for training
type TrainingSample struct {
	Timestamp     time.Time
	RoadSegmentID int64
	Speed         float64
}

// SamplesFromObservations converts stored observations into training samples
func SamplesFromObservations(obs []domain.Observation) []TrainingSample {
	samples := make([]TrainingSample, len(obs))
	for i, o := range obs {
		samples[i] = TrainingSample{Timestamp: o.Timestamp, RoadSegmentID: o.RoadSegmentID, Speed: o.AverageSpeed}
	}
	return samples
}

// snapshot is the model state readers see; it is replaced, never mutated
type snapshot struct {
	forest       *forest.Forest
	scaler       *forest.StandardScaler
	trainedAt    time.Time
	validationR2 float64
}

// SpeedForecaster owns the trained ensemble and its scaler
type SpeedForecaster struct {
	builder *features.Builder
	store   ModelStore
	modelID string
	cfg     forest.Config
	logger  *zap.SugaredLogger

	current  atomic.Pointer[snapshot]
	loadOnce sync.Once
	trainMu  sync.Mutex
}

// NewSpeedForecaster creates an untrained forecaster. store may be nil.
func NewSpeedForecaster(store ModelStore, modelID string, cfg forest.Config, logger *zap.SugaredLogger) *SpeedForecaster {
	return &SpeedForecaster{
		builder: features.NewBuilder(),
		store:   store,
		modelID: modelID,
		cfg:     cfg,
		logger:  logger,
	}
}

// Load restores the persisted model if one exists and nothing newer is installed
func (f *SpeedForecaster) Load() bool {
	if f.store == nil {
		return false
	}
	a, ok := f.store.Load(f.modelID)
	if !ok {
		return false
	}
	snap := &snapshot{
		forest:       a.Forest,
		scaler:       a.Scaler,
		trainedAt:    a.TrainedAt,
		validationR2: a.ValidationR2,
	}
	return f.current.CompareAndSwap(nil, snap)
}

func (f *SpeedForecaster) model() *snapshot {
	if snap := f.current.Load(); snap != nil {
		return snap
	}
	f.loadOnce.Do(func() { f.Load() })
	return f.current.Load()
}

// Trained reports whether a model is installed
func (f *SpeedForecaster) Trained() bool {
	return f.model() != nil
}

// RequireModel returns ErrModelUnavailable when predictions would come from the baseline
func (f *SpeedForecaster) RequireModel() error {
	if f.model() == nil {
		return fmt.Errorf("forecast: %w: no trained or persisted model %q", domain.ErrModelUnavailable, f.modelID)
	}
	return nil
}

// Train fits a new model and installs it atomically. Only one training run
// may execute at a time; a concurrent call returns ErrTrainingInProgress.
func (f *SpeedForecaster) Train(ctx context.Context, samples []TrainingSample) (float64, error) {
	if !f.trainMu.TryLock() {
		return 0, domain.ErrTrainingInProgress
	}
	defer f.trainMu.Unlock()

	if len(samples) < MinTrainingSamples {
		return 0, fmt.Errorf("forecast: %w: need at least %d samples, got %d",
			domain.ErrInsufficientData, MinTrainingSamples, len(samples))
	}

	x := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		if s.Speed < 0 {
			return 0, fmt.Errorf("forecast: %w: negative speed in sample %d", domain.ErrInvalidInput, i)
		}
		v, err := f.builder.Build(s.Timestamp, s.RoadSegmentID, nil)
		if err != nil {
			return 0, fmt.Errorf("forecast: failed to build features: %w", err)
		}
		x[i] = v.Values()
		y[i] = s.Speed
	}

	trainIdx, testIdx := forest.Split(len(x), ValidationFraction, f.cfg.Seed)
	xTrain, yTrain := pick(x, y, trainIdx)
	xTest, yTest := pick(x, y, testIdx)

	scaler, err := forest.FitScaler(xTrain)
	if err != nil {
		return 0, fmt.Errorf("forecast: %w", err)
	}
	xTrainScaled, err := scaler.TransformAll(xTrain)
	if err != nil {
		return 0, fmt.Errorf("forecast: %w", err)
	}
	xTestScaled, err := scaler.TransformAll(xTest)
	if err != nil {
		return 0, fmt.Errorf("forecast: %w", err)
	}

	model, err := forest.Fit(ctx, xTrainScaled, yTrain, f.cfg)
	if err != nil {
		return 0, fmt.Errorf("forecast: %w", err)
	}

	trainR2, err := model.Score(xTrainScaled, yTrain)
	if err != nil {
		return 0, fmt.Errorf("forecast: %w", err)
	}
	validationR2, err := model.Score(xTestScaled, yTest)
	if err != nil {
		return 0, fmt.Errorf("forecast: %w", err)
	}

	snap := &snapshot{
		forest:       model,
		scaler:       scaler,
		trainedAt:    time.Now().UTC(),
		validationR2: validationR2,
	}
	f.current.Store(snap)

	f.logger.Infow("speed model trained",
		"samples", len(samples),
		"train_r2", utils.RoundTo(trainR2, 3),
		"validation_r2", utils.RoundTo(validationR2, 3),
	)

	if f.store != nil {
		err := f.store.Save(f.modelID, modelstore.Artifact{
			Forest:       model,
			Scaler:       scaler,
			Schema:       features.CurrentSchema,
			TrainedAt:    snap.trainedAt,
			ValidationR2: validationR2,
		})
		if err != nil {
			return validationR2, fmt.Errorf("forecast: model trained but not persisted: %w", err)
		}
	}

	return validationR2, nil
}

func pick(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, r := range idx {
		xs[i] = x[r]
		ys[i] = y[r]
	}
	return xs, ys
}

// Predict estimates speed at ts for a segment. Without a model it returns Baseline.
func (f *SpeedForecaster) Predict(ts time.Time, segmentID int64, history []domain.Observation) (domain.SpeedPrediction, error) {
	v, err := f.builder.Build(ts, segmentID, history)
	if err != nil {
		return domain.SpeedPrediction{}, fmt.Errorf("forecast: %w", err)
	}

	snap := f.model()
	if snap == nil {
		return Baseline, nil
	}

	scaled, err := snap.scaler.Transform(v.Values())
	if err != nil {
		return domain.SpeedPrediction{}, fmt.Errorf("forecast: %w", err)
	}
	perTree, err := snap.forest.PredictEach(scaled)
	if err != nil {
		return domain.SpeedPrediction{}, fmt.Errorf("forecast: %w", err)
	}

	estimate, sigma := stat.PopMeanStdDev(perTree, nil)

	return domain.SpeedPrediction{
		Speed:      utils.RoundTo(estimate, 2),
		Confidence: utils.RoundTo(Confidence(sigma), 3),
		LowerBound: utils.RoundTo(estimate-2*sigma, 2),
		UpperBound: utils.RoundTo(estimate+2*sigma, 2),
		StdDev:     utils.RoundTo(sigma, 2),
		Model:      ModelRandomForest,
	}, nil
}

// Confidence maps the spread of tree predictions to [0, 1]
func Confidence(sigma float64) float64 {
	return utils.Clamp(1-sigma/confidenceSpread, 0, 1)
}

// Stats describes the installed model
func (f *SpeedForecaster) Stats() domain.ModelStats {
	stats := domain.ModelStats{
		ModelType:     ModelRandomForest,
		FeaturesCount: features.CurrentSchema.Len(),
		SchemaVersion: features.CurrentSchema.Version,
	}
	if snap := f.model(); snap != nil {
		trainedAt := snap.trainedAt
		stats.SpeedModelLoaded = true
		stats.LastTrained = &trainedAt
		stats.ValidationR2 = utils.RoundTo(snap.validationR2, 3)
	}
	return stats
}
