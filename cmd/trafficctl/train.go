package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/forecast"
	"github.com/smartcity/traffic/internal/forest"
	"github.com/smartcity/traffic/internal/modelstore"
	"github.com/smartcity/traffic/internal/repository/postgres"
)

var (
	trainDays int
	trainFile string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and persist the speed model",
	Long: `Train the random forest speed model and write it to MODEL_DIR.

Observations come from --file (a JSON array of observations) when given,
otherwise from the last --days of the database at DATABASE_URL.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().IntVarP(&trainDays, "days", "d", 30, "Days of history to train on")
	trainCmd.Flags().StringVarP(&trainFile, "file", "f", "", "Train from a JSON observation file instead of the database")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	obs, err := loadTrainingObservations(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	store, err := modelstore.NewFileStore(cfg.ModelDir, logger)
	if err != nil {
		return err
	}
	forecaster := forecast.NewSpeedForecaster(store, cfg.ModelID, forest.DefaultConfig(), logger)

	started := time.Now()
	r2, err := forecaster.Train(ctx, forecast.SamplesFromObservations(obs))
	if err != nil {
		return err
	}

	result := struct {
		ModelID      string  `json:"model_id"`
		ModelDir     string  `json:"model_dir"`
		Samples      int     `json:"samples"`
		ValidationR2 float64 `json:"validation_r2"`
		Elapsed      string  `json:"elapsed"`
	}{cfg.ModelID, store.Dir(), len(obs), r2, time.Since(started).Round(time.Millisecond).String()}

	if rootJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Trained %s on %d samples in %s (validation R² %.3f), saved to %s\n",
		result.ModelID, result.Samples, result.Elapsed, result.ValidationR2, result.ModelDir)
	return nil
}

func loadTrainingObservations(ctx context.Context, databaseURL string) ([]domain.Observation, error) {
	if trainFile != "" {
		return readObservationFile(trainFile)
	}
	if trainDays < 1 {
		return nil, fmt.Errorf("%w: --days must be positive", domain.ErrInvalidInput)
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set; use --file to train offline")
	}
	pool, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	now := time.Now()
	return postgres.NewPostgresRepository(pool).ObservationsBetween(ctx, now.AddDate(0, 0, -trainDays), now)
}

func readObservationFile(path string) ([]domain.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	var obs []domain.Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, fmt.Errorf("failed to decode observations: %w", err)
	}
	for i, o := range obs {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return obs, nil
}
