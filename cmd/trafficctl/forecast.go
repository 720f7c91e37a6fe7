package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/forecast"
	"github.com/smartcity/traffic/internal/forest"
	"github.com/smartcity/traffic/internal/modelstore"
	"github.com/smartcity/traffic/internal/repository/postgres"
	"github.com/smartcity/traffic/internal/service"
)

var (
	forecastSegment int64
	forecastHorizon int
	forecastAt      string
	forecastStrict  bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast hourly speed and congestion for a segment",
	Long: `Forecast hourly speed and congestion using the persisted model in MODEL_DIR.

Segment history is read from DATABASE_URL when set. Without a persisted
model the baseline forecast is printed.`,
	RunE: runForecast,
}

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.Flags().Int64VarP(&forecastSegment, "segment", "s", service.DefaultSegmentID, "Road segment id")
	forecastCmd.Flags().IntVarP(&forecastHorizon, "horizon", "H", service.DefaultHorizonHours, "Hours to forecast")
	forecastCmd.Flags().StringVar(&forecastAt, "at", "", "Start time (RFC 3339, default now)")
	forecastCmd.Flags().BoolVar(&forecastStrict, "require-model", false, "Fail instead of printing the baseline")
}

func runForecast(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	req := domain.ForecastRequest{RoadSegmentID: &forecastSegment, HorizonHours: forecastHorizon}
	if forecastAt != "" {
		at, err := time.Parse(time.RFC3339, forecastAt)
		if err != nil {
			return fmt.Errorf("%w: --at: %v", domain.ErrInvalidInput, err)
		}
		req.PredictionTime = &at
	}

	var repo service.ObservationRepository = postgres.NewMockRepository()
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = postgres.NewPostgresRepository(pool)
	}

	store, err := modelstore.NewFileStore(cfg.ModelDir, logger)
	if err != nil {
		return err
	}
	forecaster := forecast.NewSpeedForecaster(store, cfg.ModelID, forest.DefaultConfig(), logger)
	if forecastStrict {
		if err := forecaster.RequireModel(); err != nil {
			return err
		}
	}
	svc := service.NewForecastService(forecaster, repo, service.ForecastOptions{
		HistoryDays: cfg.HistoryDays,
		MaxHorizon:  cfg.MaxForecastHorizon,
	}, logger)

	forecasts, err := svc.Forecast(ctx, req)
	if err != nil {
		return err
	}

	if rootJSON {
		return writeJSON(cmd.OutOrStdout(), forecasts)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSPEED\tRANGE\tCONFIDENCE\tCONGESTION")
	for _, f := range forecasts {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f-%.2f\t%.3f\t%s\n",
			f.Time.Format(time.RFC3339), f.PredictedSpeed, f.LowerBound, f.UpperBound, f.Confidence, f.CongestionState)
	}
	if len(forecasts) > 0 && forecasts[0].IsBaseline {
		fmt.Fprintln(w, "(baseline: no trained model found)")
	}
	return w.Flush()
}
