package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/anomaly"
	"github.com/smartcity/traffic/internal/config"
	"github.com/smartcity/traffic/internal/delivery/http"
	"github.com/smartcity/traffic/internal/events"
	"github.com/smartcity/traffic/internal/forecast"
	"github.com/smartcity/traffic/internal/forest"
	"github.com/smartcity/traffic/internal/isolation"
	"github.com/smartcity/traffic/internal/logging"
	"github.com/smartcity/traffic/internal/modelstore"
	"github.com/smartcity/traffic/internal/repository/postgres"
	"github.com/smartcity/traffic/internal/service"
)

func main() {
	// Configuration
	cfg, envFound := config.Load()

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if !envFound {
		logger.Info("No .env file found, using system environment")
	}

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, closeRepo := openRepository(ctx, cfg.DatabaseURL, logger)
	defer closeRepo()

	// Events
	publisher := openPublisher(cfg, logger)
	defer publisher.Close()

	// Models
	store, err := modelstore.NewFileStore(cfg.ModelDir, logger)
	if err != nil {
		logger.Fatalw("Model store unavailable", "dir", cfg.ModelDir, "error", err)
	}
	forecaster := forecast.NewSpeedForecaster(store, cfg.ModelID, forest.DefaultConfig(), logger)
	if forecaster.Load() {
		logger.Infow("Speed model restored", "id", cfg.ModelID)
	} else {
		logger.Infow("No persisted speed model, serving baseline until trained", "id", cfg.ModelID)
	}
	detector := anomaly.NewDetector(isolation.DefaultConfig(), logger)

	graph, err := service.LoadRoadGraph(ctx, repo, cfg.RoadGraphFile, logger)
	if err != nil {
		logger.Warnw("Road graph unavailable, route endpoints will return 404", "error", err)
	}

	// Dependency Injection: Services
	routes := service.NewRouteService(graph)
	training := service.NewTrainingService(forecaster, repo, publisher, logger)
	svc := http.Services{
		Forecast: service.NewForecastService(forecaster, repo, service.ForecastOptions{
			HistoryDays: cfg.HistoryDays,
			CacheSize:   cfg.HistoryCacheSize,
			CacheTTL:    cfg.HistoryCacheTTL,
			MaxHorizon:  cfg.MaxForecastHorizon,
		}, logger),
		Anomaly:  service.NewAnomalyService(detector, repo, publisher, logger),
		Routes:   routes,
		Training: training,
		Stats:    service.NewStatsService(forecaster, detector, routes, repo, logger),
	}

	// Fiber App
	app := http.NewApp(svc, http.AppOptions{AccessLog: true})

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatalw("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Warnw("Server forced to shutdown", "error", err)
	}
	training.Wait()
	logger.Info("Server exited gracefully")
}

type repository interface {
	service.ObservationRepository
	service.RoadGraphSource
}

// openRepository connects to PostgreSQL, falling back to in-memory storage
func openRepository(ctx context.Context, url string, logger *zap.SugaredLogger) (repository, func()) {
	if url == "" {
		logger.Warn("DATABASE_URL not set, running with in-memory storage")
		return postgres.NewMockRepository(), func() {}
	}

	pool, err := postgres.Connect(ctx, url)
	if err != nil {
		logger.Warnw("Could not connect to database, running with in-memory storage", "error", err)
		return postgres.NewMockRepository(), func() {}
	}

	logger.Info("Connected to PostgreSQL")
	return postgres.NewPostgresRepository(pool), pool.Close
}

// openPublisher connects to NATS when configured
func openPublisher(cfg *config.Config, logger *zap.SugaredLogger) events.Publisher {
	if cfg.NATSURL == "" {
		return events.Noop{}
	}
	natsCfg := events.DefaultNATSConfig()
	natsCfg.URL = cfg.NATSURL
	natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix

	pub, err := events.NewNATSPublisher(natsCfg)
	if err != nil {
		logger.Warnw("Could not connect to NATS, events disabled", "error", err)
		return events.Noop{}
	}
	logger.Infow("Publishing events to NATS", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	return pub
}
