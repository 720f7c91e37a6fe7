package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/forecast"
	"github.com/smartcity/traffic/internal/routing"
	"github.com/smartcity/traffic/internal/service"
)

// Services bundles everything the handlers call
type Services struct {
	Forecast *service.ForecastService
	Anomaly  *service.AnomalyService
	Routes   *service.RouteService
	Training *service.TrainingService
	Stats    *service.StatsService
}

// Handler contains all HTTP handlers
type Handler struct {
	svc Services
}

// NewHandler creates a new handler
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	if err := h.svc.Stats.Health(c.UserContext()); err != nil {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":  status,
		"service": "traffic-engine",
		"version": "1.0.0",
	})
}

// PredictSpeed returns an hourly speed forecast
func (h *Handler) PredictSpeed(c *fiber.Ctx) error {
	var req domain.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	forecasts, err := h.svc.Forecast.Forecast(c.UserContext(), req)
	if err != nil {
		return toFiberError(err, "Prediction failed")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    forecasts,
	})
}

// PredictCongestion returns the congestion view of an hourly forecast
func (h *Handler) PredictCongestion(c *fiber.Ctx) error {
	var req domain.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	outlook, err := h.svc.Forecast.CongestionOutlook(c.UserContext(), req)
	if err != nil {
		return toFiberError(err, "Prediction failed")
	}

	model := forecast.ModelRandomForest
	for _, o := range outlook {
		if o.IsBaseline {
			model = forecast.ModelBaseline
			break
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"predictions":     outlook,
			"road_segment_id": req.RoadSegmentID,
			"model_used":      model,
			"horizon_hours":   len(outlook),
		},
	})
}

// GetAnomalies scores the recent window against the baseline month
func (h *Handler) GetAnomalies(c *fiber.Ctx) error {
	hours, err := queryInt(c, "hours", service.DefaultAnomalyWindowHours)
	if err != nil {
		return err
	}
	severity := domain.Severity(c.Query("severity"))

	anomalies, err := h.svc.Anomaly.Detect(c.UserContext(), hours, severity)
	if errors.Is(err, domain.ErrInsufficientBaseline) {
		return c.JSON(fiber.Map{
			"success":        true,
			"data":           []domain.Anomaly{},
			"count":          0,
			"baseline_ready": false,
		})
	}
	if err != nil {
		return toFiberError(err, "Anomaly detection failed")
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"data":           anomalies,
		"count":          len(anomalies),
		"baseline_ready": true,
	})
}

// GetModelStats reports the state of every model
func (h *Handler) GetModelStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.svc.Stats.ModelStats(c.UserContext()),
	})
}

// TrainModel queues a background training run
func (h *Handler) TrainModel(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", service.DefaultTrainingDays)
	if err != nil {
		return err
	}

	job, err := h.svc.Training.Start(days)
	if err != nil {
		return toFiberError(err, "Failed to start training")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Model training started in background",
		"data":    job,
	})
}

// GetTrainingJob returns one training job
func (h *Handler) GetTrainingJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid job id")
	}

	job, ok := h.svc.Training.Job(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Training job not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    job,
	})
}

// ListTrainingJobs returns retained training jobs, oldest first
func (h *Handler) ListTrainingJobs(c *fiber.Ctx) error {
	jobs := h.svc.Training.Jobs()
	return c.JSON(fiber.Map{
		"success": true,
		"data":    jobs,
		"count":   len(jobs),
	})
}

// queryInt reads an optional integer query parameter. Unlike c.QueryInt a
// malformed value is a 400, not the default.
func queryInt(c *fiber.Ctx, key string, defaultValue int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be an integer")
	}
	return v, nil
}

func queryFloat(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "start_lon, start_lat, end_lon and end_lat are required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be a number")
	}
	return v, nil
}

func parseEndpoints(c *fiber.Ctx) (start, end domain.Coordinate, err error) {
	fields := []struct {
		key string
		dst *float64
	}{
		{"start_lon", &start.Lon},
		{"start_lat", &start.Lat},
		{"end_lon", &end.Lon},
		{"end_lat", &end.Lat},
	}
	for _, f := range fields {
		if *f.dst, err = queryFloat(c, f.key); err != nil {
			return domain.Coordinate{}, domain.Coordinate{}, err
		}
	}
	return start, end, nil
}

// GetAlternatives returns ranked alternative routes
func (h *Handler) GetAlternatives(c *fiber.Ctx) error {
	start, end, err := parseEndpoints(c)
	if err != nil {
		return err
	}

	k, err := queryInt(c, "k", routing.DefaultK)
	if err != nil {
		return err
	}

	alternatives, err := h.svc.Routes.Alternatives(start, end, k)
	if err != nil {
		return toFiberError(err, "Failed to compute alternatives")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    alternatives,
		"count":   len(alternatives),
	})
}

// RecommendRoute returns the best alternative with a justification
func (h *Handler) RecommendRoute(c *fiber.Ctx) error {
	start, end, err := parseEndpoints(c)
	if err != nil {
		return err
	}

	rec, err := h.svc.Routes.Recommend(start, end)
	if err != nil {
		return toFiberError(err, "Failed to recommend route")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rec,
	})
}

type analyzeRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// AnalyzeRoute measures a raw [[lon, lat], ...] polyline
func (h *Handler) AnalyzeRoute(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	coords := make([]domain.Coordinate, len(req.Coordinates))
	for i, p := range req.Coordinates {
		if len(p) != 2 {
			return fiber.NewError(fiber.StatusBadRequest, "Each coordinate must be [lon, lat]")
		}
		coords[i] = domain.Coordinate{Lon: p[0], Lat: p[1]}
	}

	metrics, err := h.svc.Routes.Analyze(coords)
	if err != nil {
		return toFiberError(err, "Failed to analyze route")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    metrics,
	})
}
