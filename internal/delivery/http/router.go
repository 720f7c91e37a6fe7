package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, svc Services) {
	handler := NewHandler(svc)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		ai := api.Group("/ai")
		ai.Post("/predict-speed", handler.PredictSpeed)
		ai.Post("/predict-congestion", handler.PredictCongestion)
		ai.Get("/anomalies", handler.GetAnomalies)
		ai.Get("/model-stats", handler.GetModelStats)
		ai.Post("/train-model", handler.TrainModel)
		ai.Get("/train-model", handler.ListTrainingJobs)
		ai.Get("/train-model/:id", handler.GetTrainingJob)

		routes := api.Group("/routes")
		routes.Get("/alternatives", handler.GetAlternatives)
		routes.Post("/recommend", handler.RecommendRoute)
		routes.Post("/analyze", handler.AnalyzeRoute)
	}
}
