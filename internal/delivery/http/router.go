package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp creates the fiber application with the JSON error handler
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "Route Planner API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: ErrorHandler,
		UnescapePath: true,
	})
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Post("/train", handler.Train)
		api.Get("/recommend", handler.Recommend)
		api.Get("/cities/:city/destinations", handler.CityDestinations)
		api.Post("/reviews", handler.CreateReview)
		api.Get("/weather", handler.GetWeather)
	}
}

// ErrorHandler renders errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
