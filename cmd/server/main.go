package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/smartcity/routeplanner/internal/app"
	"github.com/smartcity/routeplanner/internal/config"
	"github.com/smartcity/routeplanner/internal/delivery/http"
	"github.com/smartcity/routeplanner/internal/logging"
)

func main() {
	// Configuration
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("server")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Dependency Injection
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := app.Build(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}

	// Fiber App
	fiberApp := http.NewApp()

	// Middleware
	fiberApp.Use(recover.New())
	fiberApp.Use(requestid.New())
	fiberApp.Use(http.RequestLogger(logging.Component("http")))
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(fiberApp, http.NewHandler(deps.Planner, logging.Component("handler")))

	// Graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Port).Bool("mock_signals", cfg.MockSignals).Msg("server starting")
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	deps.Close()
	log.Info().Msg("server exited gracefully")
}
