package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartcity/routeplanner/internal/domain"
	"github.com/smartcity/routeplanner/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	planner  *service.PlannerService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler creates a new handler
func NewHandler(planner *service.PlannerService, logger zerolog.Logger) *Handler {
	return &Handler{
		planner:  planner,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// TrainRequest is the body of POST /api/v1/train
type TrainRequest struct {
	City          string   `json:"city" validate:"required,max=100"`
	Episodes      int      `json:"episodes" validate:"required,min=1"`
	PreferredType string   `json:"preferred_type" validate:"omitempty,max=50"`
	MaxBudget     *float64 `json:"max_budget" validate:"omitempty,gte=0"`
}

// RecommendRequest holds the query of GET /api/v1/recommend
type RecommendRequest struct {
	City          string   `validate:"required,max=100"`
	Steps         int      `validate:"min=1,max=20"`
	PreferredType string   `validate:"omitempty,max=50"`
	MaxBudget     *float64 `validate:"omitempty,gte=0"`
}

// ReviewRequest is the body of POST /api/v1/reviews
type ReviewRequest struct {
	City          string `json:"city" validate:"required,max=100"`
	DestinationID int64  `json:"destination_id" validate:"required,gt=0"`
	Comment       string `json:"comment" validate:"required,max=2000"`
}

func preferences(preferredType string, maxBudget *float64) domain.Preferences {
	return domain.Preferences{PreferredType: strings.TrimSpace(preferredType), MaxBudget: maxBudget}
}

// validationError turns validator output into a 400
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" failed "+fe.Tag())
		}
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request: "+strings.Join(fields, ", "))
	}
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK
	if err := h.planner.Health(c.UserContext()); err != nil {
		h.logger.Warn().Err(err).Msg("health check failed")
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"service": "routeplanner",
		"version": "1.0.0",
	})
}

// Train runs a training session for a city
func (h *Handler) Train(c *fiber.Ctx) error {
	var req TrainRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	prefs := preferences(req.PreferredType, req.MaxBudget)
	result, err := h.planner.Train(c.UserContext(), req.City, req.Episodes, &prefs)
	if err != nil {
		return h.serviceError(err, "training failed")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"run_id":        result.RunID,
			"city":          result.City,
			"episodes":      result.Episodes,
			"updates":       result.Updates,
			"skipped":       result.Skipped,
			"reinitialized": result.Reinitialized,
			"duration_ms":   result.Duration.Milliseconds(),
		},
	})
}

// Recommend returns a route for a city
func (h *Handler) Recommend(c *fiber.Ctx) error {
	req := RecommendRequest{
		City:          strings.TrimSpace(c.Query("city")),
		Steps:         3,
		PreferredType: c.Query("preferred_type"),
	}
	if raw := c.Query("steps"); raw != "" {
		steps, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "steps must be an integer")
		}
		req.Steps = steps
	}
	if raw := c.Query("max_budget"); raw != "" {
		budget, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "max_budget must be a number")
		}
		req.MaxBudget = &budget
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	route, err := h.planner.Recommend(c.UserContext(), req.City, preferences(req.PreferredType, req.MaxBudget), req.Steps)
	if err != nil {
		return h.serviceError(err, "recommendation failed")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    route,
	})
}

// CityDestinations lists a city's destinations with their current weather
func (h *Handler) CityDestinations(c *fiber.Ctx) error {
	city := strings.TrimSpace(c.Params("city"))
	if city == "" {
		return fiber.NewError(fiber.StatusBadRequest, "city is required")
	}

	dests, err := h.planner.CityDestinations(c.UserContext(), city)
	if err != nil {
		return h.serviceError(err, "failed to list destinations")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    dests,
		"count":   len(dests),
	})
}

// CreateReview scores and stores a visitor review
func (h *Handler) CreateReview(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	result, err := h.planner.ProcessReview(c.UserContext(), req.City, req.DestinationID, req.Comment)
	if err != nil {
		return h.serviceError(err, "failed to process review")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetWeather returns current weather data
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	location := strings.TrimSpace(c.Query("location"))
	if location == "" {
		return fiber.NewError(fiber.StatusBadRequest, "location is required")
	}

	weather, err := h.planner.Weather(c.UserContext(), location)
	if err != nil {
		return h.serviceError(err, "failed to fetch weather data")
	}

	return c.JSON(domain.WeatherResponse{
		Data:    weather,
		Success: true,
	})
}

// serviceError maps domain errors to HTTP errors. Server-side failures are
// logged and hidden behind a generic message.
func (h *Handler) serviceError(err error, action string) error {
	code := StatusFor(err)
	if code >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(action)
		if code == fiber.StatusServiceUnavailable {
			return fiber.NewError(code, "External provider unavailable, try again later")
		}
		return fiber.NewError(code, "Internal Server Error")
	}
	return fiber.NewError(code, err.Error())
}

// StatusFor returns the HTTP status of a domain error
func StatusFor(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNoFeasibleDestinations), errors.Is(err, domain.ErrNoFeasibleRoute):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotTrained):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrUnknownCity), errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, domain.ErrPersistence):
		return fiber.StatusInternalServerError
	case errors.Is(err, domain.ErrProviderUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
