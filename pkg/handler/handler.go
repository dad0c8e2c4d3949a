// Package handler exposes the HTTP surface of the intake backend: batch
// ingestion, patient queries and job-status polling.
package handler

import (
	"net/http"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/pkg/service"
)

// Handler binds the HTTP routes to the service layer.
type Handler struct {
	service  *service.Service
	validate *validator.Validate
	log      *zap.Logger
}

// New creates a Handler.
func New(svc *service.Service, log *zap.Logger) *Handler {
	return &Handler{
		service:  svc,
		validate: validator.New(),
		log:      log,
	}
}

// Register attaches all routes to the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/ingest", h.Ingest)
	e.GET("/patients", h.ListPatients)
	e.GET("/patients/:id", h.GetPatient)
	e.GET("/jobs/:id", h.GetJobStatus)
}

// Health is the liveness probe.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
