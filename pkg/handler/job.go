package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	errorsx "github.com/carelake/intake-backend/pkg/errors"
)

// GetJobStatus serves the polled status of one reconciliation job.
func (h *Handler) GetJobStatus(c echo.Context) error {
	jobID := c.Param("id")

	status, err := h.service.GetJobStatus(c.Request().Context(), jobID)
	if errors.Is(err, errorsx.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	if err != nil {
		h.log.Error("Failed to get job status", zap.String("jobID", jobID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get job status")
	}

	return c.JSON(http.StatusOK, status)
}
