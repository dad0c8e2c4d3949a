package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/pkg/repository"

	errorsx "github.com/carelake/intake-backend/pkg/errors"
)

// PaginatedPatientsResponse is one page of the patient listing.
type PaginatedPatientsResponse struct {
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
	Patients []*repository.Patient `json:"patients"`
}

// ListPatients serves the paginated, filtered patient listing.
func (h *Handler) ListPatients(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil || page < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be an integer >= 1")
	}
	pageSize, err := queryInt(c, "pageSize", repository.DefaultPageSize)
	if err != nil || pageSize < 1 || pageSize > repository.MaxPageSize {
		return echo.NewHTTPError(http.StatusBadRequest, "pageSize must be an integer between 1 and 100")
	}

	filter := repository.PatientFilter{
		MRN:       c.QueryParam("mrn"),
		FirstName: c.QueryParam("firstName"),
		LastName:  c.QueryParam("lastName"),
	}

	patients, total, err := h.service.ListPatients(c.Request().Context(), page, pageSize, filter)
	if err != nil {
		h.log.Error("Failed to list patients", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list patients")
	}
	if patients == nil {
		patients = []*repository.Patient{}
	}

	return c.JSON(http.StatusOK, PaginatedPatientsResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Patients: patients,
	})
}

// GetPatient serves a single patient with person demographics and visits.
func (h *Handler) GetPatient(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient id must be an integer")
	}

	patient, err := h.service.GetPatientByID(c.Request().Context(), id)
	if errors.Is(err, errorsx.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		h.log.Error("Failed to get patient", zap.Int64("id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get patient")
	}

	return c.JSON(http.StatusOK, patient)
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
