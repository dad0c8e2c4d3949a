package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/pkg/staging"
)

// VisitRecordPayload is one inbound visit record. Validation here is
// structural only (required fields, parseable calendar dates); semantic
// validation is deferred to the reconciliation workflow.
type VisitRecordPayload struct {
	MRN                string `json:"mrn" validate:"required"`
	FirstName          string `json:"firstName" validate:"required"`
	LastName           string `json:"lastName" validate:"required"`
	BirthDate          string `json:"birthDate" validate:"required"`
	VisitAccountNumber string `json:"visitAccountNumber" validate:"required"`
	VisitDate          string `json:"visitDate" validate:"required"`
	Reason             string `json:"reason" validate:"required"`
}

// Ingest accepts a batch of visit records, stages it and dispatches one
// reconciliation job. The whole batch is rejected when any record is
// structurally invalid; nothing is staged in that case.
func (h *Handler) Ingest(c echo.Context) error {
	var payload []VisitRecordPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON array of visit records")
	}
	if len(payload) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one visit record is required")
	}

	records := make([]staging.VisitRecord, 0, len(payload))
	for i, rec := range payload {
		if err := h.validate.Struct(rec); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("record %d: %v", i+1, err))
		}
		if _, err := time.Parse(staging.DateLayout, rec.BirthDate); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("record %d: birthDate must be a %s date", i+1, staging.DateLayout))
		}
		if _, err := time.Parse(staging.DateLayout, rec.VisitDate); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("record %d: visitDate must be a %s date", i+1, staging.DateLayout))
		}

		records = append(records, staging.VisitRecord{
			MRN:           rec.MRN,
			FirstName:     rec.FirstName,
			LastName:      rec.LastName,
			BirthDate:     rec.BirthDate,
			AccountNumber: rec.VisitAccountNumber,
			VisitDate:     rec.VisitDate,
			Reason:        rec.Reason,
		})
	}

	receipt, err := h.service.Ingest(c.Request().Context(), records)
	if err != nil {
		h.log.Error("Ingestion failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "ingestion failed")
	}

	return c.JSON(http.StatusAccepted, receipt)
}
