package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/pkg/staging"
	"github.com/carelake/intake-backend/pkg/temporal"
)

// progressTTL bounds how long a run's last progress checkpoint survives in
// Redis after the run stops publishing.
const progressTTL = 24 * time.Hour

// CountStagedRecordsActivityParam defines parameters for counting the rows of
// a staged object.
type CountStagedRecordsActivityParam struct {
	ObjectName string
}

// CountStagedRecordsActivityResult carries the row count of the staged object.
type CountStagedRecordsActivityResult struct {
	TotalRecords int
}

// ProcessChunkActivityParam defines one window of staged rows to reconcile.
// Processed and Tallies carry the run's accumulated state so progress
// checkpoints report whole-run numbers.
type ProcessChunkActivityParam struct {
	ObjectName string
	Offset     int
	Limit      int
	WorkflowID string
	Processed  int
	Total      int
	Tallies    temporal.Tallies
}

// ProcessChunkActivityResult aggregates one chunk's outcome.
type ProcessChunkActivityResult struct {
	Processed int
	Tallies   temporal.Tallies
	Errors    []string
}

// DeleteStagedObjectActivityParam defines parameters for staged-object cleanup.
type DeleteStagedObjectActivityParam struct {
	ObjectName string
}

// CountStagedRecordsActivity fetches the staged CSV and returns its row
// count. A failure here is workflow-fatal: the staged object is unreachable
// or unreadable, so no rows can be processed.
func (w *Worker) CountStagedRecordsActivity(ctx context.Context, param *CountStagedRecordsActivityParam) (*CountStagedRecordsActivityResult, error) {
	w.log.Info("Starting CountStagedRecordsActivity", zap.String("objectName", param.ObjectName))

	content, err := w.minio.GetFile(ctx, param.ObjectName)
	if err != nil {
		w.log.Error("Failed to fetch staged object",
			zap.String("objectName", param.ObjectName),
			zap.Error(err))
		return nil, temporalsdk.NewApplicationErrorWithCause(
			fmt.Sprintf("fetching staged object %s: %s", param.ObjectName, err),
			countStagedRecordsActivityError,
			err,
		)
	}

	total, err := staging.Count(bytes.NewReader(content))
	if err != nil {
		w.log.Error("Failed to parse staged object",
			zap.String("objectName", param.ObjectName),
			zap.Error(err))
		return nil, temporalsdk.NewApplicationErrorWithCause(
			fmt.Sprintf("parsing staged object %s: %s", param.ObjectName, err),
			countStagedRecordsActivityError,
			err,
		)
	}

	w.log.Info("Staged object counted",
		zap.String("objectName", param.ObjectName),
		zap.Int("totalRecords", total))

	return &CountStagedRecordsActivityResult{TotalRecords: total}, nil
}

// ProcessChunkActivity reconciles the rows in [Offset, Offset+Limit) of the
// staged object. Rows are processed independently in source order; a
// row-level failure is recorded with its 1-based index and MRN and never
// aborts the chunk. Progress is published at a fixed row cadence as
// best-effort telemetry.
func (w *Worker) ProcessChunkActivity(ctx context.Context, param *ProcessChunkActivityParam) (*ProcessChunkActivityResult, error) {
	w.log.Info("Starting ProcessChunkActivity",
		zap.String("objectName", param.ObjectName),
		zap.Int("offset", param.Offset),
		zap.Int("limit", param.Limit))

	content, err := w.minio.GetFile(ctx, param.ObjectName)
	if err != nil {
		return nil, temporalsdk.NewApplicationErrorWithCause(
			fmt.Sprintf("fetching staged object %s: %s", param.ObjectName, err),
			processChunkActivityError,
			err,
		)
	}

	records, err := staging.ReadWindow(bytes.NewReader(content), param.Offset, param.Limit)
	if err != nil {
		return nil, temporalsdk.NewApplicationErrorWithCause(
			fmt.Sprintf("parsing staged object %s: %s", param.ObjectName, err),
			processChunkActivityError,
			err,
		)
	}

	result := &ProcessChunkActivityResult{Errors: []string{}}
	var running temporal.Tallies

	for i, rec := range records {
		rowIndex := param.Offset + i + 1

		outcome, err := w.reconciler.ReconcileRow(ctx, rec)
		if err != nil {
			mrn := rec.MRN
			if mrn == "" {
				mrn = "unknown"
			}
			result.Errors = append(result.Errors, fmt.Sprintf("record %d (MRN=%s): %v", rowIndex, mrn, err))
		} else {
			if outcome.PatientCreated {
				result.Tallies.PatientsCreated++
			} else {
				result.Tallies.PatientsUpdated++
			}
			if outcome.VisitCreated {
				result.Tallies.VisitsCreated++
			} else {
				result.Tallies.VisitsUpdated++
			}
		}
		result.Processed++

		running = param.Tallies
		running.Add(result.Tallies)

		processedSoFar := param.Processed + result.Processed
		if processedSoFar%w.progressInterval == 0 {
			w.publishProgress(ctx, param.WorkflowID, processedSoFar, param.Total, running)
		}
	}

	w.log.Info("Chunk processed",
		zap.String("objectName", param.ObjectName),
		zap.Int("offset", param.Offset),
		zap.Int("processed", result.Processed),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// DeleteStagedObjectActivity removes the staged CSV after processing.
func (w *Worker) DeleteStagedObjectActivity(ctx context.Context, param *DeleteStagedObjectActivityParam) error {
	w.log.Info("Starting DeleteStagedObjectActivity", zap.String("objectName", param.ObjectName))

	if err := w.minio.DeleteFile(ctx, param.ObjectName); err != nil {
		w.log.Error("Failed to delete staged object",
			zap.String("objectName", param.ObjectName),
			zap.Error(err))
		return temporalsdk.NewApplicationErrorWithCause(
			fmt.Sprintf("deleting staged object %s: %s", param.ObjectName, err),
			deleteStagedObjectActivityError,
			err,
		)
	}

	w.log.Info("Staged object deleted", zap.String("objectName", param.ObjectName))
	return nil
}

// publishProgress writes a progress checkpoint to Redis. Failures are logged
// and swallowed so telemetry never blocks row processing.
func (w *Worker) publishProgress(ctx context.Context, workflowID string, processed, total int, tallies temporal.Tallies) {
	percent := 0.0
	if total > 0 {
		percent = float64(processed) / float64(total) * 100
	}
	payload, err := json.Marshal(temporal.Progress{
		ProcessedCount:  processed,
		TotalCount:      total,
		PercentComplete: percent,
		Tallies:         tallies,
	})
	if err != nil {
		w.log.Warn("Failed to encode progress", zap.Error(err))
		return
	}

	if err := w.redisClient.Set(ctx, temporal.ProgressKey(workflowID), payload, progressTTL).Err(); err != nil {
		w.log.Warn("Failed to publish progress",
			zap.String("workflowID", workflowID),
			zap.Error(err))
	}
}

// Activity error type constants
const (
	countStagedRecordsActivityError = "CountStagedRecordsActivity"
	processChunkActivityError       = "ProcessChunkActivity"
	deleteStagedObjectActivityError = "DeleteStagedObjectActivity"
)
