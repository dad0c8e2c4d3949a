package worker

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/carelake/intake-backend/pkg/temporal"
)

// ReconcileStagedFileWorkflow drives one reconciliation run over a staged
// CSV object: count the rows, process them in fixed-size chunks with per-row
// error isolation, then clean up the staged object. One invocation is one
// attempt; re-running over the same object is safe because every downstream
// write is keyed by natural identifiers (the create-vs-update tallies shift
// to "updated" on replay, which is accepted).
//
// Workflow-fatal conditions (staged object unreachable) yield a terminal
// result with status "failed" rather than a workflow error, so the job
// status surface always has a summary to report.
func (w *Worker) ReconcileStagedFileWorkflow(ctx workflow.Context, param temporal.ReconcileWorkflowParam) (*temporal.ReconcileResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting ReconcileStagedFileWorkflow", "objectName", param.ObjectName)

	result := &temporal.ReconcileResult{
		Status:     temporal.StatusCompleted,
		ObjectName: param.ObjectName,
		Errors:     []string{},
	}

	var progress temporal.Progress
	if err := workflow.SetQueryHandler(ctx, temporal.ProgressQueryType, func() (temporal.Progress, error) {
		return progress, nil
	}); err != nil {
		return nil, fmt.Errorf("registering progress query handler: %w", err)
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Fetch and count the staged rows. Failure here means no row can be
	// processed: the run terminates as failed.
	var count CountStagedRecordsActivityResult
	err := workflow.ExecuteActivity(ctx, w.CountStagedRecordsActivity, &CountStagedRecordsActivityParam{
		ObjectName: param.ObjectName,
	}).Get(ctx, &count)
	if err != nil {
		logger.Error("Staged object unreachable, failing run",
			"objectName", param.ObjectName,
			"error", err.Error())
		result.Status = temporal.StatusFailed
		result.Error = fmt.Sprintf("workflow failed: %s", err.Error())
		return result, nil
	}
	result.TotalRecords = count.TotalRecords

	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID

	// Process the batch in fixed-size chunks. Each completed chunk is a
	// durable checkpoint: a crashed run re-processes at most one chunk.
	for offset := 0; offset < count.TotalRecords; offset += w.chunkSize {
		limit := w.chunkSize
		if rest := count.TotalRecords - offset; rest < limit {
			limit = rest
		}

		var chunk ProcessChunkActivityResult
		err := workflow.ExecuteActivity(ctx, w.ProcessChunkActivity, &ProcessChunkActivityParam{
			ObjectName: param.ObjectName,
			Offset:     offset,
			Limit:      limit,
			WorkflowID: workflowID,
			Processed:  result.ProcessedRecords,
			Total:      count.TotalRecords,
			Tallies:    result.Tallies,
		}).Get(ctx, &chunk)
		if err != nil {
			// The staged object disappeared mid-run or the chunk is
			// unreadable; row-level errors never surface here.
			logger.Error("Chunk processing failed, failing run",
				"objectName", param.ObjectName,
				"offset", offset,
				"error", err.Error())
			result.Status = temporal.StatusFailed
			result.Error = fmt.Sprintf("workflow failed: %s", err.Error())
			result.ErrorCount = len(result.Errors)
			return result, nil
		}

		result.ProcessedRecords += chunk.Processed
		result.Tallies.Add(chunk.Tallies)
		result.Errors = append(result.Errors, chunk.Errors...)

		percent := 0.0
		if count.TotalRecords > 0 {
			percent = float64(result.ProcessedRecords) / float64(count.TotalRecords) * 100
		}
		progress = temporal.Progress{
			ProcessedCount:  result.ProcessedRecords,
			TotalCount:      count.TotalRecords,
			PercentComplete: percent,
			Tallies:         result.Tallies,
		}
	}
	result.ErrorCount = len(result.Errors)

	// Cleanup is best-effort: an undeleted staged object is log noise, not a
	// failed run.
	err = workflow.ExecuteActivity(ctx, w.DeleteStagedObjectActivity, &DeleteStagedObjectActivityParam{
		ObjectName: param.ObjectName,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("Failed to delete staged object, continuing",
			"objectName", param.ObjectName,
			"error", err.Error())
	}

	logger.Info("ReconcileStagedFileWorkflow completed",
		"objectName", param.ObjectName,
		"totalRecords", result.TotalRecords,
		"patientsCreated", result.PatientsCreated,
		"patientsUpdated", result.PatientsUpdated,
		"visitsCreated", result.VisitsCreated,
		"visitsUpdated", result.VisitsUpdated,
		"errorCount", result.ErrorCount)

	return result, nil
}
