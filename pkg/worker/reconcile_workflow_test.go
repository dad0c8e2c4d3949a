package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/pkg/temporal"
)

func newWorkflowTestEnv(t *testing.T, w *Worker) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(w.ReconcileStagedFileWorkflow)
	return env
}

func TestReconcileStagedFileWorkflow_Completed(t *testing.T) {
	w := &Worker{chunkSize: 2, progressInterval: 1000, log: zap.NewNop()}
	env := newWorkflowTestEnv(t, w)

	var chunks []ProcessChunkActivityParam
	env.OnActivity(w.CountStagedRecordsActivity, mock.Anything, mock.Anything).
		Return(&CountStagedRecordsActivityResult{TotalRecords: 5}, nil)
	env.OnActivity(w.ProcessChunkActivity, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, param *ProcessChunkActivityParam) (*ProcessChunkActivityResult, error) {
			chunks = append(chunks, *param)
			result := &ProcessChunkActivityResult{Processed: param.Limit, Errors: []string{}}
			result.Tallies.PatientsCreated = param.Limit
			result.Tallies.VisitsCreated = param.Limit
			return result, nil
		})
	env.OnActivity(w.DeleteStagedObjectActivity, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(w.ReconcileStagedFileWorkflow, temporal.ReconcileWorkflowParam{ObjectName: "batch.csv"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result temporal.ReconcileResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, temporal.StatusCompleted, result.Status)
	require.Equal(t, "batch.csv", result.ObjectName)
	require.Equal(t, 5, result.TotalRecords)
	require.Equal(t, 5, result.ProcessedRecords)
	require.Equal(t, 5, result.PatientsCreated)
	require.Equal(t, 5, result.VisitsCreated)
	require.Equal(t, 0, result.ErrorCount)
	require.Empty(t, result.Error)

	// 5 rows at chunk size 2 means three windows, the last one short.
	require.Len(t, chunks, 3)
	require.Equal(t, 0, chunks[0].Offset)
	require.Equal(t, 2, chunks[0].Limit)
	require.Equal(t, 2, chunks[1].Offset)
	require.Equal(t, 2, chunks[1].Limit)
	require.Equal(t, 4, chunks[2].Offset)
	require.Equal(t, 1, chunks[2].Limit)

	// Later chunks see the accumulated state of earlier ones.
	require.Equal(t, 4, chunks[2].Processed)
	require.Equal(t, 4, chunks[2].Tallies.PatientsCreated)

	// The progress query reflects the final accumulated state.
	val, err := env.QueryWorkflow(temporal.ProgressQueryType)
	require.NoError(t, err)
	var progress temporal.Progress
	require.NoError(t, val.Get(&progress))
	require.Equal(t, 5, progress.ProcessedCount)
	require.Equal(t, 5, progress.TotalCount)
	require.InDelta(t, 100.0, progress.PercentComplete, 0.01)
}

func TestReconcileStagedFileWorkflow_RowErrorsDoNotFailRun(t *testing.T) {
	w := &Worker{chunkSize: 10, progressInterval: 1000, log: zap.NewNop()}
	env := newWorkflowTestEnv(t, w)

	env.OnActivity(w.CountStagedRecordsActivity, mock.Anything, mock.Anything).
		Return(&CountStagedRecordsActivityResult{TotalRecords: 3}, nil)
	env.OnActivity(w.ProcessChunkActivity, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, param *ProcessChunkActivityParam) (*ProcessChunkActivityResult, error) {
			result := &ProcessChunkActivityResult{
				Processed: 3,
				Errors:    []string{"record 2 (MRN=M2): duplicate visit"},
			}
			result.Tallies.PatientsCreated = 2
			result.Tallies.VisitsCreated = 2
			return result, nil
		})
	env.OnActivity(w.DeleteStagedObjectActivity, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(w.ReconcileStagedFileWorkflow, temporal.ReconcileWorkflowParam{ObjectName: "batch.csv"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result temporal.ReconcileResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, temporal.StatusCompleted, result.Status)
	require.Equal(t, 3, result.ProcessedRecords)
	require.Equal(t, 1, result.ErrorCount)
	require.Equal(t, []string{"record 2 (MRN=M2): duplicate visit"}, result.Errors)
}

func TestReconcileStagedFileWorkflow_CountFailureFailsRun(t *testing.T) {
	w := &Worker{chunkSize: 2, progressInterval: 1000, log: zap.NewNop()}
	env := newWorkflowTestEnv(t, w)

	env.OnActivity(w.CountStagedRecordsActivity, mock.Anything, mock.Anything).
		Return(nil, errors.New("object not found"))

	env.ExecuteWorkflow(w.ReconcileStagedFileWorkflow, temporal.ReconcileWorkflowParam{ObjectName: "gone.csv"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result temporal.ReconcileResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, temporal.StatusFailed, result.Status)
	require.Contains(t, result.Error, "workflow failed")
	require.Equal(t, 0, result.ProcessedRecords)
}

func TestReconcileStagedFileWorkflow_ChunkFailureFailsRun(t *testing.T) {
	w := &Worker{chunkSize: 2, progressInterval: 1000, log: zap.NewNop()}
	env := newWorkflowTestEnv(t, w)

	env.OnActivity(w.CountStagedRecordsActivity, mock.Anything, mock.Anything).
		Return(&CountStagedRecordsActivityResult{TotalRecords: 4}, nil)
	env.OnActivity(w.ProcessChunkActivity, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, param *ProcessChunkActivityParam) (*ProcessChunkActivityResult, error) {
			if param.Offset == 0 {
				result := &ProcessChunkActivityResult{Processed: 2, Errors: []string{}}
				result.Tallies.PatientsCreated = 2
				result.Tallies.VisitsCreated = 2
				return result, nil
			}
			return nil, errors.New("object vanished mid-run")
		})

	env.ExecuteWorkflow(w.ReconcileStagedFileWorkflow, temporal.ReconcileWorkflowParam{ObjectName: "batch.csv"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result temporal.ReconcileResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, temporal.StatusFailed, result.Status)
	require.Contains(t, result.Error, "workflow failed")
	// State from the completed first chunk is preserved in the summary.
	require.Equal(t, 2, result.ProcessedRecords)
	require.Equal(t, 2, result.PatientsCreated)
}

func TestReconcileStagedFileWorkflow_CleanupFailureStillCompletes(t *testing.T) {
	w := &Worker{chunkSize: 2, progressInterval: 1000, log: zap.NewNop()}
	env := newWorkflowTestEnv(t, w)

	env.OnActivity(w.CountStagedRecordsActivity, mock.Anything, mock.Anything).
		Return(&CountStagedRecordsActivityResult{TotalRecords: 2}, nil)
	env.OnActivity(w.ProcessChunkActivity, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, param *ProcessChunkActivityParam) (*ProcessChunkActivityResult, error) {
			result := &ProcessChunkActivityResult{Processed: 2, Errors: []string{}}
			result.Tallies.PatientsCreated = 2
			result.Tallies.VisitsCreated = 2
			return result, nil
		})
	env.OnActivity(w.DeleteStagedObjectActivity, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	env.ExecuteWorkflow(w.ReconcileStagedFileWorkflow, temporal.ReconcileWorkflowParam{ObjectName: "batch.csv"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result temporal.ReconcileResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, temporal.StatusCompleted, result.Status)
	require.Equal(t, 2, result.ProcessedRecords)
}

func TestReconcileStagedFileWorkflow_EmptyBatch(t *testing.T) {
	w := &Worker{chunkSize: 2, progressInterval: 1000, log: zap.NewNop()}
	env := newWorkflowTestEnv(t, w)

	env.OnActivity(w.CountStagedRecordsActivity, mock.Anything, mock.Anything).
		Return(&CountStagedRecordsActivityResult{TotalRecords: 0}, nil)
	env.OnActivity(w.DeleteStagedObjectActivity, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(w.ReconcileStagedFileWorkflow, temporal.ReconcileWorkflowParam{ObjectName: "empty.csv"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result temporal.ReconcileResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, temporal.StatusCompleted, result.Status)
	require.Equal(t, 0, result.TotalRecords)
	require.Equal(t, 0, result.ProcessedRecords)
	require.Equal(t, 0, result.ErrorCount)
}
