package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.uber.org/zap"

	errorsx "github.com/carelake/intake-backend/pkg/errors"
	"github.com/carelake/intake-backend/pkg/temporal"
)

// JobStatus is the polled view of one reconciliation job. Result is only
// populated once the workflow reached a terminal state; Progress only while
// it is still running (and only if a progress checkpoint has been published).
type JobStatus struct {
	JobID    string                    `json:"jobId"`
	Status   string                    `json:"status"`
	Result   *temporal.ReconcileResult `json:"result,omitempty"`
	Progress *temporal.Progress        `json:"progress,omitempty"`
}

// GetJobStatus resolves a job handle against the workflow engine and, for
// in-flight jobs, the best-effort progress channel.
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	desc, err := s.temporalClient.DescribeWorkflowExecution(ctx, jobID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("job %s: %w", jobID, errorsx.ErrNotFound)
		}
		return nil, fmt.Errorf("describing job %s: %w", jobID, err)
	}

	status := &JobStatus{JobID: jobID}

	switch desc.WorkflowExecutionInfo.Status {
	case enums.WORKFLOW_EXECUTION_STATUS_RUNNING:
		status.Status = "running"
		status.Progress = s.progress(ctx, jobID)
	case enums.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var result temporal.ReconcileResult
		if err := s.temporalClient.GetWorkflow(ctx, jobID, "").Get(ctx, &result); err != nil {
			return nil, fmt.Errorf("fetching result of job %s: %w", jobID, err)
		}
		status.Status = result.Status
		status.Result = &result
	default:
		// Failed, terminated, timed out or canceled before producing a
		// terminal summary.
		status.Status = temporal.StatusFailed
	}

	return status, nil
}

func (s *Service) progress(ctx context.Context, jobID string) *temporal.Progress {
	val, err := s.redisClient.Get(ctx, temporal.ProgressKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		s.log.Warn("Failed to read job progress", zap.String("jobID", jobID), zap.Error(err))
		return nil
	}

	var p temporal.Progress
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		s.log.Warn("Malformed job progress payload", zap.String("jobID", jobID), zap.Error(err))
		return nil
	}
	return &p
}
