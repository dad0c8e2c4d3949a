package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/pkg/staging"
	"github.com/carelake/intake-backend/pkg/temporal"
)

// IngestReceipt acknowledges acceptance-for-processing. It never implies
// processing success; the outcome is only knowable through the job status
// surface.
type IngestReceipt struct {
	Message          string `json:"message"`
	RecordsReceived  int    `json:"recordsReceived"`
	StagedObjectName string `json:"stagedObjectName"`
	JobID            string `json:"jobId"`
}

// Ingest serializes the batch to the staging CSV format, stores it in the
// blob store and starts one reconciliation workflow referencing the staged
// object.
func (s *Service) Ingest(ctx context.Context, records []staging.VisitRecord) (*IngestReceipt, error) {
	content, err := staging.Encode(records)
	if err != nil {
		return nil, fmt.Errorf("encoding staged batch: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	objectName := fmt.Sprintf("patient-intake-%s-%s.csv", time.Now().UTC().Format("20060102-150405"), id.String())

	if err := s.minio.UploadFile(ctx, objectName, content, "text/csv"); err != nil {
		return nil, fmt.Errorf("staging batch %s: %w", objectName, err)
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:                    "reconcile-" + id.String(),
		TaskQueue:             temporal.TaskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
	run, err := s.temporalClient.ExecuteWorkflow(ctx, workflowOptions,
		"ReconcileStagedFileWorkflow",
		temporal.ReconcileWorkflowParam{ObjectName: objectName})
	if err != nil {
		return nil, fmt.Errorf("starting reconcile workflow for %s: %w", objectName, err)
	}

	s.log.Info("Batch staged and reconcile workflow started",
		zap.String("objectName", objectName),
		zap.String("jobID", run.GetID()),
		zap.Int("records", len(records)))

	return &IngestReceipt{
		Message:          "Data ingestion started successfully",
		RecordsReceived:  len(records),
		StagedObjectName: objectName,
		JobID:            run.GetID(),
	}, nil
}
