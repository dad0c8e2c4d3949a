package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/pkg/minio"
	"github.com/carelake/intake-backend/pkg/repository"
)

// Service implements the synchronous surface of the intake backend: batch
// ingestion, patient queries and job-status lookups. The asynchronous
// reconciliation itself runs in pkg/worker.
type Service struct {
	repository     repository.Repository
	minio          minio.MinioI
	temporalClient client.Client
	redisClient    redis.UniversalClient
	log            *zap.Logger
}

// NewService wires the service with its collaborators.
func NewService(
	repo repository.Repository,
	minioClient minio.MinioI,
	temporalClient client.Client,
	redisClient redis.UniversalClient,
	log *zap.Logger,
) *Service {
	return &Service{
		repository:     repo,
		minio:          minioClient,
		temporalClient: temporalClient,
		redisClient:    redisClient,
		log:            log,
	}
}

// GetPatientByID returns one patient with its person and visit list.
func (s *Service) GetPatientByID(ctx context.Context, id int64) (*repository.Patient, error) {
	return s.repository.GetPatientByID(ctx, id)
}

// ListPatients returns one page of patients matching the filter, with the
// total match count.
func (s *Service) ListPatients(ctx context.Context, page, pageSize int, filter repository.PatientFilter) ([]*repository.Patient, int64, error) {
	return s.repository.ListPatients(ctx, page, pageSize, filter)
}
