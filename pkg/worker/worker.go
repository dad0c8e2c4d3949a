// Package worker hosts the asynchronous reconciliation workflow: the chunked,
// partially-fault-tolerant process that turns a staged CSV batch into
// consistent patient/person/visit state.
package worker

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carelake/intake-backend/config"
	"github.com/carelake/intake-backend/pkg/minio"
	"github.com/carelake/intake-backend/pkg/repository"
	"github.com/carelake/intake-backend/pkg/service"
)

// Worker bundles the collaborators of the reconciliation workflow and its
// activities.
type Worker struct {
	repository  repository.Repository
	minio       minio.MinioI
	redisClient redis.UniversalClient
	reconciler  *service.Reconciler

	chunkSize        int
	progressInterval int

	log *zap.Logger
}

// NewWorker creates a Worker with the given collaborators and tunables.
func NewWorker(
	repo repository.Repository,
	minioClient minio.MinioI,
	redisClient redis.UniversalClient,
	cfg config.WorkerConfig,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repository:       repo,
		minio:            minioClient,
		redisClient:      redisClient,
		reconciler:       service.NewReconciler(repo),
		chunkSize:        cfg.ChunkSize,
		progressInterval: cfg.ProgressInterval,
		log:              log,
	}
}
