package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/carelake/intake-backend/config"
	"github.com/carelake/intake-backend/pkg/logger"
	"github.com/carelake/intake-backend/pkg/minio"
	"github.com/carelake/intake-backend/pkg/repository"
	"github.com/carelake/intake-backend/pkg/temporal"

	database "github.com/carelake/intake-backend/pkg/db"
	intakeworker "github.com/carelake/intake-backend/pkg/worker"
)

func main() {
	cfg, err := config.Init(config.ParseConfigFlag())
	if err != nil {
		log.Fatal(err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zapLogger := logger.New(cfg.Server.Debug)
	defer func() {
		// can't handle the error due to https://github.com/uber-go/zap/issues/880
		_ = zapLogger.Sync()
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	minioClient, err := minio.NewMinioClientAndInitBucket(ctx, cfg.Minio, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize minio client", zap.Error(err))
	}

	redisClient := redis.NewClient(&cfg.Cache.Redis.RedisOptions)
	defer redisClient.Close()

	temporalClient, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		zapLogger.Fatal("failed to connect to temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	w := intakeworker.NewWorker(
		repository.NewRepository(db),
		minioClient,
		redisClient,
		cfg.Worker,
		zapLogger,
	)

	tw := worker.New(temporalClient, temporal.TaskQueue, worker.Options{})
	tw.RegisterWorkflow(w.ReconcileStagedFileWorkflow)
	tw.RegisterActivity(w.CountStagedRecordsActivity)
	tw.RegisterActivity(w.ProcessChunkActivity)
	tw.RegisterActivity(w.DeleteStagedObjectActivity)

	zapLogger.Info("intake-backend worker started", zap.String("taskQueue", temporal.TaskQueue))
	if err := tw.Run(worker.InterruptCh()); err != nil {
		zapLogger.Fatal("unable to start worker", zap.Error(err))
	}
}
