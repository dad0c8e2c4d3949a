package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/carelake/intake-backend/config"
	"github.com/carelake/intake-backend/pkg/handler"
	"github.com/carelake/intake-backend/pkg/logger"
	"github.com/carelake/intake-backend/pkg/minio"
	"github.com/carelake/intake-backend/pkg/repository"
	"github.com/carelake/intake-backend/pkg/service"

	database "github.com/carelake/intake-backend/pkg/db"
)

const gracefulShutdownTimeout = 15 * time.Second

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

	svc := service.NewService(
		repository.NewRepository(db),
		minioClient,
		temporalClient,
		redisClient,
		zapLogger,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	handler.New(svc, zapLogger).Register(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("http server stopped", zap.Error(err))
		}
	}()
	zapLogger.Info("intake-backend API server started", zap.Int("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, gracefulShutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
