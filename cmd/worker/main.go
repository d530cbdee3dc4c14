// Package main runs the background job worker (snapshot CSV archive to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crowdcue/backend/config"
	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/livestate"
	"github.com/crowdcue/backend/internal/worker"
	"github.com/crowdcue/backend/pkg/database"
	"github.com/crowdcue/backend/pkg/docstore"
	"github.com/crowdcue/backend/pkg/queue"
	"github.com/crowdcue/backend/pkg/redis"
	"github.com/crowdcue/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SnapshotsBucket: cfg.AWS.SnapshotsBucket,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	store := docstore.NewPostgres(pool)
	projector := livestate.NewProjector(store)
	eventRepo := events.NewRepository(store)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewSnapshotArchiver(projector, s3Client, jobQueue, eventRepo, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
