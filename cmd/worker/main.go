// Package main runs the background job worker (attendance exports to S3).
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventconnect/backend/config"
	"github.com/eventconnect/backend/internal/attendance"
	"github.com/eventconnect/backend/internal/exports"
	"github.com/eventconnect/backend/internal/worker"
	"github.com/eventconnect/backend/pkg/database"
	"github.com/eventconnect/backend/pkg/queue"
	"github.com/eventconnect/backend/pkg/redis"
	"github.com/eventconnect/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	if !cfg.AWS.Enabled() {
		logger.Fatal("worker requires AWS_REGION and AWS_S3_EXPORTS_BUCKET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		Endpoint:             cfg.AWS.Endpoint,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ExportsBucket:        cfg.AWS.ExportsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	processor := worker.NewExportProcessor(
		exports.NewRepository(pool),
		attendance.NewRepository(pool),
		s3Client,
		queue.NewQueue(rdb.Client, logger),
		logger,
	)

	logger.Info("worker started")
	processor.Run(ctx)
	logger.Info("worker stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		config.Level = lvl
	}
	logger, _ := config.Build()
	return logger
}
