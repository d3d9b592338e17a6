// Package main runs the EventConnect HTTP API with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventconnect/backend/config"
	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/activities"
	"github.com/eventconnect/backend/internal/api"
	"github.com/eventconnect/backend/internal/attendance"
	"github.com/eventconnect/backend/internal/auth"
	"github.com/eventconnect/backend/internal/exports"
	"github.com/eventconnect/backend/internal/notifications"
	"github.com/eventconnect/backend/internal/users"
	"github.com/eventconnect/backend/internal/workshops"
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
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Exports stay disabled (503) without an S3 bucket.
	var (
		exportQueue  exports.Enqueuer
		exportSigner exports.Presigner
	)
	if cfg.AWS.Enabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			Endpoint:             cfg.AWS.Endpoint,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			exportQueue = queue.NewQueue(rdb.Client, logger)
			exportSigner = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	revoker := auth.NewRedisRevoker(rdb)

	authSvc := auth.NewService(auth.NewRepository(pool), jwtService, revoker, cfg.JWT.AllowAdminSignup, logger)
	workshopSvc := workshops.NewService(workshops.NewRepository(pool), workshops.Options{
		AllowLateUnregister: cfg.Attendance.AllowLateUnregister,
	}, logger)
	attendanceSvc := attendance.NewService(attendance.NewRepository(pool), logger)
	notificationSvc := notifications.NewService(notifications.NewRepository(pool), logger)
	userSvc := users.NewService(users.NewRepository(pool), logger)
	exportSvc := exports.NewService(exports.NewRepository(pool), exportQueue, exportSigner, logger)

	router := api.NewRouter(ctx,
		api.Options{
			CORSOrigins: cfg.Server.CORSAllowedOrigins,
			AuthRPS:     cfg.RateLimit.AuthRPS,
			AuthBurst:   cfg.RateLimit.AuthBurst,
			ScanLimit:   cfg.Attendance.ScanLimit,
			ScanWindow:  cfg.Attendance.ScanWindow,
		},
		api.Security{
			JWT:         jwtService,
			Revocations: revoker,
			Counter:     rdb,
			Policy:      access.DefaultPolicy(),
		},
		api.Handlers{
			Auth:          auth.NewHandler(authSvc, logger),
			Workshops:     workshops.NewHandler(workshopSvc, logger),
			Attendance:    attendance.NewHandler(attendanceSvc, logger),
			Notifications: notifications.NewHandler(notificationSvc, logger),
			Users:         users.NewHandler(userSvc, logger),
			Activities:    activities.NewHandler(activities.NewRepository(pool), logger),
			Exports:       exports.NewHandler(exportSvc, logger),
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
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
