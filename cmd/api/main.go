package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvBuilder/internal/api"
	"cvBuilder/internal/auth"
	"cvBuilder/internal/config"
	"cvBuilder/internal/database"
	"cvBuilder/internal/pdf"
	"cvBuilder/internal/render"
	"cvBuilder/internal/resume"
	"cvBuilder/internal/storage"
	"cvBuilder/internal/store"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	verifier, err := auth.LoadVerifier(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("load jwt public key: %v", err)
	}

	if err := cfg.MinIO.Validate(); err != nil {
		log.Fatalf("invalid minio config: %v", err)
	}
	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	exporter, err := pdf.NewExporterFromConfig(cfg.Render, logger)
	if err != nil {
		log.Fatalf("init pdf exporter: %v", err)
	}
	service := resume.NewServiceFromDB(db, render.MustNew(), exporter)

	router := api.NewRouter(logger, cfg.API.MetricsSecret)
	api.RegisterRoutes(router, api.Dependencies{
		Service:  service,
		Sections: store.NewSections(db),
		Verifier: verifier,
		Queue:    asynqClient,
		Storage:  storageClient,
		Redis:    redisClient,
		Logger:   logger,
		Export: api.ExportOptions{
			MaxPerHour: cfg.Export.MaxPerHour,
			MaxRetry:   cfg.Export.MaxRetry,
			LinkTTL:    cfg.Export.LinkTTL,
		},
		AllowedOrigins: cfg.API.Origins(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr), slog.String("render_engine", cfg.Render.Engine))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	// 同步导出可能持有沙箱，留出一个渲染时限让其完成。
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Render.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", slog.Any("error", err))
	}
	logger.Info("api stopped")
}
