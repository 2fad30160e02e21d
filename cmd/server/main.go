// Package main is the entry point for the inventory tracker server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mkravets/inventory-tracker/internal/assist"
	"github.com/mkravets/inventory-tracker/internal/config"
	"github.com/mkravets/inventory-tracker/internal/inventory"
	"github.com/mkravets/inventory-tracker/internal/media"
	"github.com/mkravets/inventory-tracker/internal/server"
	"github.com/mkravets/inventory-tracker/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("storage_enabled", cfg.StorageEnabled()),
		zap.Bool("assist_enabled", cfg.AssistEnabled()),
	)

	ctx := context.Background()

	// Create inventory store
	itemStore, err := createStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create inventory store", zap.Error(err))
	}

	// Create image uploader
	uploader, err := createUploader(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create image uploader", zap.Error(err))
	}

	// Create assistant pipeline
	assistant, err := createAssistant(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create assistant", zap.Error(err))
	}

	// Create inventory service and prime the snapshot
	svc := inventory.New(itemStore, uploader, cfg.PlaceholderImageURL, logger)
	if err := svc.Refresh(ctx); err != nil {
		logger.Fatal("failed to load initial inventory", zap.Error(err))
	}

	// Create and start server
	srv := server.New(cfg, logger, svc, assistant)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Graceful shutdown
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// createStore creates the inventory store for the configured backend.
func createStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		logger.Info("store backend: redis", zap.String("addr", cfg.RedisAddr))
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisStore := store.NewRedisStore(client)
		if err := redisStore.Ping(ctx); err != nil {
			return nil, err
		}
		return redisStore, nil
	default:
		logger.Info("store backend: memory")
		return store.NewMemoryStore(), nil
	}
}

// createUploader creates the image uploader. Without a configured
// storage endpoint images are held in process memory, which is only
// useful for local development.
func createUploader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (media.Uploader, error) {
	if !cfg.StorageEnabled() {
		logger.Info("object storage not configured, using in-memory uploader")
		return media.NewMemoryUploader("http://localhost" + cfg.Address()), nil
	}

	logger.Info("object storage configured",
		zap.String("endpoint", cfg.StorageEndpoint),
		zap.String("bucket", cfg.StorageBucket),
	)

	uploader, err := media.NewMinioUploader(media.MinioConfig{
		Endpoint:      cfg.StorageEndpoint,
		AccessKey:     cfg.StorageAccessKey,
		SecretKey:     cfg.StorageSecretKey,
		UseSSL:        cfg.StorageUseSSL,
		Bucket:        cfg.StorageBucket,
		Prefix:        cfg.StoragePrefix,
		PublicBaseURL: cfg.StoragePublicURL,
	})
	if err != nil {
		return nil, err
	}

	if err := uploader.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	return uploader, nil
}

// createAssistant creates the classification and recipe pipeline.
// Without an API key the pipeline is wired but reports not configured.
func createAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*assist.Assistant, error) {
	if !cfg.AssistEnabled() {
		logger.Info("assistant model not configured")
		return assist.New(nil, logger), nil
	}

	logger.Info("assistant model configured", zap.String("model", cfg.GeminiModel))

	geminiModel, err := assist.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	return assist.New(geminiModel, logger), nil
}
