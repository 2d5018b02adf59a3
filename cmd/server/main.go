package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prudhvinik1/spectramonitor/internal/config"
	"github.com/prudhvinik1/spectramonitor/internal/database"
	"github.com/prudhvinik1/spectramonitor/internal/handlers"
	"github.com/prudhvinik1/spectramonitor/internal/logger"
	"github.com/prudhvinik1/spectramonitor/internal/metrics"
	"github.com/prudhvinik1/spectramonitor/internal/relay"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
	"github.com/prudhvinik1/spectramonitor/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
	zlog.Info("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, zlog)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer postgresPool.Close()

	if err := database.RunMigrations(ctx, postgresPool, zlog); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var redisClient *redis.Client
	var presenceRepo repositories.PresenceRepository
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL, zlog)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer redisClient.Close()
		presenceRepo = repositories.NewRedisPresenceRepository(redisClient, cfg.PresenceTTL)
	} else {
		zlog.Info("REDIS_URL not set, running single-instance without presence cache")
	}

	deviceRepo := repositories.NewPostgresDeviceRepository(postgresPool)
	logRepo := repositories.NewPostgresLogRepository(postgresPool)
	appRepo := repositories.NewPostgresAppRepository(postgresPool)
	flagRepo := repositories.NewPostgresFeatureFlagRepository(postgresPool)
	crashRepo := repositories.NewPostgresCrashReportRepository(postgresPool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relayMetrics := metrics.NewRelay(registry)

	rt := relay.New(relay.Deps{
		Devices:  deviceRepo,
		Logs:     logRepo,
		Presence: presenceRepo,
		Redis:    redisClient,
		Options: relay.Options{
			SendQueue:       cfg.WSSendQueue,
			WriteTimeout:    cfg.WSWriteTimeout,
			MaxMessageBytes: cfg.WSMaxMessageBytes,
		},
		Log:             zlog,
		Metrics:         relayMetrics,
		PresenceRefresh: cfg.PresenceTTL / 2,
	})
	go rt.Run(ctx)

	router := handlers.NewRouter(handlers.Deps{
		Apps:               services.NewAppService(appRepo),
		Devices:            services.NewDeviceService(deviceRepo, presenceRepo, rt.Presence),
		Logs:               services.NewLogService(logRepo, rt.Ingest, cfg.LogHistoryLimit),
		Flags:              services.NewFlagService(flagRepo, rt.Broadcaster),
		Crashes:            services.NewCrashService(crashRepo, rt.Broadcaster),
		Realtime:           rt.Server,
		Metrics:            metrics.Handler(registry),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Log:                zlog,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	go func() {
		<-ctx.Done()
		zlog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("shutdown did not complete", zap.Error(err))
		}
	}()

	zlog.Info("starting server", zap.String("port", cfg.ServerPort), zap.String("env", cfg.Env))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
