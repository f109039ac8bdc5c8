package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asakaida/gakudan/internal/handlers"
	infracache "github.com/asakaida/gakudan/internal/infrastructure/cache"
	"github.com/asakaida/gakudan/internal/infrastructure/config"
	"github.com/asakaida/gakudan/internal/infrastructure/database"
	"github.com/asakaida/gakudan/internal/infrastructure/metrics"
	"github.com/asakaida/gakudan/internal/repositories/postgres"
	"github.com/asakaida/gakudan/internal/services"
	"github.com/asakaida/gakudan/pkg/cache"
	"github.com/asakaida/gakudan/pkg/cache/memorycache"
)

const defaultEnv = "dev"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	if err := config.InitConfig(env); err != nil {
		logger.Error("failed to initialize config", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	logger.Info("connected to database",
		"user", cfg.Database.User,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database,
	)

	// Selection option cache, shared by both services. Roster change
	// notifications from other instances drop the affected universe.
	var optionCache cache.Cache
	var invalidator *infracache.Invalidator
	if cfg.Cache.Enabled {
		optionCache, err = memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxMemoryBytes,
			DefaultTTL:    time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			logger.Error("failed to create cache", "error", err)
			os.Exit(1)
		}
		defer optionCache.Close()

		invalidator = infracache.NewInvalidator(cfg.Database.ConnectionString(), func(payload string) {
			ctx := context.Background()
			switch payload {
			case "instruments":
				_ = optionCache.Delete(ctx, services.CacheKeyInstrumentOptions)
			case "musicians":
				_ = optionCache.Delete(ctx, services.CacheKeyMusicianOptions)
			default:
				_ = optionCache.Clear(ctx)
			}
		})
		if err := invalidator.Start(); err != nil {
			logger.Error("failed to start cache invalidator", "error", err)
			os.Exit(1)
		}
		defer invalidator.Stop()
	}

	// Repositories
	musicianRepo := postgres.NewPostgresMusicianRepository(pg.DB)
	instrumentRepo := postgres.NewPostgresInstrumentRepository(pg.DB)
	performanceRepo := postgres.NewPostgresPerformanceRepository(pg.DB)
	photoRepo := postgres.NewPostgresPhotoRepository(pg.DB)
	documentRepo := postgres.NewPostgresDocumentRepository(pg.DB)

	// Services
	cacheTTL := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	musicianService := services.NewMusicianService(musicianRepo, instrumentRepo, optionCache, cacheTTL)
	instrumentService := services.NewInstrumentService(instrumentRepo, musicianRepo, optionCache, cacheTTL)
	performanceService := services.NewPerformanceService(performanceRepo, musicianRepo)
	photoService := services.NewPhotoService(photoRepo, musicianRepo)
	documentService := services.NewDocumentService(documentRepo, musicianRepo)

	// Metrics
	collector := metrics.NewCollector()
	if optionCache != nil {
		collector.SetCache(optionCache)
	}
	exporter := metrics.NewPrometheusExporter(collector)
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			exporter.Update()
		}
	}()

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("metrics server listening", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	router := &handlers.Router{
		Musicians:    handlers.NewMusicianHandler(musicianService, photoService, documentService),
		Instruments:  handlers.NewInstrumentHandler(instrumentService),
		Performances: handlers.NewPerformanceHandler(performanceService),
		Files:        handlers.NewFileHandler(photoService, documentService, cfg.Upload.MaxPhotoBytes, cfg.Upload.MaxDocumentBytes),
		Health:       pg,
		Logger:       logger,
		Collector:    collector,
		Exporter:     exporter,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Build(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("forced shutdown", "error", err)
			_ = server.Close()
		}
		_ = metricsServer.Shutdown(shutdownCtx)

		if err := pg.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
		logger.Info("shutdown complete")
	}
}
