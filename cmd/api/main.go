package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/videotube/videotube/internal/cache"
	"github.com/videotube/videotube/internal/config"
	"github.com/videotube/videotube/internal/database"
	"github.com/videotube/videotube/internal/encoding"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/internal/metrics"
	"github.com/videotube/videotube/internal/middleware"
	"github.com/videotube/videotube/internal/playback"
	"github.com/videotube/videotube/internal/publication"
	"github.com/videotube/videotube/internal/queue"
	"github.com/videotube/videotube/internal/storage"
	"github.com/videotube/videotube/internal/telemetry"
	"github.com/videotube/videotube/internal/tracing"
)

// API bundles the services behind the HTTP handlers.
type API struct {
	repo        *database.Repository
	cache       *cache.Cache
	publication *publication.Service
	tracker     *encoding.Tracker
	playback    *playback.Resolver
	telemetry   *telemetry.Service
	log         *logging.Logger
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Fatalf("Failed to ensure schema: %v", err)
	}

	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// The cache is an optimization; the service runs without it.
	var cch *cache.Cache
	cch, err = cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.ErrorWithErr("Redis unavailable, continuing without cache", err)
		cch = nil
	} else {
		defer cch.Close()
	}

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer("videotube-api", cfg.Tracing.Endpoint)
		if err != nil {
			logger.ErrorWithErr("Failed to initialize tracing", err)
		} else {
			defer closer.Close()
		}
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			logger.Infof("Starting metrics server on :%d", cfg.Metrics.Port)
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
	}

	api := &API{
		repo:  repo,
		cache: cch,
		publication: publication.NewService(
			repo, stor, q, cfg.Encoding.Profiles,
			cfg.CDN.PlaybackBaseURL, cfg.CDN.Provider, logger,
		),
		tracker:   encoding.NewTracker(repo, cacheOrNil(cch), logger),
		playback:  playback.NewResolver(repo, cfg.CDN.PlaybackBaseURL, logger),
		telemetry: telemetry.NewService(repo, logger),
		log:       logger,
	}

	router := setupRouter(api, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.ErrorWithErr("Metrics server shutdown failed", err)
		}
	}

	logger.Info("Server stopped")
}

// cacheOrNil keeps a typed-nil *cache.Cache from sneaking into the
// tracker's interface field.
func cacheOrNil(c *cache.Cache) encoding.ProgressCache {
	if c == nil {
		return nil
	}
	return c
}
