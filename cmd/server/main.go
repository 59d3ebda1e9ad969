package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/darkodi/countdown-qr/internal/cache"
	"github.com/darkodi/countdown-qr/internal/config"
	"github.com/darkodi/countdown-qr/internal/fallback"
	"github.com/darkodi/countdown-qr/internal/handler"
	"github.com/darkodi/countdown-qr/internal/logger"
	"github.com/darkodi/countdown-qr/internal/middleware"
	"github.com/darkodi/countdown-qr/internal/repository"
	"github.com/darkodi/countdown-qr/internal/service"
	"github.com/darkodi/countdown-qr/internal/storage"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %s\n", cfg.Server.Port)
		fmt.Printf("   Base URL: %s\n", cfg.App.BaseURL)
	}

	// ============================================================
	// Initialize logger
	// ============================================================
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.App.Environment,
	})

	log.Info("starting countdown-qr",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	// ============================================================
	// INITIALIZE LAYERS
	// ============================================================
	log.Info("connecting to primary store...")
	repo, err := repository.NewCountdownRepository(cfg.Database.DSN)
	if err != nil {
		log.Error("Failed to initialize primary store", "error", err.Error())
		os.Exit(1)
	}

	log.Info("opening local fallback mirror...", "path", cfg.Fallback.Path)
	mirror, err := fallback.New(cfg.Fallback.Path)
	if err != nil {
		log.Error("Failed to open fallback mirror", "error", err.Error())
		os.Exit(1)
	}

	// ============================================================
	// INITIALIZE REDIS CACHE
	// ============================================================
	log.Info("connecting to Redis...")
	redisCache, err := cache.NewRedisCache(&cfg.Redis)
	if err != nil {
		// The cache is an accelerator; the service runs without it.
		log.Warn("Redis unavailable, running without cache", "error", err.Error())
		redisCache = nil
	} else {
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("Failed to close Redis client", "error", err.Error())
			}
		}()
		log.Info("Redis connected successfully!")
	}

	// ============================================================
	// INITIALIZE IMAGE STORAGE
	// ============================================================
	var images service.ImageStore
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3Storage(context.Background(), &cfg.Storage)
		if err != nil {
			log.Error("Failed to initialize image storage", "error", err.Error())
			os.Exit(1)
		}
		images = s3Storage
		log.Info("image storage ready", "bucket", cfg.Storage.Bucket)
	} else {
		log.Warn("no S3 bucket configured, image uploads disabled")
	}

	svc := service.NewCountdownService(repo, mirror, redisCache, images, cfg.App.BaseURL, log.Component("service"))

	h := handler.NewCountdownHandler(svc)
	router := h.SetupRoutes()

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	middlewares := []middleware.Middleware{
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
	}
	// Add rate limiter if enabled
	if cfg.RateLimit.Enabled {
		rlCfg := middleware.DefaultRateLimiterConfig()
		rlCfg.Rate = cfg.RateLimit.Rate
		rlCfg.Burst = cfg.RateLimit.Burst
		rlCfg.Interval = cfg.RateLimit.Interval
		rlCfg.Cleanup = cfg.RateLimit.Cleanup
		rateLimiter := middleware.NewRateLimiter(rlCfg, log.Component("ratelimit"))
		middlewares = append(middlewares, rateLimiter.Middleware())
		log.Info("rate limiter enabled",
			"rate", cfg.RateLimit.Rate,
			"burst", cfg.RateLimit.Burst,
		)
	}

	wrappedRouter := middleware.Chain(router, middlewares...)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel to track server errors
	serverErr := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST   /api/countdowns      - Create countdown")
			fmt.Println("  GET    /api/countdowns      - List countdowns")
			fmt.Println("  GET    /api/countdowns/{id} - Load for editing")
			fmt.Println("  PUT    /api/countdowns/{id} - Update countdown")
			fmt.Println("  DELETE /api/countdowns/{id} - Delete countdown")
			fmt.Println("  GET    /c/{slug}            - Public view")
			fmt.Println("  GET    /c/{slug}/live       - Live snapshot stream")
			fmt.Println("  GET    /c/{slug}/qr.png     - QR code download")
			fmt.Println("  GET    /health              - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", "http://localhost"+addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		log.Error("server error", "error", err.Error())
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			// force close if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		// Close stores
		if err := repo.Close(); err != nil {
			log.Error("failed to close primary store", "error", err.Error())
		}
		if err := mirror.Close(); err != nil {
			log.Error("failed to close fallback mirror", "error", err.Error())
		}

		log.Info("server stopped")
	}
}
