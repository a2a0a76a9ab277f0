package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/howjmay/publicator/internal/api"
	"github.com/howjmay/publicator/internal/config"
	gdb "github.com/howjmay/publicator/internal/db"
	"github.com/howjmay/publicator/internal/log"
	"github.com/howjmay/publicator/internal/medias"
	"github.com/howjmay/publicator/internal/metrics"
	"github.com/howjmay/publicator/internal/posts"
	"github.com/howjmay/publicator/internal/publications"
	"github.com/howjmay/publicator/internal/ratelimit"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting publicator API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db", cfg.Database.Type,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("publicator")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	db, err := gdb.NewDatabase(&gdb.Config{
		Type:     cfg.Database.Type,
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
	}, logger)
	if err != nil {
		logger.Fatalw("Failed to create database", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := gdb.ConnectAndMigrate(ctx, db, gdb.AllSchemas()); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer db.Disconnect(context.Background())
	logger.Infow("Database initialized")

	if cfg.Database.Seed {
		if err := gdb.SeedFixtures(ctx, db); err != nil {
			logger.Fatalw("Failed to seed database", "error", err)
		}
	}

	// Rate limiter shares its budget across instances when Redis is set
	limiter := ratelimit.New(cfg.Cache.RedisAddr, cfg.Security.RateLimitRPM, logger)
	defer limiter.Close()

	// Setup services
	publicationRepo := publications.NewRepository(db)
	mediaSvc := medias.NewService(db, publicationRepo, logger)
	postSvc := posts.NewService(db, publicationRepo, logger)
	publicationSvc := publications.NewService(db, publicationRepo, mediaSvc, postSvc, logger)

	// Setup API handler and middleware
	handler := api.NewHandler(mediaSvc, postSvc, publicationSvc, db, logger, metricsObj)
	middleware := api.NewMiddleware(logger, metricsObj, limiter)
	router := handler.Routes(middleware, metricsHandler, cfg.Security.CORSAllowedOrigins)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("Server startup failed", "error", err)
		}
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
