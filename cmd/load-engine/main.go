package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campus-pulse/load-engine/internal/advisor"
	"github.com/campus-pulse/load-engine/internal/aggregate"
	"github.com/campus-pulse/load-engine/internal/api"
	"github.com/campus-pulse/load-engine/internal/cache"
	"github.com/campus-pulse/load-engine/internal/config"
	"github.com/campus-pulse/load-engine/internal/events"
	"github.com/campus-pulse/load-engine/internal/health"
	"github.com/campus-pulse/load-engine/internal/prompts"
	"github.com/campus-pulse/load-engine/internal/storage"
	"github.com/campus-pulse/load-engine/internal/tips"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting load-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Connect Redis; it backs both the load cache and the event bus
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err, "address", cfg.Redis.Address)
		os.Exit(1)
	}
	slog.Info("redis connected successfully")

	loadCache := cache.New(redisClient, cfg.Cache.TTL)
	bus := events.NewRedisBus(redisClient)

	// Advice generator
	generator := advisor.NewClient(advisor.Config{
		BaseURL: cfg.Advisor.BaseURL,
		APIKey:  cfg.Advisor.APIKey,
		Model:   cfg.Advisor.Model,
		Timeout: cfg.Advisor.Timeout,
	})

	// Prompt templates
	renderer := prompts.NewRenderer()
	if cfg.Prompts.Dir != "" {
		if err := renderer.LoadFromDir(cfg.Prompts.Dir); err != nil {
			slog.Warn("failed to load prompt templates from dir", "dir", cfg.Prompts.Dir, "error", err)
		}
	}

	tipService := tips.NewService(repo, generator, renderer, cfg.Tips.TTL)

	// Health registry
	registry := health.NewRegistry()
	registry.Register("postgres", health.CheckerFunc(repo.Ping))
	registry.Register("redis", health.CheckerFunc(loadCache.Ping))
	registry.Register("advisor", generator)

	// Daily aggregation job
	job := aggregate.NewJob(repo, tipService, bus, cfg.Aggregator.Interval, cfg.Aggregator.Concurrency)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start aggregation job
	job.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, repo, loadCache, tipService, bus, registry)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := redisClient.Close(); err != nil {
		slog.Error("redis close error", "error", err)
	}
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("load-engine stopped")
}
