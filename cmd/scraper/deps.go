package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/contact-scraper/internal/adapter/memory"
	"github.com/user/contact-scraper/internal/adapter/postgres"
	redis_adapter "github.com/user/contact-scraper/internal/adapter/redis"
	"github.com/user/contact-scraper/internal/delivery/http/handler"
	"github.com/user/contact-scraper/internal/delivery/http/router"
	"github.com/user/contact-scraper/internal/repository"
)

func openStore(ctx context.Context) (repository.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		slog.Warn("Using in-memory store, nothing is persisted", "dataset", cfg.Dataset)
		return memory.NewStore(), nil
	default:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.Dataset)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		slog.Info("PostgreSQL store ready", "dataset", cfg.Dataset)
		return store, nil
	}
}

// openQueue returns the queue backend and a func releasing its connection.
func openQueue(ctx context.Context) (repository.QueueRepository, func(), error) {
	switch cfg.QueueBackend {
	case "redis":
		client, err := redis_adapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		slog.Info("Redis queue ready", "addr", cfg.RedisAddr)
		return redis_adapter.NewQueueRepo(client, cfg.Dataset), func() { _ = client.Close() }, nil
	default:
		return memory.NewQueue(), func() {}, nil
	}
}

// startStatusServer serves health, stats and metrics until ctx is done.
// It does nothing when STATUS_ADDR is empty.
func startStatusServer(ctx context.Context, run handler.RunStats, store handler.StoreStats) {
	if cfg.StatusAddr == "" {
		return
	}

	server := &http.Server{
		Addr:         cfg.StatusAddr,
		Handler:      router.New(handler.NewHandler(cfg.Dataset, run, store)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting status server", "addr", cfg.StatusAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status server stopped", "addr", cfg.StatusAddr, "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
