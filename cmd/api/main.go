package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/contact-scraper/internal/adapter/postgres"
	"github.com/user/contact-scraper/internal/delivery/http/handler"
	"github.com/user/contact-scraper/internal/delivery/http/router"
	"github.com/user/contact-scraper/pkg/config"
	"github.com/user/contact-scraper/pkg/logger"
	"github.com/user/contact-scraper/pkg/metrics"
)

// Serves health and stored totals of a dataset without running a scrape,
// so dashboards keep working between runs.
func main() {
	envFile := flag.String("env-file", ".env", "Optional env file with configuration")
	addr := flag.String("addr", "", "Listen address, overrides STATUS_ADDR")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadFile(*envFile)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.StatusAddr = *addr
	}
	if cfg.StatusAddr == "" {
		cfg.StatusAddr = ":8080"
	}

	// --- Logger ---
	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.Info("Logger initialized", "level", cfg.LogLevel)

	// --- Metrics ---
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	store, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.Dataset)
	if err != nil {
		slog.Error("Unable to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("PostgreSQL store ready", "dataset", cfg.Dataset)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.StatusAddr,
		Handler:      router.New(handler.NewHandler(cfg.Dataset, nil, store)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting server", "addr", cfg.StatusAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not listen", "addr", cfg.StatusAddr, "error", err)
		os.Exit(1)
	}
}
