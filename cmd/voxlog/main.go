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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voxlog/voxlog/internal/api"
	"github.com/voxlog/voxlog/internal/config"
	"github.com/voxlog/voxlog/internal/database"
	"github.com/voxlog/voxlog/internal/database/pgstore"
	"github.com/voxlog/voxlog/internal/ingest"
	"github.com/voxlog/voxlog/internal/metrics"
	"github.com/voxlog/voxlog/internal/vapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting voxlog",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"postgres", cfg.DatabaseURL != "",
		"enrich_summary", cfg.EnrichSummary,
	)

	if cfg.WebhookSecret == "" {
		slog.Warn("no webhook secret configured, all ingest requests will be rejected")
	}

	// Open the store and run migrations: PostgreSQL when a DSN is configured,
	// embedded SQLite otherwise.
	store, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Metrics: process/go collectors, scrape-time store gauges, and the
	// ingest pipeline counters share one registry.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(store.Calls(), store.Contacts(), time.Now()),
	)
	ingestMetrics := ingest.NewMetrics(registry)

	enricher := vapi.NewClient(cfg.VapiBaseURL, cfg.VapiAPIKey)
	if cfg.EnrichSummary && !enricher.Configured() {
		slog.Warn("summary enrichment enabled but no platform api key configured")
	}

	processor := ingest.NewProcessor(store, enricher, cfg.EnrichSummary, ingestMetrics)

	handler := api.NewServer(store, processor, cfg, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	defer handler.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("voxlog stopped")
}

// openStore selects the storage backend from config.
func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.DatabaseURL != "" {
		return pgstore.New(cfg.DatabaseURL)
	}
	return database.Open(cfg.DataDir)
}
