// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/marketlens/internal/api"
	"github.com/tomtom215/marketlens/internal/config"
	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/store"
	"github.com/tomtom215/marketlens/internal/supervisor"
	"github.com/tomtom215/marketlens/internal/supervisor/services"
	"github.com/tomtom215/marketlens/internal/sync"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("upstream", cfg.Upstream.BaseURL).
		Str("store_path", cfg.Store.Path).
		Str("timezone", cfg.Sync.Location().String()).
		Msg("Starting Marketlens with supervisor tree")

	db, err := store.Open(&cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open bucket store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing bucket store")
		}
	}()

	// === SYNC ENGINE ===
	throttle := sync.NewThrottle(cfg.Upstream.RequestsPerMinute)
	client := sync.NewClient(sync.ClientConfigFrom(&cfg.Upstream), throttle)
	orch := sync.NewOrchestrator(
		sync.NewPaginator(client, sync.PaginatorConfigFrom(cfg)),
		store.New(db, store.Options{MaxDocumentBytes: cfg.Store.MaxDocumentBytes}),
		sync.NewProgressTracker(),
		sync.OrchestratorConfigFrom(&cfg.Sync),
	)

	// === SUPERVISOR TREE ===
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Store.GCInterval > 0 {
		tree.AddStoreService(store.NewGCService(db, cfg.Store.GCInterval))
		logging.Info().Dur("interval", cfg.Store.GCInterval).Msg("Value log GC service added")
	}

	warmer := sync.NewWarmer(orch, tree.Tasks(), cfg.Sync.WarmDays)

	// === HTTP API ===
	handler := api.NewHandler(orch, warmer, api.WithBreakerState(client.BreakerState))
	router := api.NewRouter(handler, api.MiddlewareConfigFrom(&cfg.Server))

	server := &http.Server{
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
