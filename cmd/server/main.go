package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docbridge/internal/api"
	"github.com/dgallion1/docbridge/internal/config"
	"github.com/dgallion1/docbridge/internal/pathstore"
	"github.com/dgallion1/docbridge/internal/pipeline"
	"github.com/dgallion1/docbridge/internal/stats"
	"github.com/dgallion1/docbridge/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the section store.
	var (
		st store.Store
		ps *pathstore.Client
	)
	switch cfg.StoreBackend {
	case "pathstore":
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		st = store.NewPathstore(ps, cfg.PathstorePrefix, cfg.MaxConcurrentStore)
	default:
		st = store.NewMemory()
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, st, stats.NewRecorder(cfg.StatsWindow), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting docbridge", "port", cfg.Port, "store", cfg.StoreBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
