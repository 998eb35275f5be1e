package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siteadmin/internal/api"
	"siteadmin/internal/config"
	"siteadmin/internal/kv"
	"siteadmin/internal/logging"
	"siteadmin/internal/portal"
	"siteadmin/internal/store"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, logCloser := logging.Setup("main", logging.Options{
		Level:        cfg.Logging.Level,
		DebugEnabled: cfg.Logging.DebugEnabled,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
	})
	defer logCloser.Close()
	logger.Info("Starting Site Admin v%s...", version)

	// Open the durable storage area
	storage, err := kv.NewStorage(kv.Options{
		Backend:    cfg.Storage.Backend,
		Path:       cfg.Storage.Path,
		QuotaBytes: cfg.Storage.QuotaBytes,
	}, logging.NewBadgerLogger(logger.Named("kv")))
	if err != nil {
		logger.Error("Failed to open %s storage: %v", cfg.Storage.Backend, err)
		os.Exit(1)
	}
	st := store.New(storage, logger.Named("store"))
	defer st.Close()
	logger.Info("Storage initialized (%s, quota %d bytes)", cfg.Storage.Backend, cfg.Storage.QuotaBytes)

	p := portal.New(st, cfg, logger.Named("portal"))

	apiServer, err := api.NewServer(p, cfg.Server.MaxUploadMB, logger.Named("api"))
	if err != nil {
		logger.Error("Failed to initialize API server: %v", err)
		os.Exit(1)
	}
	logger.Info("API server initialized")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go sweep(ctx, p, time.Minute)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening on http://%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error: %v", err)
		}
	}()

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	logger.Info("Site Admin stopped")
}

// sweep closes idle tabs until ctx is done
func sweep(ctx context.Context, p *portal.Portal, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}
