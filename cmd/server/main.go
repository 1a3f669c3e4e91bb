package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/improvedoc/internal/api"
	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/config"
	"github.com/dgallion1/improvedoc/internal/improve"
	"github.com/dgallion1/improvedoc/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	defaults, err := loadDefaults(cfg.AttributesFile)
	if err != nil {
		log.Error("load attributes", "path", cfg.AttributesFile, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := improve.NewProcessor(log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, proc, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, proc, defaults, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
		}

		orch.Stop()
	}()

	log.Info("starting improvedoc", "port", cfg.Port, "workers", cfg.WorkerCount, "auth", cfg.APIKey != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func loadDefaults(path string) (attrs.Attributes, error) {
	if path == "" {
		return attrs.Attributes{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return attrs.ParseYAML(f)
}
