package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/mdschema/internal/api"
	"github.com/dgallion1/mdschema/internal/config"
	"github.com/dgallion1/mdschema/internal/parser"
	"github.com/dgallion1/mdschema/internal/plugin"
	"github.com/dgallion1/mdschema/internal/session"
	"github.com/dgallion1/mdschema/internal/stats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Parser options shared by the service parser and every session.
	opts := []parser.Option{
		parser.WithLogger(log),
		parser.WithCacheCapacity(cfg.CacheCapacity),
		parser.WithMinBlock(cfg.CacheMinBlock),
	}
	if cfg.RulesFile != "" {
		rules, err := plugin.LoadRuleFile(cfg.RulesFile)
		if err != nil {
			log.Error("failed to load rules", "path", cfg.RulesFile, "error", err)
			os.Exit(1)
		}
		log.Info("loaded rules", "path", cfg.RulesFile, "count", len(rules))
		opts = append(opts, parser.WithRules(rules...))
	}

	rec := stats.NewRecorder(time.Hour)
	p := parser.New(append(opts, parser.WithStats(rec))...)

	sessions := session.NewStore(cfg.SessionTTL, cfg.MaxSessions, log, opts...)
	go sessions.Run(ctx, time.Minute)

	// Initialize HTTP server.
	srv := api.NewServer(p, sessions, rec, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting mdschema", "port", cfg.Port, "cache_capacity", cfg.CacheCapacity)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
