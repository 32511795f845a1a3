// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/veilforms/veilkey/internal/config"
	"github.com/veilforms/veilkey/internal/rest"
	"github.com/veilforms/veilkey/pkg/adapters/audit"
	"github.com/veilforms/veilkey/pkg/adapters/logger"
	"github.com/veilforms/veilkey/pkg/disclosure"
	"github.com/veilforms/veilkey/pkg/keyring"
	"github.com/veilforms/veilkey/pkg/metrics"
	"github.com/veilforms/veilkey/pkg/ratelimit"
	"github.com/veilforms/veilkey/pkg/veilkey"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("veilkey server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	if envConfig := os.Getenv("VEILKEY_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("Failed to load configuration", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	log := newLogger(cfg)
	log.Info("Starting veilkey server",
		logger.String("version", version),
		logger.String("storage", cfg.Storage.Backend),
		logger.Int("port", cfg.Server.Port))

	if !cfg.Metrics.Enabled {
		metrics.Disable()
	}

	// Wire the stores
	var (
		tokenStore   disclosure.Store
		keyringStore keyring.Store
		db           *badger.DB
	)
	switch cfg.Storage.Backend {
	case "badger":
		opts := badger.DefaultOptions(cfg.Storage.Path)
		opts = opts.WithLogger(nil)
		db, err = badger.Open(opts)
		if err != nil {
			log.Error("Failed to open badger database", logger.Error(err))
			os.Exit(1)
		}
		tokenStore, err = disclosure.NewBadgerStore(db)
		if err != nil {
			log.Error("Failed to create token store", logger.Error(err))
			os.Exit(1)
		}
		keyringStore = keyring.NewBadgerStore(db)
	default:
		tokenStore = disclosure.NewMemoryStore()
		keyringStore = keyring.NewMemoryStore()
	}

	sealingKey, err := cfg.DecodeSealingKey()
	if err != nil {
		log.Error("Invalid disclosure sealing key", logger.Error(err))
		os.Exit(1)
	}

	discService, err := disclosure.NewService(tokenStore, cfg.Server.BaseURL,
		disclosure.WithTTL(cfg.Disclosure.TTL.AsDuration()),
		disclosure.WithSealingKey(sealingKey))
	if err != nil {
		log.Error("Failed to create disclosure service", logger.Error(err))
		os.Exit(1)
	}
	manager := keyring.NewManager(keyringStore)

	service := veilkey.NewService(manager, discService, log,
		veilkey.WithAudit(audit.NewLoggerAdapter(log)),
		veilkey.WithStoreName(cfg.Storage.Backend))

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
			Burst:             cfg.RateLimit.Burst,
		})
		defer limiter.Stop()
	}

	restServer, err := rest.NewServer(&rest.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Service:        service,
		Version:        version,
		Logger:         log,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		HealthPath:     cfg.Health.Path,
		RateLimiter:    limiter,
	})
	if err != nil {
		log.Error("Failed to create REST server", logger.Error(err))
		os.Exit(1)
	}

	shutdownCtx := setupSignalHandler()

	collector := metrics.NewResourceCollector(shutdownCtx, 30*time.Second)
	go collector.Start()
	defer collector.Stop()

	errChan := make(chan error, 1)
	go func() {
		if err := restServer.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error", logger.Error(err))
	}

	shutdownTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := restServer.Stop(shutdownTimeout); err != nil {
		log.Error("Error during server shutdown", logger.Error(err))
	}

	_ = tokenStore.Close()
	_ = keyringStore.Close()
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", logger.Error(err))
		}
	}

	log.Info("Server stopped")
}

// newLogger builds the slog-backed logger from the logging configuration.
func newLogger(cfg *config.Config) logger.Logger {
	level := logger.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = logger.LevelDebug
	case "warn":
		level = logger.LevelWarn
	case "error":
		level = logger.LevelError
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	if strings.ToLower(cfg.Logging.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return logger.NewSlogAdapter(&logger.SlogConfig{
		Level:   level,
		Handler: handler,
	})
}

func slogLevel(level logger.Level) slog.Level {
	switch level {
	case logger.LevelDebug:
		return slog.LevelDebug
	case logger.LevelWarn:
		return slog.LevelWarn
	case logger.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupSignalHandler sets up signal handling for graceful shutdown
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		cancel()
	}()

	return ctx
}
