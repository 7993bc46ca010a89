package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docserve/internal/config"
	"git.home.luguber.info/inful/docserve/internal/daemon"
	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/metrics"
	"git.home.luguber.info/inful/docserve/internal/registry"
	"git.home.luguber.info/inful/docserve/internal/server/handlers"
	"git.home.luguber.info/inful/docserve/internal/server/httpserver"
	"git.home.luguber.info/inful/docserve/internal/storage"
	"git.home.luguber.info/inful/docserve/internal/telemetry"
	"git.home.luguber.info/inful/docserve/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"docserve.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Serve documentation and run the periodic registry sync"`

	Sync struct{} `cmd:"" help:"Run one registry sync and exit"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print the version"`
}

func main() {
	kctx := kong.Parse(&CLI)

	switch kctx.Command() {
	case "serve":
		cfg := loadConfig()
		setupLogging(cfg)
		if err := runServe(cfg); err != nil {
			slog.Error("serve failed", "error", err)
			os.Exit(1)
		}
	case "sync":
		cfg := loadConfig()
		setupLogging(cfg)
		if err := runSync(cfg); err != nil {
			slog.Error("sync failed", "error", err)
			os.Exit(1)
		}
	case "init":
		setupDefaultLogging()
		if err := config.WriteDefault(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("configuration written", "path", CLI.Config)
	case "version":
		fmt.Println("docserve " + version.Version)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		setupDefaultLogging()
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func setupDefaultLogging() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.NATSURL != "" {
		reporter, err := telemetry.NewNATSReporter(cfg.Telemetry.NATSURL, cfg.Telemetry.Subject)
		if err != nil {
			return fmt.Errorf("connect telemetry: %w", err)
		}
		defer reporter.Close()
		telemetry.SetDefault(reporter)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	store, err := storage.NewFSStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	promRegistry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promRegistry)

	server := httpserver.New(cfg, handlers.New(database, store), database, recorder, promRegistry)
	if err := server.Start(ctx); err != nil {
		return err
	}

	index := registry.NewIndex(cfg.Registry.IndexURL, cfg.Registry.IndexPath)
	api := registry.NewAPI(cfg.Registry.APIBase)
	syncService, err := daemon.NewSyncService(database, index, api, recorder, cfg.Registry.SyncInterval.Std())
	if err != nil {
		return fmt.Errorf("create sync service: %w", err)
	}
	if err := syncService.Start(ctx); err != nil {
		return fmt.Errorf("start sync service: %w", err)
	}

	// Port changes need a restart; the watcher only refreshes what can be
	// applied live.
	watcher, err := daemon.NewConfigWatcher(CLI.Config, func(newCfg *config.Config) {
		if newCfg.Listen != cfg.Listen {
			slog.Warn("listen port changes require a restart")
		}
	})
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}

	slog.Info("docserve started", "version", version.Version)
	<-ctx.Done()
	slog.Info("shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := watcher.Stop(); err != nil {
		slog.Warn("config watcher stop failed", "error", err)
	}
	if err := syncService.Stop(stopCtx); err != nil {
		slog.Warn("sync service stop failed", "error", err)
	}
	if err := server.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop http servers: %w", err)
	}
	slog.Info("docserve stopped")
	return nil
}

func runSync(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	index := registry.NewIndex(cfg.Registry.IndexURL, cfg.Registry.IndexPath)
	api := registry.NewAPI(cfg.Registry.APIBase)
	syncService, err := daemon.NewSyncService(database, index, api, nil, cfg.Registry.SyncInterval.Std())
	if err != nil {
		return fmt.Errorf("create sync service: %w", err)
	}
	return syncService.RunOnce(ctx)
}
