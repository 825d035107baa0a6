package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/schema"
	"matter-go-home/internal/schema/clusters"
	"matter-go-home/internal/store"
	"matter-go-home/internal/transport"
	"matter-go-home/internal/web"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("matter-go-home starting", "version", version)

	// Schema: built-in clusters, then overlays from the schema directory.
	registry := schema.NewRegistry(logger)
	for _, c := range clusters.Standard() {
		registry.Register(c)
	}
	n, err := schema.LoadDir(cfg.SchemaDir, registry, logger)
	if err != nil {
		logger.Error("load schema overlays", "err", err)
		os.Exit(1)
	}
	logger.Info("schema registry initialized", "clusters", registry.Len(), "overlays", n)

	writes, err := controller.NewWriteRegistry(registry)
	if err != nil {
		logger.Error("build write dispatch table", "err", err)
		os.Exit(1)
	}
	logger.Info("write dispatch table built", "clusters", len(writes.Clusters()))

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	link, err := transport.OpenSerial(cfg.Link.Port, cfg.Link.Baud, logger.With("component", "link"),
		transport.WithRequestTimeout(cfg.requestTimeout()),
		transport.WithMaxInFlight(cfg.Link.MaxInFlight),
		transport.WithMaxFrameSize(cfg.Link.MaxFrameSize),
	)
	if err != nil {
		logger.Error("open link", "err", err)
		os.Exit(1)
	}
	defer link.Close()

	events := controller.NewEventBus(logger)
	ctrl := controller.New(link, db, registry, writes, events, controller.Config{
		JournalLimit:    cfg.Journal.Limit,
		DropStaleEvents: cfg.Journal.DropStale,
	}, controller.LinkConfig{
		Port: cfg.Link.Port,
		Baud: cfg.Link.Baud,
	}, logger.With("component", "controller"))

	// Start automation engine (no-op when built with no_automation tag).
	auto, autoWebOpts := initAutomation(ctrl, cfg, logger)

	var webOpts []web.ServerOption
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, web.WithVersion(version))
	webOpts = append(webOpts, autoWebOpts...)

	webServer := web.NewServer(ctrl, logger, webOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	// Start MQTT bridge (no-op when built with no_mqtt tag).
	mqtt := initMQTT(ctrl, cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	auto.Stop()
	mqtt.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()
	ctrl.Stop()

	logger.Info("goodbye")
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
