// Package main implements the entry point for the SeisGate service.
// SeisGate is a federating gateway that fans one waveform request out
// across geographically distributed archive endpoints and streams back a
// single merged payload.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/seisgate/budget"
	"github.com/c360/seisgate/cache"
	"github.com/c360/seisgate/config"
	"github.com/c360/seisgate/engine"
	"github.com/c360/seisgate/gateway"
	"github.com/c360/seisgate/health"
	"github.com/c360/seisgate/metric"
	"github.com/c360/seisgate/routing"
)

// Build information constants
const (
	Version   = gateway.ServiceVersion
	BuildTime = "dev"
	appName   = "seisgate"
)

// Values for the service status gauge, matching its help text.
const (
	statusStopped = iota
	statusStarting
	statusRunning
	statusStopping
	statusFailed
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	app, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	return runWithSignalHandling(ctx, app, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting SeisGate (federated waveform gateway)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	loader.AddLayer(cliCfg.ConfigPath)
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// application bundles the wired collaborators for startup and shutdown.
type application struct {
	cfg       *config.Config
	monitor   *health.Monitor
	tracker   *budget.Tracker
	cache     cache.Cache
	router    *routing.Client
	processor *engine.Processor
	gateway   *gateway.Server
	metrics   *metric.Server
	core      *metric.Metrics
}

// buildService wires the full request path: gateway in front of the
// engine, the engine over the routing client, admission tracker, and
// response cache.
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()

	tracker, err := budget.New(ctx, cfg.Budget,
		budget.WithLogger(logger), budget.WithMetrics(registry))
	if err != nil {
		return nil, fmt.Errorf("create admission tracker: %w", err)
	}

	// The cache is an accelerator, not a dependency: when the backend is
	// unreachable at startup, run without it instead of refusing to serve.
	responseCache, err := cache.New(ctx, cfg.Cache, cache.WithLogger(logger))
	if err != nil {
		slog.Warn("Response cache unavailable, continuing without it", "error", err)
		monitor.UpdateDegraded("cache", "backend unreachable at startup")
		responseCache = cache.NewNoop()
		registry.CoreMetrics().RecordCacheStatus(false)
	} else if cfg.Cache.Enabled {
		monitor.UpdateHealthy("cache", "backend connected")
		registry.CoreMetrics().RecordCacheStatus(true)
	}

	router, err := routing.NewClient(cfg.Routing,
		routing.WithLogger(logger), routing.WithMetrics(registry))
	if err != nil {
		return nil, fmt.Errorf("create routing client: %w", err)
	}

	processor, err := engine.NewProcessor(router, tracker, responseCache,
		cfg.Engine, logger, registry)
	if err != nil {
		return nil, fmt.Errorf("create federation engine: %w", err)
	}

	gatewayServer, err := gateway.NewServer(cfg.Gateway, processor, monitor, logger, registry)
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}
	if err := gatewayServer.Setup(); err != nil {
		return nil, fmt.Errorf("setup gateway: %w", err)
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path,
			registry, cfg.Metrics.TLS)
	}

	return &application{
		cfg:       cfg,
		monitor:   monitor,
		tracker:   tracker,
		cache:     responseCache,
		router:    router,
		processor: processor,
		gateway:   gatewayServer,
		metrics:   metricsServer,
		core:      registry.CoreMetrics(),
	}, nil
}

// runWithSignalHandling starts the listeners and blocks until a shutdown
// signal arrives or the gateway fails.
func runWithSignalHandling(ctx context.Context, app *application, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if app.metrics != nil {
		go func() {
			slog.Info("Metrics server listening", "address", app.metrics.Address())
			if err := app.metrics.Start(); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	app.core.RecordServiceStatus(appName, statusStarting)

	ready := make(chan struct{})
	gatewayErr := make(chan error, 1)
	go func() { gatewayErr <- app.gateway.Start(signalCtx, ready) }()

	select {
	case <-ready:
	case err := <-gatewayErr:
		app.core.RecordServiceStatus(appName, statusFailed)
		return fmt.Errorf("start gateway: %w", err)
	}

	app.core.RecordServiceStatus(appName, statusRunning)
	app.monitor.UpdateHealthy("gateway", "listening on "+app.cfg.Gateway.BindAddress)
	slog.Info("SeisGate started", "address", app.cfg.Gateway.BindAddress)

	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
		app.core.RecordServiceStatus(appName, statusStopping)
		// The gateway watches the same context and drains itself with its
		// configured timeout.
		if err := waitWithTimeout(gatewayErr, shutdownTimeout+time.Second); err != nil {
			app.core.RecordServiceStatus(appName, statusFailed)
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	case err := <-gatewayErr:
		if err != nil {
			app.core.RecordServiceStatus(appName, statusFailed)
			return fmt.Errorf("gateway terminated: %w", err)
		}
	}

	app.core.RecordServiceStatus(appName, statusStopped)
	slog.Info("SeisGate shutdown complete")
	return nil
}

// waitWithTimeout bounds the wait for the gateway goroutine to unwind.
func waitWithTimeout(errChan <-chan error, timeout time.Duration) error {
	select {
	case err := <-errChan:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("shutdown did not complete within %v", timeout)
	}
}

// close releases collaborators in reverse dependency order.
func (a *application) close() {
	if a.metrics != nil {
		if err := a.metrics.Stop(); err != nil {
			slog.Warn("Metrics server stop failed", "error", err)
		}
	}
	a.processor.Close()
	a.router.Close()
	if err := a.cache.Close(); err != nil {
		slog.Warn("Cache close failed", "error", err)
	}
	if err := a.tracker.Close(); err != nil {
		slog.Warn("Admission tracker close failed", "error", err)
	}
}
