package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/provider-dispatch/config"
	"github.com/angeloszaimis/provider-dispatch/internal/clock"
	"github.com/angeloszaimis/provider-dispatch/internal/dispatch"
	"github.com/angeloszaimis/provider-dispatch/internal/handler"
	"github.com/angeloszaimis/provider-dispatch/internal/healthcheck"
	"github.com/angeloszaimis/provider-dispatch/internal/httpserver"
	"github.com/angeloszaimis/provider-dispatch/internal/metrics"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
	"github.com/angeloszaimis/provider-dispatch/internal/retry"
	"github.com/angeloszaimis/provider-dispatch/internal/simulate"
	"github.com/angeloszaimis/provider-dispatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("dispatch service stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	out, closer := logger.Output(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	defer closer.Close()

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, out)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, metrics.NewExporter(), log)

	dispatcher, providers, err := initializeDispatch(cfg, log, collector)
	if err != nil {
		log.Error("Failed to initialize dispatcher", slog.Any("err", err))
		return err
	}

	interval, err := time.ParseDuration(cfg.Monitor.Interval)
	if err != nil {
		return err
	}
	monitor := healthcheck.NewMonitor(dispatcher.Registry(), collector, interval, log)

	dispatchHandler := handler.NewDispatchHandler(log, dispatcher, providers)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(dispatchHandler, collector, cfg.Server.CORSOrigins, log), log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return collector.Run(gctx) })
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("Error running dispatch service", slog.Any("err", err))
		return err
	}

	log.Info("Shut down gracefully")
	return nil
}

// initializeDispatch builds the provider registry, the retry executor and the
// dispatcher, all reporting attempts to the collector, along with the
// simulated endpoint of every configured provider.
func initializeDispatch(cfg *config.Config, log *slog.Logger, collector *metrics.Collector) (*dispatch.Dispatcher, simulate.Set, error) {
	configs, err := cfg.ProviderConfigs()
	if err != nil {
		return nil, nil, err
	}

	registry, err := provider.NewRegistry(configs, clock.Real{})
	if err != nil {
		return nil, nil, err
	}

	if registry.Enabled() == 0 {
		log.Warn("No AI providers enabled, every dispatch will fail until credentials are configured")
	}
	for _, p := range registry.InPriorityOrder() {
		log.Info("Provider registered",
			slog.String("provider", p.Name),
			slog.Int("priority", p.Priority),
			slog.Int("max_retries", p.MaxRetries))
	}

	behaviors, err := cfg.Behaviors()
	if err != nil {
		return nil, nil, err
	}
	providers := make(simulate.Set, len(behaviors))
	for name, b := range behaviors {
		providers[name] = simulate.FromBehavior(name, b)
	}

	executor := retry.NewExecutor(log, retry.WithObserver(collector))
	dispatcher := dispatch.New(registry, executor, log, dispatch.WithObserver(collector))

	return dispatcher, providers, nil
}
