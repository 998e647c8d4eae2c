// Command omnitak-pool runs one aggregation core: it admits upstream
// TAK connections into the Connection Pool, deduplicates inbound CoT
// traffic through the Aggregator, and fans unique messages back out
// through the Distributor's per-destination filter rules, all guarded
// by the admission limiter and watched by the health monitor.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/aggregator"
	"github.com/engindearing-projects/omniTAK-sub001/internal/clock"
	"github.com/engindearing-projects/omniTAK-sub001/internal/concurrency"
	"github.com/engindearing-projects/omniTAK-sub001/internal/config"
	"github.com/engindearing-projects/omniTAK-sub001/internal/distributor"
	"github.com/engindearing-projects/omniTAK-sub001/internal/health"
	"github.com/engindearing-projects/omniTAK-sub001/internal/metrics"
	"github.com/engindearing-projects/omniTAK-sub001/internal/pool"
	"github.com/engindearing-projects/omniTAK-sub001/internal/transport"
)

func main() {
	fs := flag.NewFlagSet("omnitak-pool", flag.ExitOnError)
	flags, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		slog.Error("parsing flags", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Build(flags)
	if err != nil {
		slog.Error("building config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}
	registry := metrics.NewRegistry()

	limiter := concurrency.New(concurrency.Config{
		MaxConcurrent:      cfg.Limiter.MaxConcurrent,
		MaxQueueSize:       cfg.Limiter.MaxQueueSize,
		EnableRateLimit:    cfg.Limiter.EnableRateLimit,
		RateLimitOpsPerSec: cfg.Limiter.RateLimitOpsPerSec,
		RateLimitBurst:     cfg.Limiter.RateLimitBurst,
	})

	connPool := pool.New(pool.Config{
		MaxConnections:  cfg.Pool.MaxConnections,
		ChannelCapacity: cfg.Pool.ChannelCapacity,
		IngressCapacity: cfg.Pool.IngressCapacity,
		InactiveTimeout: cfg.Pool.InactiveTimeout,
		AutoReconnect:   cfg.Pool.AutoReconnect,
		IngressPolicy:   ingressPolicy(cfg.Pool),
	}, limiter, &registry.Pool, clk, logger.With("component", "pool"))

	agg := aggregator.New(aggregator.Config{
		DedupWindow:     cfg.Aggregator.DedupWindow,
		MaxCacheEntries: cfg.Aggregator.MaxCacheEntries,
		CleanupInterval: cfg.Aggregator.CleanupInterval,
		WorkerCount:     cfg.Aggregator.WorkerCount,
		ChannelCapacity: cfg.Aggregator.ChannelCapacity,
	}, clk, logger.With("component", "aggregator"))
	registry.SetAggregatorSource(func() metrics.AggregatorMetrics {
		s := agg.Snapshot()
		return metrics.AggregatorMetrics{
			TotalReceived:     s.TotalReceived,
			DuplicatesDropped: s.DuplicatesDropped,
			UniqueForwarded:   s.UniqueForwarded,
			ParseFailures:     s.ParseFailures,
			CacheSize:         s.CacheSize,
		}
	})

	dist := distributor.New(distributor.Config{
		Strategy:        distributorStrategy(cfg.Distributor.Strategy),
		MaxWorkers:      cfg.Distributor.MaxWorkers,
		ChannelCapacity: cfg.Distributor.ChannelCapacity,
	}, connPool, &registry.Distributor, logger.With("component", "distributor"))

	creds := newFileCredentialProvider()
	reconnector := newPoolReconnector(connPool, creds, clk)

	var backoffMaxAttempts *uint
	if cfg.Reconnect.MaxAttempts > 0 {
		v := cfg.Reconnect.MaxAttempts
		backoffMaxAttempts = &v
	}

	monitor := health.New(health.Config{
		CheckInterval:      cfg.Health.CheckInterval,
		UnhealthyThreshold: cfg.Health.UnhealthyThreshold,
		DegradedThreshold:  cfg.Health.DegradedThreshold,
		Circuit: health.CircuitConfig{
			FailureThreshold: cfg.Health.FailureThreshold,
			ResetTimeout:     cfg.Health.ResetTimeout,
			SuccessThreshold: cfg.Health.SuccessThreshold,
		},
		Backoff: transport.BackoffConfig{
			Initial:     cfg.Reconnect.Initial,
			Multiplier:  cfg.Reconnect.Multiplier,
			Maximum:     cfg.Reconnect.Maximum,
			MaxAttempts: backoffMaxAttempts,
		},
	}, reconnector, &registry.Health, clk, logger.With("component", "health"))

	if cfg.ConnectionsFile != "" {
		if err := loadConnections(ctx, cfg.ConnectionsFile, connPool, dist, reconnector, creds, clk, logger); err != nil {
			logger.Error("loading connections file", "err", err)
			os.Exit(1)
		}
	}

	agg.Start(ctx, connPool)
	dist.Start(ctx, agg.Output())
	monitor.Start(ctx, poolLister{pool: connPool})

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(registry, connPool, logger.With("component", "metrics"))
		go metricsServer.Run(ctx, cfg.Metrics.BindAddr)
	}

	logger.Info("omnitak-pool started", "metrics_addr", cfg.Metrics.BindAddr, "connections", connPool.ConnectionCount())

	<-ctx.Done()
	logger.Info("shutting down")

	monitor.Stop()
	dist.Stop()
	agg.Stop()
	connPool.Shutdown(10 * time.Second)

	logger.Info("shutdown complete")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

func distributorStrategy(name string) distributor.Strategy {
	if name == "unicast" {
		return distributor.Unicast
	}
	return distributor.Multicast
}

// loadConnections pre-registers connections and routes declared in a
// connections file at startup.
func loadConnections(
	ctx context.Context,
	path string,
	connPool *pool.Pool,
	dist *distributor.Distributor,
	reconnector *poolReconnector,
	creds *fileCredentialProvider,
	clk clock.Clock,
	logger *slog.Logger,
) error {
	doc, err := config.LoadConnectionsFile(path)
	if err != nil {
		return err
	}

	for _, cs := range doc.Connections {
		client, variant, err := buildClient(cs, creds, clk)
		if err != nil {
			return err
		}
		reconnector.register(cs)
		if _, err := connPool.AddConnection(ctx, pool.Spec{
			ID:           cs.ID,
			Name:         cs.Name,
			Endpoint:     transport.Endpoint{Host: cs.Host, Port: cs.Port},
			Variant:      variant,
			Priority:     cs.Priority,
			Client:       client,
			EgressDepth:  cs.EgressDepth,
			EgressPolicy: egressPolicy(cs.EgressPolicy),
		}); err != nil {
			logger.Warn("failed to admit pre-registered connection", "id", cs.ID, "err", err)
		}
	}

	for _, rs := range doc.Routes {
		rule, err := compileFilter(rs.Filter)
		if err != nil {
			return err
		}
		dist.SetRoute(rs.DestinationID, rule, rs.Priority)
	}

	return nil
}
