package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FlagSet mirrors the teacher's cli.go pattern: every tunable gets its
// own flag with a sane default, parsed with the standard library
// directly rather than a third-party flag framework.
type FlagSet struct {
	ConfigFile string

	MaxConnections  int
	ChannelCapacity int
	IngressCapacity int
	InactiveTimeout time.Duration
	AutoReconnect   bool
	IngressPolicy   string

	DistributorStrategy string
	DistributorWorkers  int

	DedupWindow     time.Duration
	MaxCacheEntries int
	CleanupInterval time.Duration
	AggregatorWorkers int

	CheckInterval      time.Duration
	UnhealthyThreshold time.Duration
	DegradedThreshold  time.Duration
	FailureThreshold   uint
	ResetTimeout       time.Duration
	SuccessThreshold   uint

	MaxConcurrent      int
	MaxQueueSize       int
	EnableRateLimit    bool
	RateLimitOpsPerSec float64

	ReconnectInitial    time.Duration
	ReconnectMultiplier float64
	ReconnectMaximum    time.Duration

	MetricsEnabled bool
	MetricsAddr    string
	LogLevel       string

	ConnectionsFile string
}

// ParseFlags registers and parses the process's command-line flags
// against args (typically os.Args[1:]).
func ParseFlags(fs *flag.FlagSet, args []string) (*FlagSet, error) {
	defaults := Default()
	f := &FlagSet{}

	fs.StringVar(&f.ConfigFile, "config", "", "optional YAML config file overlaying the defaults")
	fs.IntVar(&f.MaxConnections, "max-connections", defaults.Pool.MaxConnections, "maximum admitted upstream connections")
	fs.IntVar(&f.ChannelCapacity, "channel-capacity", defaults.Pool.ChannelCapacity, "default per-connection egress channel depth")
	fs.IntVar(&f.IngressCapacity, "ingress-capacity", defaults.Pool.IngressCapacity, "shared ingress channel capacity")
	fs.DurationVar(&f.InactiveTimeout, "inactive-timeout", defaults.Pool.InactiveTimeout, "idle duration before a connection is considered stale")
	fs.BoolVar(&f.AutoReconnect, "auto-reconnect", defaults.Pool.AutoReconnect, "automatically reconnect failed connections")
	fs.StringVar(&f.IngressPolicy, "ingress-policy", defaults.Pool.IngressPolicy, "backpressure policy when the ingress channel is full")

	fs.StringVar(&f.DistributorStrategy, "distributor-strategy", defaults.Distributor.Strategy, "multicast or unicast dispatch")
	fs.IntVar(&f.DistributorWorkers, "distributor-workers", defaults.Distributor.MaxWorkers, "distributor worker pool size")

	fs.DurationVar(&f.DedupWindow, "dedup-window", defaults.Aggregator.DedupWindow, "deduplication window")
	fs.IntVar(&f.MaxCacheEntries, "max-cache-entries", defaults.Aggregator.MaxCacheEntries, "dedup cache capacity before emergency eviction")
	fs.DurationVar(&f.CleanupInterval, "cleanup-interval", defaults.Aggregator.CleanupInterval, "dedup cache sweep interval")
	fs.IntVar(&f.AggregatorWorkers, "aggregator-workers", defaults.Aggregator.WorkerCount, "aggregator worker pool size")

	fs.DurationVar(&f.CheckInterval, "check-interval", defaults.Health.CheckInterval, "health monitor evaluation interval")
	fs.DurationVar(&f.UnhealthyThreshold, "unhealthy-threshold", defaults.Health.UnhealthyThreshold, "inactivity duration before a connection is unhealthy")
	fs.DurationVar(&f.DegradedThreshold, "degraded-threshold", defaults.Health.DegradedThreshold, "inactivity duration before a connection is degraded")
	fs.UintVar(&f.FailureThreshold, "failure-threshold", uint(defaults.Health.FailureThreshold), "consecutive failures before the circuit opens")
	fs.DurationVar(&f.ResetTimeout, "reset-timeout", defaults.Health.ResetTimeout, "duration an open circuit waits before probing")
	fs.UintVar(&f.SuccessThreshold, "success-threshold", uint(defaults.Health.SuccessThreshold), "consecutive successful probes before the circuit closes")

	fs.IntVar(&f.MaxConcurrent, "max-concurrent", defaults.Limiter.MaxConcurrent, "global admission semaphore size")
	fs.IntVar(&f.MaxQueueSize, "max-queue-size", defaults.Limiter.MaxQueueSize, "bounded admission wait queue size")
	fs.BoolVar(&f.EnableRateLimit, "enable-rate-limit", defaults.Limiter.EnableRateLimit, "enable the leaky-bucket admission rate limit")
	fs.Float64Var(&f.RateLimitOpsPerSec, "rate-limit-ops", defaults.Limiter.RateLimitOpsPerSec, "admission rate limit in operations per second")

	fs.DurationVar(&f.ReconnectInitial, "reconnect-initial", defaults.Reconnect.Initial, "initial reconnect backoff delay")
	fs.Float64Var(&f.ReconnectMultiplier, "reconnect-multiplier", defaults.Reconnect.Multiplier, "reconnect backoff growth multiplier")
	fs.DurationVar(&f.ReconnectMaximum, "reconnect-maximum", defaults.Reconnect.Maximum, "reconnect backoff ceiling")

	fs.BoolVar(&f.MetricsEnabled, "metrics-enabled", defaults.Metrics.Enabled, "serve the /metrics and /healthz endpoints")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", defaults.Metrics.BindAddr, "metrics server listen address")
	fs.StringVar(&f.LogLevel, "log-level", defaults.Logging.Level, "structured log level")

	fs.StringVar(&f.ConnectionsFile, "connections-file", "", "YAML file describing upstream connections and routes to pre-register")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// Build assembles a Config from parsed flags, overlaying a YAML file at
// ConfigFile when one was given.
func Build(f *FlagSet) (Config, error) {
	cfg := Default()

	if f.ConfigFile != "" {
		overlay, err := loadYAMLOverlay(f.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", f.ConfigFile, err)
		}
		cfg = overlay
	}

	cfg.Pool.MaxConnections = f.MaxConnections
	cfg.Pool.ChannelCapacity = f.ChannelCapacity
	cfg.Pool.IngressCapacity = f.IngressCapacity
	cfg.Pool.InactiveTimeout = f.InactiveTimeout
	cfg.Pool.AutoReconnect = f.AutoReconnect
	cfg.Pool.IngressPolicy = f.IngressPolicy

	cfg.Distributor.Strategy = f.DistributorStrategy
	cfg.Distributor.MaxWorkers = f.DistributorWorkers

	cfg.Aggregator.DedupWindow = f.DedupWindow
	cfg.Aggregator.MaxCacheEntries = f.MaxCacheEntries
	cfg.Aggregator.CleanupInterval = f.CleanupInterval
	cfg.Aggregator.WorkerCount = f.AggregatorWorkers

	cfg.Health.CheckInterval = f.CheckInterval
	cfg.Health.UnhealthyThreshold = f.UnhealthyThreshold
	cfg.Health.DegradedThreshold = f.DegradedThreshold
	cfg.Health.FailureThreshold = uint32(f.FailureThreshold)
	cfg.Health.ResetTimeout = f.ResetTimeout
	cfg.Health.SuccessThreshold = uint32(f.SuccessThreshold)

	cfg.Limiter.MaxConcurrent = f.MaxConcurrent
	cfg.Limiter.MaxQueueSize = f.MaxQueueSize
	cfg.Limiter.EnableRateLimit = f.EnableRateLimit
	cfg.Limiter.RateLimitOpsPerSec = f.RateLimitOpsPerSec

	cfg.Reconnect.Initial = f.ReconnectInitial
	cfg.Reconnect.Multiplier = f.ReconnectMultiplier
	cfg.Reconnect.Maximum = f.ReconnectMaximum

	cfg.Metrics.Enabled = f.MetricsEnabled
	cfg.Metrics.BindAddr = f.MetricsAddr
	cfg.Logging.Level = f.LogLevel
	cfg.ConnectionsFile = f.ConnectionsFile

	return cfg, nil
}

func loadYAMLOverlay(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
