// Package config defines the typed configuration surface for
// cmd/omnitak-pool: one struct per tunable group named in the pool,
// distributor, aggregator, health, limiter, and reconnect groupings,
// plus the ambient metrics/logging settings every deployment needs.
// Nothing in the core packages imports this package directly — they
// each take their own narrow Config struct, and only the entrypoint
// wires values from here into them.
package config

import "time"

// PoolConfig mirrors pool.Config's source values before they are
// converted into the internal duration/policy types.
type PoolConfig struct {
	MaxConnections  int
	ChannelCapacity int
	IngressCapacity int
	InactiveTimeout time.Duration
	AutoReconnect   bool
	IngressPolicy   string // "drop_on_full" | "drop_oldest" | "block"
	IngressTimeout  time.Duration
}

// DistributorConfig mirrors distributor.Config.
type DistributorConfig struct {
	Strategy        string // "multicast" | "unicast"
	MaxWorkers      int
	ChannelCapacity int
}

// AggregatorConfig mirrors aggregator.Config.
type AggregatorConfig struct {
	DedupWindow     time.Duration
	MaxCacheEntries int
	CleanupInterval time.Duration
	WorkerCount     int
	ChannelCapacity int
}

// HealthConfig mirrors health.Config's non-breaker fields; breaker and
// backoff tunables are split out below to match the `health`/`reconnect`
// group split.
type HealthConfig struct {
	CheckInterval      time.Duration
	UnhealthyThreshold time.Duration
	DegradedThreshold  time.Duration
	FailureThreshold   uint32
	ResetTimeout       time.Duration
	SuccessThreshold   uint32
}

// LimiterConfig mirrors concurrency.Config.
type LimiterConfig struct {
	MaxConcurrent      int
	MaxQueueSize       int
	EnableRateLimit    bool
	RateLimitOpsPerSec float64
	RateLimitBurst     int
}

// ReconnectConfig mirrors transport.BackoffConfig.
type ReconnectConfig struct {
	Initial     time.Duration
	Multiplier  float64
	Maximum     time.Duration
	MaxAttempts uint // 0 means unlimited
}

// MetricsConfig is ambient: the spec's Non-goals exclude a full
// observability stack, but a bind address for the scrape endpoint is
// still carried through per SPEC_FULL.md's ambient-stack requirement.
type MetricsConfig struct {
	Enabled  bool
	BindAddr string
}

// LoggingConfig is ambient.
type LoggingConfig struct {
	Level string // "debug" | "info" | "warn" | "error"
}

// Config is the full, assembled configuration for one omnitak-pool
// process.
type Config struct {
	Pool            PoolConfig
	Distributor     DistributorConfig
	Aggregator      AggregatorConfig
	Health          HealthConfig
	Limiter         LimiterConfig
	Reconnect       ReconnectConfig
	Metrics         MetricsConfig
	Logging         LoggingConfig
	ConnectionsFile string
}

// Default returns the built-in baseline before flag or file overrides
// are applied.
func Default() Config {
	return Config{
		Pool: PoolConfig{
			MaxConnections:  256,
			ChannelCapacity: 256,
			IngressCapacity: 4096,
			InactiveTimeout: 5 * time.Minute,
			AutoReconnect:   true,
			IngressPolicy:   "drop_oldest",
		},
		Distributor: DistributorConfig{
			Strategy:        "multicast",
			MaxWorkers:      8,
			ChannelCapacity: 1024,
		},
		Aggregator: AggregatorConfig{
			DedupWindow:     30 * time.Second,
			MaxCacheEntries: 100_000,
			CleanupInterval: 10 * time.Second,
			WorkerCount:     4,
			ChannelCapacity: 4096,
		},
		Health: HealthConfig{
			CheckInterval:      5 * time.Second,
			UnhealthyThreshold: 30 * time.Second,
			DegradedThreshold:  10 * time.Second,
			FailureThreshold:   3,
			ResetTimeout:       15 * time.Second,
			SuccessThreshold:   2,
		},
		Limiter: LimiterConfig{
			MaxConcurrent:      500,
			MaxQueueSize:       1000,
			EnableRateLimit:    false,
			RateLimitOpsPerSec: 1000,
			RateLimitBurst:     100,
		},
		Reconnect: ReconnectConfig{
			Initial:    time.Second,
			Multiplier: 2,
			Maximum:    time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			BindAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
