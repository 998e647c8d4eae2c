// Package metrics implements the metrics registry: typed atomic
// counters and gauges grouped by subsystem, exposed as a Prometheus
// text scrape alongside a /healthz endpoint over echo, mirroring the
// teacher's REST admin API idiom scoped down to observability only.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/engindearing-projects/omniTAK-sub001/internal/health"
)

// PoolMetrics backs pool.Sink.
type PoolMetrics struct {
	ConnectionsAdded   atomic.Uint64
	ConnectionsRemoved atomic.Uint64
	IngressDropped     atomic.Uint64
	BytesSent          atomic.Uint64
	MessagesSent       atomic.Uint64
	BytesReceived      atomic.Uint64
	MessagesReceived   atomic.Uint64
	Errors             atomic.Uint64
	ReconnectAttempts  atomic.Uint64
}

func (m *PoolMetrics) ConnectionAdded()   { m.ConnectionsAdded.Add(1) }
func (m *PoolMetrics) ConnectionRemoved() { m.ConnectionsRemoved.Add(1) }
func (m *PoolMetrics) IngressDropped()    { m.IngressDropped.Add(1) }
func (m *PoolMetrics) MessageSent(bytes int) {
	m.MessagesSent.Add(1)
	m.BytesSent.Add(uint64(bytes))
}
func (m *PoolMetrics) MessageReceived(bytes int) {
	m.MessagesReceived.Add(1)
	m.BytesReceived.Add(uint64(bytes))
}
func (m *PoolMetrics) Error()            { m.Errors.Add(1) }
func (m *PoolMetrics) ReconnectAttempt() { m.ReconnectAttempts.Add(1) }

// AggregatorMetrics mirrors aggregator.Counters for scrape exposition;
// the aggregator keeps its own atomic counters directly (it already
// needs DedupRatio()), this struct is populated from a snapshot rather
// than receiving live events.
type AggregatorMetrics struct {
	TotalReceived     uint64
	DuplicatesDropped uint64
	UniqueForwarded   uint64
	ParseFailures     uint64
	CacheSize         int64
}

// DistributorMetrics backs distributor.Sink.
type DistributorMetrics struct {
	Inputs          atomic.Uint64
	FanOuts         atomic.Uint64
	FilterPasses    atomic.Uint64
	FilterBlocks    atomic.Uint64
	QueueFullDrops  atomic.Uint64
}

func (m *DistributorMetrics) Input()             { m.Inputs.Add(1) }
func (m *DistributorMetrics) FanOut()            { m.FanOuts.Add(1) }
func (m *DistributorMetrics) FilterPass(string)  { m.FilterPasses.Add(1) }
func (m *DistributorMetrics) FilterBlock(string) { m.FilterBlocks.Add(1) }
func (m *DistributorMetrics) QueueFullDrop(string) { m.QueueFullDrops.Add(1) }

// HealthMetrics backs health.Sink.
type HealthMetrics struct {
	CircuitOpens   atomic.Uint64
	CircuitCloses  atomic.Uint64
	ReconnectTries atomic.Uint64
	ReconnectFails atomic.Uint64
}

func (m *HealthMetrics) StatusChanged(string, health.Status) {}
func (m *HealthMetrics) CircuitOpened(string)                { m.CircuitOpens.Add(1) }
func (m *HealthMetrics) CircuitClosed(string)                { m.CircuitCloses.Add(1) }
func (m *HealthMetrics) ReconnectAttempted(id string, err error) {
	m.ReconnectTries.Add(1)
	if err != nil {
		m.ReconnectFails.Add(1)
	}
}

// LimiterMetrics backs a concurrency.Sink-shaped consumer. The limiter
// does not push events and nothing in this module stores into these
// fields, so both scrape as zero unless a caller sets them.
type LimiterMetrics struct {
	QueueDepth atomic.Int64
	AtCapacity atomic.Uint64
}

// Registry aggregates every subsystem's metrics for scrape exposition.
type Registry struct {
	Pool         PoolMetrics
	Distributor  DistributorMetrics
	Health       HealthMetrics
	Limiter      LimiterMetrics
	aggregatorFn func() AggregatorMetrics
}

func NewRegistry() *Registry {
	return &Registry{}
}

// SetAggregatorSource wires a callback the registry polls at scrape
// time, since the aggregator's counters live on the Aggregator itself
// rather than being pushed here.
func (r *Registry) SetAggregatorSource(fn func() AggregatorMetrics) {
	r.aggregatorFn = fn
}

// ScrapeText renders every counter as Prometheus-style text exposition.
func (r *Registry) ScrapeText() string {
	var b strings.Builder
	line := func(name string, value uint64) {
		fmt.Fprintf(&b, "omnitak_%s %d\n", name, value)
	}
	lineI := func(name string, value int64) {
		fmt.Fprintf(&b, "omnitak_%s %d\n", name, value)
	}

	line("pool_connections_added_total", r.Pool.ConnectionsAdded.Load())
	line("pool_connections_removed_total", r.Pool.ConnectionsRemoved.Load())
	line("pool_ingress_dropped_total", r.Pool.IngressDropped.Load())
	line("pool_bytes_sent_total", r.Pool.BytesSent.Load())
	line("pool_messages_sent_total", r.Pool.MessagesSent.Load())
	line("pool_bytes_received_total", r.Pool.BytesReceived.Load())
	line("pool_messages_received_total", r.Pool.MessagesReceived.Load())
	line("pool_errors_total", r.Pool.Errors.Load())
	line("pool_reconnect_attempts_total", r.Pool.ReconnectAttempts.Load())

	if r.aggregatorFn != nil {
		snap := r.aggregatorFn()
		line("aggregator_total_received", snap.TotalReceived)
		line("aggregator_duplicates_dropped_total", snap.DuplicatesDropped)
		line("aggregator_unique_forwarded_total", snap.UniqueForwarded)
		line("aggregator_parse_failures_total", snap.ParseFailures)
		lineI("aggregator_cache_size", snap.CacheSize)
	}

	line("distributor_inputs_total", r.Distributor.Inputs.Load())
	line("distributor_fan_outs_total", r.Distributor.FanOuts.Load())
	line("distributor_filter_passes_total", r.Distributor.FilterPasses.Load())
	line("distributor_filter_blocks_total", r.Distributor.FilterBlocks.Load())
	line("distributor_queue_full_drops_total", r.Distributor.QueueFullDrops.Load())

	line("health_circuit_opens_total", r.Health.CircuitOpens.Load())
	line("health_circuit_closes_total", r.Health.CircuitCloses.Load())
	line("health_reconnect_attempts_total", r.Health.ReconnectTries.Load())
	line("health_reconnect_failures_total", r.Health.ReconnectFails.Load())

	lineI("limiter_queue_depth", r.Limiter.QueueDepth.Load())
	line("limiter_at_capacity_total", r.Limiter.AtCapacity.Load())

	return b.String()
}
