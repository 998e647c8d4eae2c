// Package aggregator implements the deduplication stage: it drains the
// Pool's shared ingress channel, extracts a fingerprint per message, and
// forwards only first-seen messages to the Distributor.
package aggregator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/clock"
	"github.com/engindearing-projects/omniTAK-sub001/internal/pool"
)

// Config mirrors the `aggregator` configuration group.
type Config struct {
	DedupWindow     time.Duration
	MaxCacheEntries int
	CleanupInterval time.Duration
	WorkerCount     int
	ChannelCapacity int
}

// Message is what a worker hands to the Distributor: the original
// payload plus its source and receive time.
type Message struct {
	SourceID   string
	Payload    []byte
	ReceivedAt time.Time
}

// Counters are the observable metrics named in §4.4.
type Counters struct {
	TotalReceived     atomic.Uint64
	DuplicatesDropped atomic.Uint64
	UniqueForwarded   atomic.Uint64
	ParseFailures     atomic.Uint64
}

// DedupRatio returns duplicates_dropped / total_received, or 0 when no
// messages have been seen yet.
func (c *Counters) DedupRatio() float64 {
	total := c.TotalReceived.Load()
	if total == 0 {
		return 0
	}
	return float64(c.DuplicatesDropped.Load()) / float64(total)
}

// Ingress is the narrow surface the Aggregator needs from the Pool; kept
// as an interface so tests can feed it directly.
type Ingress interface {
	IngressReceiver() <-chan pool.IngressMessage
}

// Aggregator runs worker_count workers over the shared ingress channel
// and a periodic cleanup task over the dedup table.
type Aggregator struct {
	cfg    Config
	table  *dedupTable
	clk    clock.Clock
	logger *slog.Logger

	counters Counters

	out    chan Message
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, clk clock.Clock, logger *slog.Logger) *Aggregator {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	capacity := cfg.ChannelCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	return &Aggregator{
		cfg:    cfg,
		table:  newDedupTable(cfg.DedupWindow, cfg.MaxCacheEntries),
		clk:    clk,
		logger: logger,
		out:    make(chan Message, capacity),
	}
}

// Output is the channel the Distributor drains.
func (a *Aggregator) Output() <-chan Message {
	return a.out
}

// CacheSize reports the dedup table's current approximate entry count.
func (a *Aggregator) CacheSize() int64 {
	return a.table.Size()
}

// Stats is a point-in-time copy of the aggregator's counters, suitable
// for polling from a metrics scrape.
type Stats struct {
	TotalReceived     uint64
	DuplicatesDropped uint64
	UniqueForwarded   uint64
	ParseFailures     uint64
	CacheSize         int64
}

// Snapshot reads the live counters without resetting them.
func (a *Aggregator) Snapshot() Stats {
	return Stats{
		TotalReceived:     a.counters.TotalReceived.Load(),
		DuplicatesDropped: a.counters.DuplicatesDropped.Load(),
		UniqueForwarded:   a.counters.UniqueForwarded.Load(),
		ParseFailures:     a.counters.ParseFailures.Load(),
		CacheSize:         a.table.Size(),
	}
}

// Start launches the worker pool and the cleanup task.
func (a *Aggregator) Start(ctx context.Context, in Ingress) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	workers := a.cfg.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker(ctx, in.IngressReceiver())
	}

	if a.cfg.CleanupInterval > 0 {
		a.wg.Add(1)
		go a.cleanupLoop(ctx)
	}
}

func (a *Aggregator) worker(ctx context.Context, ingress <-chan pool.IngressMessage) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ingress:
			if !ok {
				return
			}
			a.process(msg)
		}
	}
}

func (a *Aggregator) process(msg pool.IngressMessage) {
	a.counters.TotalReceived.Add(1)

	fp, parsed := Extract(msg.Payload)
	if !parsed {
		a.counters.ParseFailures.Add(1)
	}

	now := a.clk.Now()
	result := a.table.checkAndInsert(fp, now)
	if a.table.maxEntries > 0 && a.table.Size() > int64(a.table.maxEntries) {
		a.table.enforceCap()
	}

	if result == duplicate {
		a.counters.DuplicatesDropped.Add(1)
		return
	}

	// Parse failures still forward: a parse-failed message is counted in
	// parse_failures and also in unique_forwarded (or duplicates_dropped),
	// so total_received = unique_forwarded + duplicates_dropped.
	a.counters.UniqueForwarded.Add(1)
	out := Message{SourceID: msg.SourceID, Payload: msg.Payload, ReceivedAt: msg.ReceivedAt}
	select {
	case a.out <- out:
	default:
		// The Distributor's input is itself bounded; a full channel here
		// means the Distributor is behind. Block until it has room rather than
		// drop, since Aggregator->Distributor has no configured
		// backpressure policy of its own in §4.4.
		a.out <- out
	}
}

func (a *Aggregator) cleanupLoop(ctx context.Context) {
	defer a.wg.Done()
	ticker := a.clk.NewTicker(a.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			evicted := a.table.cleanup(a.clk.Now())
			if evicted > 0 {
				a.logger.Debug("dedup cleanup evicted entries", "count", evicted)
			}
		}
	}
}

// Stop cancels the worker pool and cleanup task and waits for them to
// exit.
func (a *Aggregator) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}
