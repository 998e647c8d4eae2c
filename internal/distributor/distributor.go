package distributor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/engindearing-projects/omniTAK-sub001/internal/aggregator"
	"github.com/engindearing-projects/omniTAK-sub001/internal/cot"
)

// Config mirrors the `distributor` configuration group.
type Config struct {
	Strategy        Strategy
	MaxWorkers      int
	ChannelCapacity int
}

// Sender is the Pool surface the Distributor needs: a non-blocking
// try-send per destination.
type Sender interface {
	SendTo(id string, message []byte) error
}

// Sink receives distributor-level metric events.
type Sink interface {
	Input()
	FanOut()
	FilterPass(routeID string)
	FilterBlock(routeID string)
	QueueFullDrop(routeID string)
}

type noopSink struct{}

func (noopSink) Input()                     {}
func (noopSink) FanOut()                    {}
func (noopSink) FilterPass(string)          {}
func (noopSink) FilterBlock(string)         {}
func (noopSink) QueueFullDrop(string)       {}

// RouteCounters tracks per-route pass/block/error counts.
type RouteCounters struct {
	Passes int64
	Blocks int64
	Errors int64
}

// PassRate returns the fraction of evaluated messages that passed this
// route's filter, or 0 if nothing has been evaluated yet.
func (c RouteCounters) PassRate() float64 {
	total := c.Passes + c.Blocks
	if total == 0 {
		return 0
	}
	return float64(c.Passes) / float64(total)
}

// Distributor evaluates every unique inbound message against the
// current RouteTable and enqueues matching copies onto the Pool.
type Distributor struct {
	cfg    Config
	pool   Sender
	sink   Sink
	logger *slog.Logger

	table atomic.Pointer[RouteTable]

	routeMu  sync.Mutex
	counters map[string]*RouteCounters

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, pool Sender, sink Sink, logger *slog.Logger) *Distributor {
	if sink == nil {
		sink = noopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Distributor{
		cfg:      cfg,
		pool:     pool,
		sink:     sink,
		logger:   logger,
		counters: make(map[string]*RouteCounters),
	}
	d.table.Store(NewRouteTable(cfg.Strategy))
	return d
}

// ReplaceTable atomically swaps in a new immutable route table.
func (d *Distributor) ReplaceTable(t *RouteTable) {
	d.table.Store(t)
}

// SetRoute upserts one route into the live table.
func (d *Distributor) SetRoute(id string, rule FilterRule, priority int) {
	current := d.table.Load()
	d.table.Store(current.WithRoute(Route{ID: id, Priority: priority, Rule: rule}))
	d.routeMu.Lock()
	if _, ok := d.counters[id]; !ok {
		d.counters[id] = &RouteCounters{}
	}
	d.routeMu.Unlock()
}

// RemoveRoute drops a route from the live table.
func (d *Distributor) RemoveRoute(id string) {
	current := d.table.Load()
	d.table.Store(current.WithoutRoute(id))
}

// SetStrategy swaps the dispatch strategy on the live table.
func (d *Distributor) SetStrategy(s Strategy) {
	current := d.table.Load()
	d.table.Store(current.WithStrategy(s))
}

// RouteCounters returns a copy of the counters recorded for id, if any.
func (d *Distributor) RouteCounters(id string) (RouteCounters, bool) {
	d.routeMu.Lock()
	defer d.routeMu.Unlock()
	c, ok := d.counters[id]
	if !ok {
		return RouteCounters{}, false
	}
	return *c, true
}

// Start launches max_workers workers draining in.
func (d *Distributor) Start(ctx context.Context, in <-chan aggregator.Message) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	workers := d.cfg.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, in)
	}
}

func (d *Distributor) worker(ctx context.Context, in <-chan aggregator.Message) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			d.dispatch(msg)
		}
	}
}

func (d *Distributor) dispatch(msg aggregator.Message) {
	d.sink.Input()

	ev, err := cot.Parse(msg.Payload)
	var view cot.View
	if err == nil {
		view = cot.NewView(ev)
	} else {
		view = cot.EmptyView()
	}

	table := d.table.Load()
	switch table.Strategy() {
	case Unicast:
		d.dispatchUnicast(table, view, msg.Payload)
	default:
		d.dispatchMulticast(table, view, msg.Payload)
	}
}

func (d *Distributor) dispatchMulticast(table *RouteTable, view cot.View, payload []byte) {
	for _, route := range table.Routes() {
		if route.Rule.Evaluate(view) == Pass {
			d.sink.FilterPass(route.ID)
			d.recordDecision(route.ID, true)
			d.send(route.ID, payload)
		} else {
			d.sink.FilterBlock(route.ID)
			d.recordDecision(route.ID, false)
		}
	}
}

func (d *Distributor) dispatchUnicast(table *RouteTable, view cot.View, payload []byte) {
	for _, route := range table.Routes() {
		if route.Rule.Evaluate(view) == Pass {
			d.sink.FilterPass(route.ID)
			d.recordDecision(route.ID, true)
			d.send(route.ID, payload)
			return
		}
		d.sink.FilterBlock(route.ID)
		d.recordDecision(route.ID, false)
	}
}

func (d *Distributor) send(routeID string, payload []byte) {
	d.sink.FanOut()
	if err := d.pool.SendTo(routeID, payload); err != nil {
		d.sink.QueueFullDrop(routeID)
		d.routeMu.Lock()
		if c, ok := d.counters[routeID]; ok {
			c.Errors++
		}
		d.routeMu.Unlock()
	}
}

func (d *Distributor) recordDecision(routeID string, pass bool) {
	d.routeMu.Lock()
	c, ok := d.counters[routeID]
	if !ok {
		c = &RouteCounters{}
		d.counters[routeID] = c
	}
	if pass {
		c.Passes++
	} else {
		c.Blocks++
	}
	d.routeMu.Unlock()
}

// Stop cancels the worker pool and waits for it to drain.
func (d *Distributor) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}
