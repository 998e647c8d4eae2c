package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/clock"
	"github.com/engindearing-projects/omniTAK-sub001/internal/transport"
)

// Config bundles the `health` configuration group.
type Config struct {
	CheckInterval      time.Duration
	UnhealthyThreshold time.Duration
	DegradedThreshold  time.Duration
	Circuit            CircuitConfig
	Backoff            transport.BackoffConfig
}

// ConnectionInfo is a point-in-time summary of one watched connection,
// narrow enough that the Monitor never needs to import internal/pool.
type ConnectionInfo struct {
	ID           string
	Connected    bool
	LastActivity time.Time
}

// Lister returns the current set of connections to evaluate.
type Lister interface {
	ListHealth() []ConnectionInfo
}

// Reconnector is asked to re-establish a connection once its breaker
// permits another attempt.
type Reconnector interface {
	Reconnect(ctx context.Context, id string) error
}

// Sink receives health-level metric events.
type Sink interface {
	StatusChanged(id string, status Status)
	CircuitOpened(id string)
	CircuitClosed(id string)
	ReconnectAttempted(id string, err error)
}

type noopSink struct{}

func (noopSink) StatusChanged(string, Status)  {}
func (noopSink) CircuitOpened(string)          {}
func (noopSink) CircuitClosed(string)          {}
func (noopSink) ReconnectAttempted(string, error) {}

type watchEntry struct {
	breaker *CircuitBreaker
	backoff *transport.ExponentialBackoff
	status  Status
	nextTry time.Time
	waiting bool
}

// Monitor periodically evaluates every connection's last-activity age
// against unhealthy_threshold, drives each connection's circuit
// breaker, and schedules reconnects through backoff while the breaker
// allows it.
type Monitor struct {
	cfg         Config
	clk         clock.Clock
	sink        Sink
	logger      *slog.Logger
	reconnector Reconnector

	mu      sync.Mutex
	entries map[string]*watchEntry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, reconnector Reconnector, sink Sink, clk clock.Clock, logger *slog.Logger) *Monitor {
	if sink == nil {
		sink = noopSink{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:         cfg,
		clk:         clk,
		sink:        sink,
		logger:      logger,
		reconnector: reconnector,
		entries:     make(map[string]*watchEntry),
	}
}

func (m *Monitor) entryFor(id string) *watchEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		e = &watchEntry{
			breaker: NewCircuitBreaker(m.cfg.Circuit, m.clk),
			backoff: transport.NewExponentialBackoff(m.cfg.Backoff),
			status:  Healthy,
		}
		m.entries[id] = e
	}
	return e
}

// Forget drops a connection's tracked state, used after RemoveConnection.
func (m *Monitor) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

// Start launches the periodic evaluation loop.
func (m *Monitor) Start(ctx context.Context, lister Lister) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	interval := m.cfg.CheckInterval
	if interval <= 0 {
		interval = time.Second
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := m.clk.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				m.evaluateAll(ctx, lister)
			}
		}
	}()
}

func (m *Monitor) evaluateAll(ctx context.Context, lister Lister) {
	for _, info := range lister.ListHealth() {
		m.Evaluate(ctx, info)
	}
}

// Evaluate classifies one connection, drives its breaker, and triggers
// a reconnect attempt if the breaker allows one and the connection is
// not currently healthy. Exported directly so tests can drive single
// evaluations without a ticking loop.
func (m *Monitor) Evaluate(ctx context.Context, info ConnectionInfo) Status {
	e := m.entryFor(info.ID)
	now := m.clk.Now()

	var status Status
	switch {
	case !info.Connected:
		status = Disconnected
	case m.cfg.UnhealthyThreshold > 0 && now.Sub(info.LastActivity) >= m.cfg.UnhealthyThreshold:
		status = Unhealthy
	case m.cfg.DegradedThreshold > 0 && now.Sub(info.LastActivity) >= m.cfg.DegradedThreshold:
		status = Degraded
	default:
		status = Healthy
	}

	m.mu.Lock()
	changed := e.status != status
	e.status = status
	m.mu.Unlock()
	if changed {
		m.sink.StatusChanged(info.ID, status)
	}

	if status == Healthy {
		wasOpen := e.breaker.State() != Closed
		e.breaker.RecordSuccess()
		if wasOpen && e.breaker.State() == Closed {
			m.sink.CircuitClosed(info.ID)
			e.backoff.Reset()
		}
		return status
	}

	wasClosed := e.breaker.State() == Closed
	e.breaker.RecordFailure()
	if wasClosed && e.breaker.State() == Open {
		m.sink.CircuitOpened(info.ID)
	}

	if m.reconnector == nil || !e.breaker.Allow() {
		return status
	}

	m.mu.Lock()
	exhausted := m.cfg.Backoff.MaxAttempts != nil && e.backoff.Attempts() >= *m.cfg.Backoff.MaxAttempts
	ready := !exhausted && (!e.waiting || !now.Before(e.nextTry))
	if ready {
		e.waiting = true
	}
	m.mu.Unlock()
	if !ready {
		return status
	}

	err := m.reconnector.Reconnect(ctx, info.ID)
	m.sink.ReconnectAttempted(info.ID, err)

	m.mu.Lock()
	e.waiting = false
	if err != nil {
		delay, _ := e.backoff.Next()
		e.nextTry = now.Add(delay)
	} else {
		e.backoff.Reset()
	}
	m.mu.Unlock()

	return status
}

// Status returns the last classification recorded for id.
func (m *Monitor) Status(id string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return Healthy, false
	}
	return e.status, true
}

// Circuit returns the breaker tracking id, creating one if unseen.
func (m *Monitor) Circuit(id string) *CircuitBreaker {
	return m.entryFor(id).breaker
}

// Stop cancels the evaluation loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
