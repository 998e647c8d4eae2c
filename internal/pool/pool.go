// Package pool implements the Connection Pool: the authoritative,
// concurrency-safe registry and lifecycle owner of every upstream
// connection, fanning inbound messages into one shared ingress channel
// and holding one bounded egress channel per connection.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engindearing-projects/omniTAK-sub001/internal/clock"
	"github.com/engindearing-projects/omniTAK-sub001/internal/transport"
)

// Limiter is the Concurrency Limiter's admission surface as seen by the
// Pool; kept as a narrow interface here so internal/pool never imports
// internal/concurrency.
type Limiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Sink receives pool-level metric events; internal/metrics implements it.
type Sink interface {
	ConnectionAdded()
	ConnectionRemoved()
	IngressDropped()
	MessageSent(bytes int)
	MessageReceived(bytes int)
	Error()
	ReconnectAttempt()
}

type noopSink struct{}

func (noopSink) ConnectionAdded()      {}
func (noopSink) ConnectionRemoved()    {}
func (noopSink) IngressDropped()       {}
func (noopSink) MessageSent(int)       {}
func (noopSink) MessageReceived(int)   {}
func (noopSink) Error()                {}
func (noopSink) ReconnectAttempt()     {}

// IngressMessage is one item handed from a connection's reader task to
// the Aggregator: the originating connection id, the raw payload, and
// the moment it was framed off the wire.
type IngressMessage struct {
	SourceID   string
	Payload    []byte
	ReceivedAt time.Time
}

// Spec describes a connection to admit. Client must already be
// constructed (by the caller, typically cmd/omnitak-pool or the Health
// Monitor on reconnect) but not yet connected; the Pool calls Connect.
type Spec struct {
	ID           string
	Name         string
	Endpoint     transport.Endpoint
	Variant      transport.Variant
	Priority     int
	Client       transport.Client
	EgressDepth  int
	EgressPolicy BackpressurePolicy
}

// Connection is the registry's view of one admitted connection.
type Connection struct {
	ID       string
	Name     string
	Endpoint transport.Endpoint
	Variant  transport.Variant
	Priority int
	Created  time.Time

	client       transport.Client
	egress       chan []byte
	egressPolicy BackpressurePolicy
	egressMu     sync.Mutex
	egressClosed bool

	cancel  context.CancelFunc
	done    chan struct{}
	release func()
}

// Snapshot is a read-only view handed to callers of ListConnections.
type Snapshot struct {
	ID       string
	Name     string
	Endpoint string
	Variant  string
	Priority int
	State    transport.State
	Created  time.Time
	Metrics  transport.ConnMetricsSnapshot
}

// Config bundles the pool-wide tunables from the `pool` configuration
// group.
type Config struct {
	MaxConnections   int
	ChannelCapacity  int // default egress depth when Spec.EgressDepth is 0
	IngressCapacity  int
	InactiveTimeout  time.Duration
	AutoReconnect    bool
	IngressPolicy    BackpressurePolicy
}

// Pool is the concurrent connection registry.
type Pool struct {
	cfg     Config
	limiter Limiter
	sink    Sink
	clock   clock.Clock
	logger  *slog.Logger

	mu          sync.RWMutex
	connections map[string]*Connection

	ingress chan IngressMessage

	shuttingDown bool
	wg           sync.WaitGroup
}

func New(cfg Config, limiter Limiter, sink Sink, clk clock.Clock, logger *slog.Logger) *Pool {
	if sink == nil {
		sink = noopSink{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	capacity := cfg.IngressCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	return &Pool{
		cfg:         cfg,
		limiter:     limiter,
		sink:        sink,
		clock:       clk,
		logger:      logger,
		connections: make(map[string]*Connection),
		ingress:     make(chan IngressMessage, capacity),
	}
}

// AddConnection admits a new connection: consults the limiter, connects
// the transport client, registers the entry, and starts its reader and
// writer tasks.
func (p *Pool) AddConnection(ctx context.Context, spec Spec) (string, error) {
	if spec.Endpoint.Host == "" {
		return "", ErrInvalidEndpoint
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}

	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return "", ErrShuttingDown
	}
	if _, exists := p.connections[spec.ID]; exists {
		p.mu.Unlock()
		return "", ErrDuplicateID
	}
	if p.cfg.MaxConnections > 0 && len(p.connections) >= p.cfg.MaxConnections {
		p.mu.Unlock()
		return "", ErrAtCapacity
	}
	p.mu.Unlock()

	var release func()
	if p.limiter != nil {
		r, err := p.limiter.Acquire(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrAtCapacity, err)
		}
		release = r
	}

	if err := spec.Client.Connect(ctx); err != nil {
		if release != nil {
			release()
		}
		return "", err
	}

	depth := spec.EgressDepth
	if depth <= 0 {
		depth = p.cfg.ChannelCapacity
	}
	if depth <= 0 {
		depth = 128
	}

	connCtx, cancel := context.WithCancel(context.Background())
	conn := &Connection{
		ID:           spec.ID,
		Name:         spec.Name,
		Endpoint:     spec.Endpoint,
		Variant:      spec.Variant,
		Priority:     spec.Priority,
		Created:      p.clock.Now(),
		client:       spec.Client,
		egress:       make(chan []byte, depth),
		egressPolicy: spec.EgressPolicy,
		cancel:       cancel,
		done:         make(chan struct{}),
		release:      release,
	}

	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		cancel()
		_ = spec.Client.Disconnect()
		if release != nil {
			release()
		}
		return "", ErrShuttingDown
	}
	if _, exists := p.connections[spec.ID]; exists {
		p.mu.Unlock()
		cancel()
		_ = spec.Client.Disconnect()
		if release != nil {
			release()
		}
		return "", ErrDuplicateID
	}
	p.connections[spec.ID] = conn
	p.mu.Unlock()

	p.sink.ConnectionAdded()
	p.logger.Info("connection added", "id", spec.ID, "name", spec.Name, "endpoint", spec.Endpoint.String())

	p.wg.Add(2)
	go p.readerTask(connCtx, conn)
	go p.writerTask(connCtx, conn)

	return spec.ID, nil
}

// RemoveConnection drops the registry entry, cancels the connection's
// tasks, disconnects its client, waits for the reader task to exit, then
// closes the egress channel and releases the limiter permit. There is no
// separate Disconnecting state, and the writer task is not waited for.
func (p *Pool) RemoveConnection(id string) error {
	p.mu.Lock()
	conn, ok := p.connections[id]
	if !ok {
		p.mu.Unlock()
		return ErrNotFound
	}
	delete(p.connections, id)
	p.mu.Unlock()

	p.teardown(conn)
	p.sink.ConnectionRemoved()
	p.logger.Info("connection removed", "id", id)
	return nil
}

func (p *Pool) teardown(conn *Connection) {
	conn.cancel()
	_ = conn.client.Disconnect()
	<-conn.done
	conn.egressMu.Lock()
	conn.egressClosed = true
	close(conn.egress)
	conn.egressMu.Unlock()
	if conn.release != nil {
		conn.release()
	}
}

// SendTo applies the connection's backpressure policy to enqueue a
// message onto its egress channel.
func (p *Pool) SendTo(id string, message []byte) error {
	p.mu.RLock()
	conn, ok := p.connections[id]
	p.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	conn.egressMu.Lock()
	defer conn.egressMu.Unlock()
	if conn.egressClosed {
		return ErrClosed
	}
	return enqueue(conn.egress, message, conn.egressPolicy)
}

func enqueue[T any](ch chan T, message T, policy BackpressurePolicy) error {
	select {
	case ch <- message:
		return nil
	default:
	}

	switch policy.Kind {
	case DropOldest:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- message:
			return nil
		default:
			return ErrQueueFull
		}
	case BlockWithTimeout:
		timer := time.NewTimer(policy.Timeout)
		defer timer.Stop()
		select {
		case ch <- message:
			return nil
		case <-timer.C:
			return ErrQueueFull
		}
	default: // DropOnFull
		return ErrQueueFull
	}
}

// IngressReceiver returns the shared multi-producer single-consumer
// inbound channel the Aggregator drains.
func (p *Pool) IngressReceiver() <-chan IngressMessage {
	return p.ingress
}

// ListConnections returns a snapshot of every registered connection.
func (p *Pool) ListConnections() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Snapshot, 0, len(p.connections))
	for _, c := range p.connections {
		out = append(out, Snapshot{
			ID:       c.ID,
			Name:     c.Name,
			Endpoint: c.Endpoint.String(),
			Variant:  c.Variant.String(),
			Priority: c.Priority,
			State:    c.client.State(),
			Created:  c.Created,
			Metrics:  c.client.Metrics().Snapshot(),
		})
	}
	return out
}

// ConnectionCount reports the number of currently admitted connections.
func (p *Pool) ConnectionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.connections)
}

// Shutdown is idempotent: it removes every connection, joining their
// tasks within grace, and stops accepting new sends.
func (p *Pool) Shutdown(grace time.Duration) {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return
	}
	p.shuttingDown = true
	ids := make([]string, 0, len(p.connections))
	for id := range p.connections {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		_ = p.RemoveConnection(id)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		p.logger.Warn("shutdown grace period exceeded, abandoning remaining tasks")
	}
}

func (p *Pool) readerTask(ctx context.Context, conn *Connection) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			close(conn.done)
			return
		case frame, ok := <-conn.client.Receive():
			if !ok {
				close(conn.done)
				return
			}
			if frame.Err != nil {
				p.sink.Error()
				close(conn.done)
				return
			}
			p.sink.MessageReceived(len(frame.Payload))
			msg := IngressMessage{SourceID: conn.ID, Payload: frame.Payload, ReceivedAt: p.clock.Now()}
			if !p.tryIngress(msg) {
				p.sink.IngressDropped()
			}
		}
	}
}

func (p *Pool) tryIngress(msg IngressMessage) bool {
	policy := p.cfg.IngressPolicy
	if policy == (BackpressurePolicy{}) {
		// Zero-value config means "unset"; §4.3's stated default is
		// drop-oldest, not DropOnFull's zero value.
		policy = BackpressurePolicy{Kind: DropOldest}
	}
	return enqueue(p.ingress, msg, policy) == nil
}

func (p *Pool) writerTask(ctx context.Context, conn *Connection) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-conn.egress:
			if !ok {
				return
			}
			if err := conn.client.Send(ctx, payload); err != nil {
				p.sink.Error()
			} else {
				p.sink.MessageSent(len(payload))
			}
		}
	}
}
