package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/engindearing-projects/omniTAK-sub001/internal/framing"
)

// UDPClient is the connectionless variant: one datagram is one message,
// read timeouts are non-fatal (§4.2), and HealthCheck reports only the
// connection state, with no handshake or probe.
type UDPClient struct {
	cfg     Config
	conn    *net.UDPConn
	codec   *framing.UDPCodec
	state   atomic.Int32
	metrics ConnMetrics
	frames  chan Frame
	closed  atomic.Bool
	mu      sync.Mutex
}

func NewUDPClient(cfg Config) *UDPClient {
	return &UDPClient{cfg: cfg, frames: make(chan Frame, 64)}
}

func (c *UDPClient) Connect(ctx context.Context) error {
	c.setState(Connecting)
	addr, err := net.ResolveUDPAddr("udp", c.cfg.Endpoint.String())
	if err != nil {
		c.setState(Failed)
		return err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		c.setState(Failed)
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.codec = framing.NewUDPCodec(udpDatagramAdapter{conn}, &udpDropSink{&c.metrics})
	c.mu.Unlock()

	now := c.cfg.clockOrReal().Now()
	c.metrics.TouchConnectedAt(now.UnixNano())
	c.metrics.TouchActivity(now.UnixNano())
	c.setState(Connected)
	go c.readLoop()
	return nil
}

func (c *UDPClient) readLoop() {
	for {
		c.mu.Lock()
		codec := c.codec
		conn := c.conn
		c.mu.Unlock()
		if codec == nil {
			return
		}
		if c.cfg.ReadTimeout > 0 && conn != nil {
			_ = conn.SetReadDeadline(c.cfg.clockOrReal().Now().Add(c.cfg.ReadTimeout))
		}
		payload, err := codec.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// Non-fatal for UDP: loop and try again.
				continue
			}
			c.metrics.RecordError()
			c.frames <- Frame{Err: err}
			return
		}
		now := c.cfg.clockOrReal().Now()
		c.metrics.RecordReceive(len(payload))
		c.metrics.TouchActivity(now.UnixNano())
		select {
		case c.frames <- Frame{Payload: payload}:
		default:
		}
	}
}

func (c *UDPClient) Disconnect() error {
	if c.closed.Swap(true) {
		return ErrAlreadyClosed
	}
	c.setState(Disconnected)
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *UDPClient) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	codec := c.codec
	c.mu.Unlock()
	if codec == nil {
		return ErrNotConnected
	}
	if err := codec.WriteMessage(payload); err != nil {
		c.metrics.RecordError()
		return err
	}
	c.metrics.RecordSend(len(payload))
	c.metrics.TouchActivity(c.cfg.clockOrReal().Now().UnixNano())
	return nil
}

func (c *UDPClient) Receive() <-chan Frame { return c.frames }

func (c *UDPClient) HealthCheck(ctx context.Context) (HealthStatus, error) {
	return HealthStatus{Connected: c.IsConnected()}, nil
}

func (c *UDPClient) IsConnected() bool { return State(c.state.Load()) == Connected }
func (c *UDPClient) State() State      { return State(c.state.Load()) }
func (c *UDPClient) Metrics() *ConnMetrics {
	return &c.metrics
}

func (c *UDPClient) setState(s State) { c.state.Store(int32(s)) }

var _ Client = (*UDPClient)(nil)

// udpDatagramAdapter satisfies framing.DatagramReadWriter over a
// connected *net.UDPConn.
type udpDatagramAdapter struct {
	conn *net.UDPConn
}

func (a udpDatagramAdapter) ReadDatagram() ([]byte, error) {
	buf := make([]byte, 65507)
	n, err := a.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (a udpDatagramAdapter) WriteDatagram(b []byte) error {
	_, err := a.conn.Write(b)
	return err
}

// udpDropSink adapts ConnMetrics to framing.DropMetrics so oversized or
// invalid datagrams count against the connection's error metrics.
type udpDropSink struct {
	m *ConnMetrics
}

func (s *udpDropSink) OversizedDropped()    { s.m.RecordError() }
func (s *udpDropSink) InvalidFrameDropped() { s.m.RecordError() }
