package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/engindearing-projects/omniTAK-sub001/internal/framing"
)

// WebSocketClient dials a plain ws:// upstream (wss:// is not supported) and frames each
// WebSocket frame as one message, per §4.1's WebSocket row.
type WebSocketClient struct {
	cfg    Config
	dialer *websocket.Dialer

	mu    sync.Mutex
	conn  *websocket.Conn
	codec *framing.WebSocketCodec

	state   atomic.Int32
	metrics ConnMetrics
	frames  chan Frame
	closed  atomic.Bool
}

func NewWebSocketClient(cfg Config, dialer *websocket.Dialer) *WebSocketClient {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebSocketClient{cfg: cfg, dialer: dialer, frames: make(chan Frame, 64)}
}

func (c *WebSocketClient) Connect(ctx context.Context) error {
	c.setState(Connecting)
	url := "ws://" + c.cfg.Endpoint.String() + "/"
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		c.setState(Failed)
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.codec = framing.NewWebSocketCodec(wsConnAdapter{conn}, &udpDropSink{&c.metrics})
	c.mu.Unlock()

	now := c.cfg.clockOrReal().Now()
	c.metrics.TouchConnectedAt(now.UnixNano())
	c.metrics.TouchActivity(now.UnixNano())
	c.setState(Connected)
	go c.readLoop()
	return nil
}

func (c *WebSocketClient) readLoop() {
	for {
		c.mu.Lock()
		codec := c.codec
		c.mu.Unlock()
		if codec == nil {
			return
		}
		payload, err := codec.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.metrics.RecordError()
			c.setState(Reconnecting)
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

func (c *WebSocketClient) Disconnect() error {
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
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (c *WebSocketClient) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	codec := c.codec
	conn := c.conn
	c.mu.Unlock()
	if codec == nil {
		return ErrNotConnected
	}
	if c.cfg.WriteTimeout > 0 && conn != nil {
		_ = conn.SetWriteDeadline(c.cfg.clockOrReal().Now().Add(c.cfg.WriteTimeout))
	}
	if err := codec.WriteMessage(payload); err != nil {
		c.metrics.RecordError()
		return err
	}
	c.metrics.RecordSend(len(payload))
	c.metrics.TouchActivity(c.cfg.clockOrReal().Now().UnixNano())
	return nil
}

func (c *WebSocketClient) Receive() <-chan Frame { return c.frames }

func (c *WebSocketClient) HealthCheck(ctx context.Context) (HealthStatus, error) {
	start := c.cfg.clockOrReal().Now()
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return HealthStatus{Connected: false}, ErrNotConnected
	}
	if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		return HealthStatus{Connected: false}, err
	}
	return HealthStatus{Connected: true, RoundTripTime: c.cfg.clockOrReal().Now().Sub(start)}, nil
}

func (c *WebSocketClient) IsConnected() bool { return State(c.state.Load()) == Connected }
func (c *WebSocketClient) State() State      { return State(c.state.Load()) }
func (c *WebSocketClient) Metrics() *ConnMetrics {
	return &c.metrics
}

func (c *WebSocketClient) setState(s State) { c.state.Store(int32(s)) }

var _ Client = (*WebSocketClient)(nil)

// wsConnAdapter satisfies framing.WebSocketConn over a
// *gorilla/websocket.Conn.
type wsConnAdapter struct {
	conn *websocket.Conn
}

func (a wsConnAdapter) ReadFrame() (framing.WebSocketFrame, error) {
	msgType, payload, err := a.conn.ReadMessage()
	if err != nil {
		return framing.WebSocketFrame{}, err
	}
	return framing.WebSocketFrame{Text: msgType == websocket.TextMessage, Payload: payload}, nil
}

func (a wsConnAdapter) WriteText(b []byte) error {
	return a.conn.WriteMessage(websocket.TextMessage, b)
}

func (a wsConnAdapter) WriteBinary(b []byte) error {
	return a.conn.WriteMessage(websocket.BinaryMessage, b)
}
