package pool

import (
	"context"
	"testing"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/transport"
)

type fakeClient struct {
	id        string
	connected bool
	sent      [][]byte
	recv      chan transport.Frame
	metrics   transport.ConnMetrics
	failSend  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{recv: make(chan transport.Frame, 16)}
}

func (f *fakeClient) Connect(ctx context.Context) error { f.connected = true; return nil }
func (f *fakeClient) Disconnect() error                 { f.connected = false; close(f.recv); return nil }
func (f *fakeClient) Send(ctx context.Context, payload []byte) error {
	if f.failSend {
		return errFakeSend
	}
	f.sent = append(f.sent, payload)
	return nil
}
func (f *fakeClient) Receive() <-chan transport.Frame { return f.recv }
func (f *fakeClient) HealthCheck(ctx context.Context) (transport.HealthStatus, error) {
	return transport.HealthStatus{Connected: f.connected}, nil
}
func (f *fakeClient) IsConnected() bool            { return f.connected }
func (f *fakeClient) State() transport.State       { return transport.Connected }
func (f *fakeClient) Metrics() *transport.ConnMetrics { return &f.metrics }

var errFakeSend = fakeErr("send failed")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var _ transport.Client = (*fakeClient)(nil)

func TestAddConnectionAndSendTo(t *testing.T) {
	p := New(Config{ChannelCapacity: 4, IngressCapacity: 16}, nil, nil, nil, nil)
	client := newFakeClient()

	id, err := p.AddConnection(context.Background(), Spec{
		ID:       "c1",
		Name:     "primary",
		Endpoint: transport.Endpoint{Host: "127.0.0.1", Port: 9000},
		Priority: 10,
		Client:   client,
	})
	if err != nil {
		t.Fatalf("add connection: %v", err)
	}
	if id != "c1" {
		t.Fatalf("id = %q", id)
	}

	if err := p.SendTo("c1", []byte("hello")); err != nil {
		t.Fatalf("send_to: %v", err)
	}

	// writer task drains egress asynchronously
	deadline := time.After(time.Second)
	for len(client.sent) == 0 {
		select {
		case <-deadline:
			t.Fatal("writer task never drained egress")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if string(client.sent[0]) != "hello" {
		t.Fatalf("sent = %q", client.sent[0])
	}
}

func TestAddConnectionDuplicateID(t *testing.T) {
	p := New(Config{}, nil, nil, nil, nil)
	client1 := newFakeClient()
	client2 := newFakeClient()

	if _, err := p.AddConnection(context.Background(), Spec{ID: "dup", Endpoint: transport.Endpoint{Host: "h"}, Client: client1}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := p.AddConnection(context.Background(), Spec{ID: "dup", Endpoint: transport.Endpoint{Host: "h"}, Client: client2})
	if err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestAddConnectionAtCapacity(t *testing.T) {
	p := New(Config{MaxConnections: 1}, nil, nil, nil, nil)
	if _, err := p.AddConnection(context.Background(), Spec{ID: "a", Endpoint: transport.Endpoint{Host: "h"}, Client: newFakeClient()}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := p.AddConnection(context.Background(), Spec{ID: "b", Endpoint: transport.Endpoint{Host: "h"}, Client: newFakeClient()})
	if err != ErrAtCapacity {
		t.Fatalf("expected ErrAtCapacity, got %v", err)
	}
}

func TestRemoveConnectionThenListConnections(t *testing.T) {
	p := New(Config{}, nil, nil, nil, nil)
	client := newFakeClient()
	if _, err := p.AddConnection(context.Background(), Spec{ID: "c1", Endpoint: transport.Endpoint{Host: "h"}, Client: client}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.RemoveConnection("c1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(p.ListConnections()) != 0 {
		t.Fatalf("expected empty connection list after removal")
	}
	if err := p.RemoveConnection("c1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on double removal, got %v", err)
	}
}

func TestIngressFanIn(t *testing.T) {
	p := New(Config{IngressCapacity: 16}, nil, nil, nil, nil)
	client := newFakeClient()
	if _, err := p.AddConnection(context.Background(), Spec{ID: "c1", Endpoint: transport.Endpoint{Host: "h"}, Client: client}); err != nil {
		t.Fatalf("add: %v", err)
	}

	client.recv <- transport.Frame{Payload: []byte("<event uid=\"u1\"/>")}

	select {
	case msg := <-p.IngressReceiver():
		if msg.SourceID != "c1" {
			t.Fatalf("source id = %q", msg.SourceID)
		}
		if string(msg.Payload) != `<event uid="u1"/>` {
			t.Fatalf("payload = %q", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ingress message")
	}
}

func TestShutdownIsIdempotentAndJoinsTasks(t *testing.T) {
	p := New(Config{}, nil, nil, nil, nil)
	client := newFakeClient()
	if _, err := p.AddConnection(context.Background(), Spec{ID: "c1", Endpoint: transport.Endpoint{Host: "h"}, Client: client}); err != nil {
		t.Fatalf("add: %v", err)
	}
	p.Shutdown(time.Second)
	p.Shutdown(time.Second) // idempotent, must not panic or block forever

	if len(p.ListConnections()) != 0 {
		t.Fatal("expected no connections after shutdown")
	}
}

func TestSendToUnknownID(t *testing.T) {
	p := New(Config{}, nil, nil, nil, nil)
	if err := p.SendTo("missing", []byte("x")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEgressDropOnFull(t *testing.T) {
	p := New(Config{}, nil, nil, nil, nil)
	client := newFakeClient()
	client.failSend = false
	_, err := p.AddConnection(context.Background(), Spec{
		ID:           "c1",
		Endpoint:     transport.Endpoint{Host: "h"},
		Client:       client,
		EgressDepth:  1,
		EgressPolicy: BackpressurePolicy{Kind: DropOnFull},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	// Send repeatedly through SendTo so some sends may find the 1-slot
	// channel still full before the writer task drains it. Because
	// draining is asynchronous this is inherently racy; the test only
	// checks that SendTo returns (nil or ErrQueueFull) rather than
	// blocking forever.
	errs := 0
	for i := 0; i < 50; i++ {
		if err := p.SendTo("c1", []byte("x")); err == ErrQueueFull {
			errs++
		}
	}
	_ = errs // zero or more drops are both valid depending on scheduler timing
}
