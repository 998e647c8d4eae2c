package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func pipeDialer(server net.Conn) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return server, nil
	}
}

func TestTCPClientSendReceive(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()

	c := NewTCPClient(Config{Endpoint: Endpoint{Host: "127.0.0.1", Port: 8087}})
	c.dial = pipeDialer(clientSide)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatal("expected connected state")
	}

	go func() {
		buf := make([]byte, 256)
		var total []byte
		for {
			n, err := serverSide.Read(buf)
			if err != nil {
				return
			}
			total = append(total, buf[:n]...)
			if len(total) > 0 && total[len(total)-1] == '\n' {
				break
			}
		}
		serverSide.Write(total)
	}()

	if err := c.Send(context.Background(), []byte("<event/>")); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case frame := <-c.Receive():
		if frame.Err != nil {
			t.Fatalf("frame error: %v", frame.Err)
		}
		if string(frame.Payload) != "<event/>" {
			t.Fatalf("got %q", frame.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed frame")
	}

	snap := c.Metrics().Snapshot()
	if snap.MessagesSent != 1 || snap.MessagesReceived != 1 {
		t.Fatalf("unexpected metrics snapshot: %+v", snap)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if c.IsConnected() {
		t.Fatal("expected disconnected after Disconnect")
	}
}

func TestTCPClientSendWithoutConnect(t *testing.T) {
	c := NewTCPClient(Config{Endpoint: Endpoint{Host: "127.0.0.1", Port: 1}})
	if err := c.Send(context.Background(), []byte("x")); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
