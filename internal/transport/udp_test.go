package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestUDPClientSendReceiveLoopback(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer serverConn.Close()

	addr := serverConn.LocalAddr().(*net.UDPAddr)
	c := NewUDPClient(Config{Endpoint: Endpoint{Host: "127.0.0.1", Port: addr.Port}})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.Send(context.Background(), []byte("<event uid=\"u1\"/>")); err != nil {
		t.Fatalf("send: %v", err)
	}

	buf := make([]byte, 2048)
	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, clientAddr, err := serverConn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(buf[:n]) != `<event uid="u1"/>` {
		t.Fatalf("got %q", buf[:n])
	}

	// echo straight back to the client's ephemeral port
	if _, err := serverConn.WriteToUDP(buf[:n], clientAddr); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case frame := <-c.Receive():
		if frame.Err != nil {
			t.Fatalf("frame error: %v", frame.Err)
		}
		if string(frame.Payload) != `<event uid="u1"/>` {
			t.Fatalf("got %q", frame.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed datagram")
	}

	snap := c.Metrics().Snapshot()
	if snap.MessagesSent != 1 || snap.MessagesReceived != 1 {
		t.Fatalf("unexpected metrics: %+v", snap)
	}
}

func TestUDPClientDropsOversizedDatagram(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer serverConn.Close()

	addr := serverConn.LocalAddr().(*net.UDPAddr)
	c := NewUDPClient(Config{Endpoint: Endpoint{Host: "127.0.0.1", Port: addr.Port}})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	clientAddr := c.conn.LocalAddr().(*net.UDPAddr)
	oversized := make([]byte, 2000)
	good := []byte("ok")

	if _, err := serverConn.WriteToUDP(oversized, clientAddr); err != nil {
		t.Fatalf("write oversized: %v", err)
	}
	if _, err := serverConn.WriteToUDP(good, clientAddr); err != nil {
		t.Fatalf("write good: %v", err)
	}

	select {
	case frame := <-c.Receive():
		if string(frame.Payload) != "ok" {
			t.Fatalf("expected oversized datagram to be dropped, got %q", frame.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}
