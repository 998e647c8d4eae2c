package framing

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestNewlineCodecRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNewlineCodec(buf)
	if err := w.WriteMessage([]byte("<event/>")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := NewNewlineCodec(buf)
	got, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "<event/>" {
		t.Fatalf("got %q", got)
	}
}

func TestLengthPrefixedRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewLengthPrefixedCodec(buf, 1024)
	if err := w.WriteMessage([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := NewLengthPrefixedCodec(buf, 1024)
	got, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestLengthPrefixedOversizedWriteRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewLengthPrefixedCodec(buf, 4)
	err := w.WriteMessage([]byte("hello"))
	if !errors.Is(err, ErrOversized) {
		t.Fatalf("expected ErrOversized, got %v", err)
	}
}

func TestLengthPrefixedOversizedReadRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewLengthPrefixedCodec(buf, 1<<20)
	if err := w.WriteMessage([]byte("hello world")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := NewLengthPrefixedCodec(buf, 4)
	_, err := r.ReadMessage()
	if !errors.Is(err, ErrOversized) {
		t.Fatalf("expected ErrOversized, got %v", err)
	}
}

func TestLengthPrefixedBoundary(t *testing.T) {
	buf := &bytes.Buffer{}
	payload := bytes.Repeat([]byte("x"), 16)
	w := NewLengthPrefixedCodec(buf, 16)
	if err := w.WriteMessage(payload); err != nil {
		t.Fatalf("write at exact max: %v", err)
	}
	r := NewLengthPrefixedCodec(buf, 16)
	got, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read at exact max: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("got %d bytes", len(got))
	}
}

type fakeDrops struct {
	oversized int
	invalid   int
}

func (f *fakeDrops) OversizedDropped()    { f.oversized++ }
func (f *fakeDrops) InvalidFrameDropped() { f.invalid++ }

type fakeDatagramConn struct {
	datagrams [][]byte
	idx       int
	written   [][]byte
}

func (c *fakeDatagramConn) ReadDatagram() ([]byte, error) {
	if c.idx >= len(c.datagrams) {
		return nil, io.EOF
	}
	d := c.datagrams[c.idx]
	c.idx++
	return d, nil
}

func (c *fakeDatagramConn) WriteDatagram(b []byte) error {
	c.written = append(c.written, b)
	return nil
}

func TestUDPCodecDropsOversized(t *testing.T) {
	oversized := bytes.Repeat([]byte("y"), MaxUDPPayload+1)
	conn := &fakeDatagramConn{datagrams: [][]byte{oversized, []byte("ok")}}
	drops := &fakeDrops{}
	c := NewUDPCodec(conn, drops)
	got, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "ok" {
		t.Fatalf("expected second datagram to surface, got %q", got)
	}
	if drops.oversized != 1 {
		t.Fatalf("expected 1 oversized drop, got %d", drops.oversized)
	}
}

type fakeWSConn struct {
	frames []WebSocketFrame
	idx    int
}

func (c *fakeWSConn) ReadFrame() (WebSocketFrame, error) {
	if c.idx >= len(c.frames) {
		return WebSocketFrame{}, io.EOF
	}
	f := c.frames[c.idx]
	c.idx++
	return f, nil
}

func (c *fakeWSConn) WriteText([]byte) error   { return nil }
func (c *fakeWSConn) WriteBinary([]byte) error { return nil }

func TestWebSocketCodecDropsInvalidUTF8(t *testing.T) {
	bad := WebSocketFrame{Text: true, Payload: []byte{0xff, 0xfe, 0xfd}}
	good := WebSocketFrame{Text: true, Payload: []byte("<event/>")}
	conn := &fakeWSConn{frames: []WebSocketFrame{bad, good}}
	drops := &fakeDrops{}
	c := NewWebSocketCodec(conn, drops)
	got, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "<event/>" {
		t.Fatalf("expected good frame to surface, got %q", got)
	}
	if drops.invalid != 1 {
		t.Fatalf("expected 1 invalid-frame drop, got %d", drops.invalid)
	}
}
