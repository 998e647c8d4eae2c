package transport

import (
	"testing"
	"time"
)

func TestExponentialBackoffSequence(t *testing.T) {
	b := NewExponentialBackoff(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Multiplier: 2,
		Maximum:    time.Second,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second, // capped
		time.Second, // capped
	}
	for i, w := range want {
		d, ok := b.Next()
		if !ok {
			t.Fatalf("attempt %d: expected ok=true", i)
		}
		if d != w {
			t.Fatalf("attempt %d: got %v, want %v", i, d, w)
		}
	}
}

func TestExponentialBackoffMaxAttempts(t *testing.T) {
	maxAttempts := uint(2)
	b := NewExponentialBackoff(BackoffConfig{
		Initial:     10 * time.Millisecond,
		Multiplier:  2,
		Maximum:     time.Second,
		MaxAttempts: &maxAttempts,
	})

	if _, ok := b.Next(); !ok {
		t.Fatal("attempt 0 should be allowed")
	}
	if _, ok := b.Next(); !ok {
		t.Fatal("attempt 1 should be allowed")
	}
	if _, ok := b.Next(); ok {
		t.Fatal("attempt 2 should exceed MaxAttempts")
	}
}

func TestExponentialBackoffReset(t *testing.T) {
	b := NewExponentialBackoff(BackoffConfig{Initial: time.Millisecond, Multiplier: 2, Maximum: time.Second})
	b.Next()
	b.Next()
	b.Reset()
	if b.Attempts() != 0 {
		t.Fatalf("attempts after reset = %d, want 0", b.Attempts())
	}
	d, _ := b.Next()
	if d != time.Millisecond {
		t.Fatalf("first attempt after reset = %v, want initial", d)
	}
}
