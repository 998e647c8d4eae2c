package transport

import (
	"math"
	"time"
)

// BackoffConfig mirrors the `reconnect` configuration group: initial
// delay, growth multiplier, ceiling, and an optional attempt cap.
type BackoffConfig struct {
	Initial     time.Duration
	Multiplier  float64
	Maximum     time.Duration
	MaxAttempts *uint // nil means unlimited
}

// ExponentialBackoff computes reconnect delays as
// min(initial * multiplier^n, maximum) for 0-indexed attempt n, and
// tracks whether the configured attempt cap has been reached.
type ExponentialBackoff struct {
	cfg      BackoffConfig
	attempts uint
}

func NewExponentialBackoff(cfg BackoffConfig) *ExponentialBackoff {
	return &ExponentialBackoff{cfg: cfg}
}

// Next returns the delay for the next attempt and advances the attempt
// counter. ok is false once MaxAttempts has been exhausted, signaling the
// caller to transition the connection to Failed instead of retrying.
func (b *ExponentialBackoff) Next() (delay time.Duration, ok bool) {
	if b.cfg.MaxAttempts != nil && b.attempts >= *b.cfg.MaxAttempts {
		return 0, false
	}
	n := b.attempts
	b.attempts++

	d := float64(b.cfg.Initial) * math.Pow(b.cfg.Multiplier, float64(n))
	if d > float64(b.cfg.Maximum) {
		d = float64(b.cfg.Maximum)
	}
	return time.Duration(d), true
}

// Reset zeroes the attempt counter, called on a successful connect.
func (b *ExponentialBackoff) Reset() {
	b.attempts = 0
}

// Attempts reports how many attempts have been consumed so far.
func (b *ExponentialBackoff) Attempts() uint {
	return b.attempts
}
