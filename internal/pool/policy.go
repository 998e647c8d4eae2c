package pool

import "time"

// BackpressureKind names the policy applied when a bounded channel
// (ingress or a connection's egress) is full.
type BackpressureKind int

const (
	DropOnFull BackpressureKind = iota
	DropOldest
	BlockWithTimeout
)

// BackpressurePolicy pairs the kind with BlockWithTimeout's duration; the
// field is ignored by the other two kinds.
type BackpressurePolicy struct {
	Kind    BackpressureKind
	Timeout time.Duration
}
