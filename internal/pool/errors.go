package pool

import "errors"

var (
	ErrDuplicateID     = errors.New("pool: duplicate connection id")
	ErrAtCapacity      = errors.New("pool: at capacity")
	ErrInvalidEndpoint = errors.New("pool: invalid endpoint")
	ErrNotFound        = errors.New("pool: connection not found")
	ErrQueueFull       = errors.New("pool: egress queue full")
	ErrClosed          = errors.New("pool: connection closed")
	ErrShuttingDown    = errors.New("pool: shutting down")
)
