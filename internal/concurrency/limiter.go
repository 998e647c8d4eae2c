// Package concurrency implements the admission limiter standing in
// front of the Connection Pool: a bounded semaphore, an optional
// leaky-bucket rate limit, and a bounded priority wait queue.
package concurrency

import (
	"container/heap"
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

var (
	ErrAtCapacity = errors.New("concurrency: at capacity")
	ErrQueueFull  = errors.New("concurrency: wait queue full")
)

// Config bundles the `limiter` configuration group.
type Config struct {
	MaxConcurrent      int
	MaxQueueSize       int
	EnableRateLimit    bool
	RateLimitOpsPerSec float64
	RateLimitBurst     int
}

type waiter struct {
	priority int
	seq      uint64
	ready    chan struct{}
	index    int
}

// waitHeap orders waiters by descending priority, then FIFO within a
// priority tier via the monotonically increasing seq.
type waitHeap []*waiter

func (h waitHeap) Len() int { return len(h) }
func (h waitHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h waitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *waitHeap) Push(x any) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}
func (h *waitHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return w
}

// Limiter is the global admission gate: a semaphore of MaxConcurrent
// permits, an optional token-bucket rate limit, and a bounded priority
// wait queue for callers that arrive while the semaphore is exhausted.
type Limiter struct {
	cfg     Config
	limiter *rate.Limiter

	sem chan struct{}

	mu       sync.Mutex
	queue    waitHeap
	queueLen int
	nextSeq  uint64
}

func New(cfg Config) *Limiter {
	l := &Limiter{cfg: cfg}
	if cfg.MaxConcurrent > 0 {
		l.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	if cfg.EnableRateLimit {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitOpsPerSec), burst)
	}
	heap.Init(&l.queue)
	return l
}

// Acquire blocks until a permit is available, the wait queue rejects
// the caller for being full, or ctx is canceled. It waits at priority 0;
// AcquireWithPriority takes an explicit priority (higher served first).
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	return l.AcquireWithPriority(ctx, 0)
}

func (l *Limiter) AcquireWithPriority(ctx context.Context, priority int) (release func(), err error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if l.sem == nil {
		return func() {}, nil
	}

	select {
	case l.sem <- struct{}{}:
		return l.releaseFunc(), nil
	default:
	}

	w, err := l.enqueue(priority)
	if err != nil {
		return nil, err
	}

	select {
	case <-w.ready:
		return l.releaseFunc(), nil
	case <-ctx.Done():
		if l.cancelWaiter(w) {
			return nil, ctx.Err()
		}
		// Lost the race: a permit was already handed off to w before
		// cancellation took effect. Accept it rather than leak it.
		return l.releaseFunc(), nil
	}
}

// TryAcquire attempts the non-blocking fast path only: it never joins
// the wait queue, returning ErrAtCapacity immediately if no permit is
// free. Used by callers that would rather fail fast than queue behind
// slower admissions, such as a health probe's reconnect attempt.
func (l *Limiter) TryAcquire() (release func(), err error) {
	if l.limiter != nil && !l.limiter.Allow() {
		return nil, ErrAtCapacity
	}
	if l.sem == nil {
		return func() {}, nil
	}
	select {
	case l.sem <- struct{}{}:
		return l.releaseFunc(), nil
	default:
		return nil, ErrAtCapacity
	}
}

func (l *Limiter) enqueue(priority int) (*waiter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.MaxQueueSize > 0 && l.queueLen >= l.cfg.MaxQueueSize {
		return nil, ErrQueueFull
	}
	w := &waiter{priority: priority, seq: l.nextSeq, ready: make(chan struct{})}
	l.nextSeq++
	heap.Push(&l.queue, w)
	l.queueLen++
	return w, nil
}

// cancelWaiter removes w from the queue if it is still waiting. It
// returns false if w was already popped and handed a permit, in which
// case the caller must accept the permit instead of discarding it.
func (l *Limiter) cancelWaiter(w *waiter) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w.index >= 0 && w.index < len(l.queue) && l.queue[w.index] == w {
		heap.Remove(&l.queue, w.index)
		l.queueLen--
		return true
	}
	return false
}

func (l *Limiter) releaseFunc() func() {
	released := false
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if released {
			return
		}
		released = true
		l.handoffOrRelease()
	}
}

// handoffOrRelease either wakes the highest-priority waiter (handing it
// the permit directly, avoiding a release/acquire race against a new
// caller) or returns the permit to the semaphore.
func (l *Limiter) handoffOrRelease() {
	l.mu.Lock()
	if l.queue.Len() > 0 {
		w := heap.Pop(&l.queue).(*waiter)
		l.queueLen--
		l.mu.Unlock()
		close(w.ready)
		return
	}
	l.mu.Unlock()
	<-l.sem
}

// QueueLen reports the current wait queue depth.
func (l *Limiter) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queueLen
}
