package clock

import (
	"sync"
	"time"
)

// Virtual is a manually-advanced Clock for deterministic tests. All waiters
// registered via After/NewTicker fire in Advance, in registration order.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []virtualWaiter
}

type virtualWaiter struct {
	deadline time.Time
	ch       chan time.Time
	period   time.Duration // zero for one-shot After waiters
	stopped  *bool
}

// NewVirtual creates a Virtual clock starting at the given time.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Sleep advances no time on its own; tests call Advance from another
// goroutine to release a Sleep-equivalent wait. Virtual.Sleep blocks until
// the clock has advanced past now+d.
func (v *Virtual) Sleep(d time.Duration) {
	<-v.After(d)
}

func (v *Virtual) After(d time.Duration) <-chan time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch := make(chan time.Time, 1)
	v.waiters = append(v.waiters, virtualWaiter{deadline: v.now.Add(d), ch: ch})
	return ch
}

func (v *Virtual) NewTicker(d time.Duration) Ticker {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch := make(chan time.Time, 1)
	stopped := new(bool)
	v.waiters = append(v.waiters, virtualWaiter{deadline: v.now.Add(d), ch: ch, period: d, stopped: stopped})
	return &virtualTicker{v: v, ch: ch, stopped: stopped}
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline has been reached, rescheduling periodic tickers.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = v.now.Add(d)

	remaining := v.waiters[:0]
	for _, w := range v.waiters {
		if w.stopped != nil && *w.stopped {
			continue
		}
		if !w.deadline.After(v.now) {
			select {
			case w.ch <- v.now:
			default:
			}
			if w.period > 0 {
				w.deadline = v.now.Add(w.period)
				remaining = append(remaining, w)
			}
			continue
		}
		remaining = append(remaining, w)
	}
	v.waiters = remaining
}

type virtualTicker struct {
	v       *Virtual
	ch      chan time.Time
	stopped *bool
}

func (t *virtualTicker) C() <-chan time.Time { return t.ch }
func (t *virtualTicker) Stop() {
	t.v.mu.Lock()
	defer t.v.mu.Unlock()
	*t.stopped = true
}
