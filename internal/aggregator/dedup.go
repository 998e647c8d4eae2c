package aggregator

import (
	"sync"
	"time"
)

const shardCount = 32

// dedupResult is the outcome of check_and_insert.
type dedupResult int

const (
	firstSeen dedupResult = iota
	duplicate
)

// dedupShard is one lock-striped partition of the table, keeping
// concurrent check_and_insert calls from contending on a single mutex.
type dedupShard struct {
	mu      sync.Mutex
	entries map[Fingerprint]time.Time
	// order is an insertion-ordered ring used only for emergency
	// eviction when the whole table exceeds its cap; each shard evicts
	// its oldest entries first so the global cap is enforced
	// approximately evenly.
	order []Fingerprint
}

// dedupTable is the concurrent, TTL-evicted fingerprint cache described
// in §4.4: sharded for throughput, periodically swept by age, and
// emergency-evicted by insertion order if it still exceeds
// max_cache_entries between sweeps.
type dedupTable struct {
	shards         [shardCount]*dedupShard
	window         time.Duration
	maxEntries     int
	size           int64 // approximate; adjusted under shard locks via atomic-free bookkeeping guarded by sizeMu
	sizeMu         sync.Mutex
}

func newDedupTable(window time.Duration, maxEntries int) *dedupTable {
	t := &dedupTable{window: window, maxEntries: maxEntries}
	for i := range t.shards {
		t.shards[i] = &dedupShard{entries: make(map[Fingerprint]time.Time)}
	}
	return t
}

func (t *dedupTable) shardFor(fp Fingerprint) *dedupShard {
	// The fingerprint is already a hash, so its low bits distribute
	// evenly across shards without a second hash pass.
	idx := uint8(fp[15]) % shardCount
	return t.shards[idx]
}

// checkAndInsert reports whether fp is new (firstSeen) or already
// present within the active window (duplicate), inserting it on first
// sight.
func (t *dedupTable) checkAndInsert(fp Fingerprint, now time.Time) dedupResult {
	s := t.shardFor(fp)
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.window <= 0 {
		// A zero dedup window disables deduplication entirely per the
		// boundary behavior spelled out for the Aggregator.
		return firstSeen
	}

	if seenAt, ok := s.entries[fp]; ok && now.Sub(seenAt) <= t.window {
		return duplicate
	}

	_, existed := s.entries[fp]
	s.entries[fp] = now
	s.order = append(s.order, fp)
	if !existed {
		t.adjustSize(1)
	}
	return firstSeen
}

func (t *dedupTable) adjustSize(delta int64) {
	t.sizeMu.Lock()
	t.size += delta
	t.sizeMu.Unlock()
}

// Size returns the approximate number of live entries across all shards.
func (t *dedupTable) Size() int64 {
	t.sizeMu.Lock()
	defer t.sizeMu.Unlock()
	return t.size
}

// cleanup drops every entry older than window, run periodically from a
// dedicated task at cleanup_interval.
func (t *dedupTable) cleanup(now time.Time) (evicted int64) {
	for _, s := range t.shards {
		s.mu.Lock()
		remaining := s.order[:0]
		for _, fp := range s.order {
			seenAt, ok := s.entries[fp]
			if !ok {
				continue
			}
			if now.Sub(seenAt) > t.window {
				delete(s.entries, fp)
				evicted++
				continue
			}
			remaining = append(remaining, fp)
		}
		s.order = remaining
		s.mu.Unlock()
	}
	if evicted > 0 {
		t.adjustSize(-evicted)
	}
	return evicted
}

// enforceCap performs emergency eviction of the oldest entries,
// round-robining across shards, until the table is back under
// max_cache_entries.
func (t *dedupTable) enforceCap() (totalEvicted int64) {
	if t.maxEntries <= 0 {
		return 0
	}
	for t.Size() > int64(t.maxEntries) {
		progressed := false
		for _, s := range t.shards {
			if t.Size() <= int64(t.maxEntries) {
				break
			}
			s.mu.Lock()
			if len(s.order) > 0 {
				oldest := s.order[0]
				s.order = s.order[1:]
				if _, ok := s.entries[oldest]; ok {
					delete(s.entries, oldest)
					t.adjustSize(-1)
					totalEvicted++
					progressed = true
				}
			}
			s.mu.Unlock()
		}
		if !progressed {
			break
		}
	}
	return totalEvicted
}
