package transport

import (
	"sort"
	"time"
)

// IdleTracker records when each peer was last heard from.
// It is owned by a single pump goroutine and does no locking.
type IdleTracker struct {
	limit    time.Duration
	lastSeen map[Addr]time.Time
}

// NewIdleTracker creates a tracker that expires peers silent for longer than limit.
func NewIdleTracker(limit time.Duration) *IdleTracker {
	return &IdleTracker{
		limit:    limit,
		lastSeen: make(map[Addr]time.Time),
	}
}

// Touch marks the peer as active at now.
func (t *IdleTracker) Touch(addr Addr, now time.Time) {
	t.lastSeen[addr] = now
}

// Forget stops tracking a peer.
func (t *IdleTracker) Forget(addr Addr) {
	delete(t.lastSeen, addr)
}

// Expired removes and returns, in address order, every peer whose last
// activity is older than the limit.
func (t *IdleTracker) Expired(now time.Time) []Addr {
	var out []Addr
	for addr, seen := range t.lastSeen {
		if now.Sub(seen) > t.limit {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	for _, addr := range out {
		delete(t.lastSeen, addr)
	}
	return out
}
