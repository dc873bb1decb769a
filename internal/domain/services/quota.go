package services

import (
	"sync"
)

// DefaultGenerations seeds a tracker when no server value is known yet.
const DefaultGenerations = 5

// QuotaTracker holds the session's cached view of the server-held generation
// quota. The server is authoritative: the value only ever changes by being
// overwritten with a server-supplied count, never by client-side arithmetic,
// so the transformation and payment paths cannot race each other into drift.
type QuotaTracker struct {
	mu              sync.Mutex
	generationsLeft int
}

func NewQuotaTracker(initial int) *QuotaTracker {
	if initial < 0 {
		initial = 0
	}
	return &QuotaTracker{generationsLeft: initial}
}

// CanSubmit reports whether a transformation may be sent to the backend.
func (t *QuotaTracker) CanSubmit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generationsLeft > 0
}

// Remaining returns the last known quota value.
func (t *QuotaTracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generationsLeft
}

// ApplyServerUpdate unconditionally replaces the local value with the
// server's. Negative values are clamped: the quota is never negative.
func (t *QuotaTracker) ApplyServerUpdate(newValue int) {
	if newValue < 0 {
		newValue = 0
	}
	t.mu.Lock()
	t.generationsLeft = newValue
	t.mu.Unlock()
}

// MarkExhausted forces the quota to zero. Used when the backend signals
// exhaustion without supplying a fresh count.
func (t *QuotaTracker) MarkExhausted() {
	t.mu.Lock()
	t.generationsLeft = 0
	t.mu.Unlock()
}
