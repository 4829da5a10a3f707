// Package checkout holds the one-shot guard that keeps order
// finalization at-most-once per payment session.
package checkout

import (
	"errors"
	"sync"
	"time"
)

// GuardState is the finalization state for one session id.
type GuardState int

const (
	NotStarted GuardState = iota
	InFlight
	Completed
)

// completedRetention is how long a Completed entry is remembered.
// Duplicate callbacks arrive within seconds of each other; after the
// retention window the unique order index alone handles them, and the
// entry is dropped to keep the map bounded.
const completedRetention = time.Hour

var (
	// ErrInFlight means another finalize for the same session is
	// already running.
	ErrInFlight = errors.New("finalization already in flight")
	// ErrCompleted means this session has already been finalized.
	ErrCompleted = errors.New("finalization already completed")
)

type guardEntry struct {
	state  GuardState
	doneAt time.Time
}

// Guard is a per-key one-shot state machine:
// NotStarted -> InFlight -> Completed, with InFlight -> NotStarted on
// failure so a retry stays possible. Re-entry from InFlight or
// Completed is rejected. This is the in-process half of the duplicate
// protection; the unique index on the order's session id is the
// durable half.
type Guard struct {
	mu        sync.Mutex
	entries   map[string]guardEntry
	retention time.Duration
	lastSweep time.Time
}

func NewGuard() *Guard {
	return &Guard{
		entries:   make(map[string]guardEntry),
		retention: completedRetention,
		lastSweep: time.Now(),
	}
}

// Begin claims the key. Only a NotStarted (or expired) key may be
// claimed.
func (g *Guard) Begin(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.sweep(now)

	entry := g.entries[key]
	switch entry.state {
	case InFlight:
		return ErrInFlight
	case Completed:
		if now.Sub(entry.doneAt) <= g.retention {
			return ErrCompleted
		}
	}
	g.entries[key] = guardEntry{state: InFlight}
	return nil
}

// Complete marks the key done. Further Begin calls fail with
// ErrCompleted until the entry expires.
func (g *Guard) Complete(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[key] = guardEntry{state: Completed, doneAt: time.Now()}
}

// Reset releases a failed attempt so the same key can be retried.
func (g *Guard) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.entries[key].state == InFlight {
		delete(g.entries, key)
	}
}

// State reports the current state for a key.
func (g *Guard) State(key string) GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry := g.entries[key]
	if entry.state == Completed && time.Since(entry.doneAt) > g.retention {
		return NotStarted
	}
	return entry.state
}

// sweep drops expired Completed entries, at most once per retention
// period. Called with the lock held.
func (g *Guard) sweep(now time.Time) {
	if now.Sub(g.lastSweep) < g.retention {
		return
	}
	g.lastSweep = now
	for key, entry := range g.entries {
		if entry.state == Completed && now.Sub(entry.doneAt) > g.retention {
			delete(g.entries, key)
		}
	}
}
