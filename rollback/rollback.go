// Package rollback maintains a bounded ring of belief-store snapshots so a
// node can recover from a bad update, per spec §5's "Rollback snapshots: 64
// newest" bound.
package rollback

import (
	"sync"
	"time"

	"github.com/swarmcore/governance/belief"
)

// maxSnapshots is the bounded ring size (spec §5: 64 newest).
const maxSnapshots = 64

// entry pairs a snapshot with when it was taken.
type entry struct {
	takenAt time.Time
	snap    belief.Snapshot
}

// Ring holds the most recent snapshots of a belief store, oldest evicted on
// overflow.
type Ring struct {
	mu      sync.Mutex
	entries []entry
}

// NewRing returns an empty Ring.
func NewRing() *Ring {
	return &Ring{}
}

// Push records a new snapshot, evicting the oldest if the ring is full.
func (r *Ring) Push(snap belief.Snapshot, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{takenAt: now, snap: snap})
	if len(r.entries) > maxSnapshots {
		r.entries = r.entries[len(r.entries)-maxSnapshots:]
	}
}

// Len returns the number of snapshots currently retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Latest returns the most recently pushed snapshot, if any.
func (r *Ring) Latest() (belief.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return belief.Snapshot{}, false
	}
	return r.entries[len(r.entries)-1].snap, true
}

// At returns the snapshot n steps back from the latest (0 = latest, 1 = one
// before that, ...).
func (r *Ring) At(n int) (belief.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := len(r.entries) - 1 - n
	if idx < 0 || idx >= len(r.entries) {
		return belief.Snapshot{}, false
	}
	return r.entries[idx].snap, true
}

// RestoreLatest restores store to the most recently pushed snapshot.
// Returns false if the ring is empty.
func (r *Ring) RestoreLatest(store *belief.Store) bool {
	snap, ok := r.Latest()
	if !ok {
		return false
	}
	store.Restore(snap)
	return true
}
