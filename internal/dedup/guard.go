package dedup

import (
	"sync"
	"time"
)

// Guard tracks which item ids have already been processed, guaranteeing
// at-most-once processing per item within the process lifetime.
type Guard interface {
	// CheckAndMark returns true only the first time an id is offered.
	// The check and the insert are atomic, so concurrent callers racing
	// on the same id cannot both see true.
	CheckAndMark(id string) bool
	// Prune drops ids first seen before the retention horizon.
	Prune(now time.Time)
	Len() int
}

// MemoryGuard is the in-process guard: a mutex-guarded map from id to the
// time it was first seen.
type MemoryGuard struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	retention time.Duration
}

func NewMemory(retention time.Duration) *MemoryGuard {
	return &MemoryGuard{
		seen:      make(map[string]time.Time),
		retention: retention,
	}
}

func (g *MemoryGuard) CheckAndMark(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[id]; ok {
		return false
	}
	g.seen[id] = time.Now()
	return true
}

// Prune bounds memory. The retention horizon must exceed the window in
// which a source can still return an id, otherwise a pruned item could be
// reprocessed.
func (g *MemoryGuard) Prune(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.retention)
	for id, firstSeen := range g.seen {
		if firstSeen.Before(cutoff) {
			delete(g.seen, id)
		}
	}
}

func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

var _ Guard = (*MemoryGuard)(nil)
