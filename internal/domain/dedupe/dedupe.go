// Package dedupe tracks event ids that were already delivered.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen event IDs to ensure at-most-once delivery.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	Size() int
}

// inMemoryDeduper keeps every id for its lifetime. It never forgets, so an
// id is reported new at most once; the set lives as long as one monitor.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
