// Package dedupe drops events that a source delivers more than once.
package dedupe

import (
	"context"
	"sync"
)

// DefaultWindow is the number of event IDs remembered by default.
const DefaultWindow = 50000

// Deduper records seen event IDs so that each event reaches the
// accumulators at most once.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if
	// not. Empty IDs are never recorded and never reported as seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes id so that a later delivery is accepted again.
	Forget(ctx context.Context, id string)

	// Size returns the number of remembered IDs.
	Size() int
}

// windowDeduper remembers the most recent IDs. When the window is full the
// oldest ID is evicted. A non-positive window remembers every ID.
type windowDeduper struct {
	mu     sync.Mutex
	window int
	seen   map[string]int // id -> slot in ring, -1 when unbounded
	ring   []string
	next   int
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &windowDeduper{window: DefaultWindow}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.window > 0 {
		d.ring = make([]string, d.window)
	}
	return d
}

func (d *windowDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.window <= 0 {
		d.seen[id] = -1
		return false
	}

	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.window
	return false
}

func (d *windowDeduper) Forget(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *windowDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
