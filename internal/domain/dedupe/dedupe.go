// Package dedupe tracks review log event IDs already accepted for ingestion.
package dedupe

import (
	"context"
	"sync"
)

// defaultMaxSize bounds the remembered IDs when no option is given.
const defaultMaxSize = 50_000

// Deduper records seen event IDs to ensure at-most-once ingestion.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a rejected event can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// ringDeduper remembers the last maxSize IDs in insertion order. When the ring
// is full the oldest ID is forgotten. maxSize <= 0 disables eviction.
type ringDeduper struct {
	mu      sync.Mutex
	maxSize int
	slot    map[string]int // id -> ring index, -1 when unbounded
	ring    []string
	next    int
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.slot = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.slot[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.slot[id] = -1
		return false
	}

	if old := d.ring[d.next]; d.owns(old, d.next) {
		delete(d.slot, old)
	}
	d.ring[d.next] = id
	d.slot[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.slot[id]
	if !ok {
		return
	}
	delete(d.slot, id)
	if i >= 0 {
		d.ring[i] = ""
	}
}

// owns reports whether ring slot i still holds the live entry for id.
func (d *ringDeduper) owns(id string, i int) bool {
	j, ok := d.slot[id]
	return ok && j == i
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.slot))
}
