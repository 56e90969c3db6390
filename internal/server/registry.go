package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// registry keeps the flows of in-progress wizards by opaque id. Entries idle
// for longer than ttl are dropped by sweep.
type registry[T any] struct {
	mu      sync.Mutex
	entries map[string]*registryEntry[T]
	ttl     time.Duration
	now     func() time.Time
}

type registryEntry[T any] struct {
	flow    T
	touched time.Time
}

func newRegistry[T any](ttl time.Duration, now func() time.Time) *registry[T] {
	if now == nil {
		now = time.Now
	}
	return &registry[T]{
		entries: make(map[string]*registryEntry[T]),
		ttl:     ttl,
		now:     now,
	}
}

func (r *registry[T]) add(flow T) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = &registryEntry[T]{flow: flow, touched: r.now()}
	r.mu.Unlock()
	return id
}

// get returns the flow and refreshes its idle clock.
func (r *registry[T]) get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	now := r.now()
	if now.Sub(e.touched) > r.ttl {
		delete(r.entries, id)
		var zero T
		return zero, false
	}
	e.touched = now
	return e.flow, true
}

func (r *registry[T]) remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// sweep drops idle entries and reports how many were removed.
func (r *registry[T]) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.entries {
		if now.Sub(e.touched) > r.ttl {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// janitor sweeps every interval until ctx is done.
func (r *registry[T]) janitor(ctx context.Context, interval time.Duration, onSweep func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
