package calendly

import (
	"sync"

	"agenda-bot/types"
)

// TypeCache holds the event type list for the lifetime of the process. It is
// written once, on the first successful fetch, and read thereafter; the
// provider is assumed to keep one event type set per logged-in user per run.
// Invalidate clears it so the next fetch hits the API again.
type TypeCache struct {
	mu        sync.Mutex
	populated bool
	items     []types.EventType
}

func NewTypeCache() *TypeCache {
	return &TypeCache{}
}

func (tc *TypeCache) Get() ([]types.EventType, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if !tc.populated {
		return nil, false
	}
	out := make([]types.EventType, len(tc.items))
	copy(out, tc.items)
	return out, true
}

// Set populates the cache. Later calls are ignored until Invalidate.
func (tc *TypeCache) Set(items []types.EventType) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.populated {
		return
	}
	tc.items = make([]types.EventType, len(items))
	copy(tc.items, items)
	tc.populated = true
}

func (tc *TypeCache) Invalidate() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.populated = false
	tc.items = nil
}
