package portal

import (
	"sync"
	"time"
)

type slot struct {
	tab      *Tab
	lastSeen time.Time
}

// Registry maps tab ids to tabs and expires idle ones
type Registry struct {
	mu   sync.Mutex
	tabs map[string]*slot
	idle time.Duration
	now  func() time.Time
}

// NewRegistry creates a registry; idle <= 0 disables expiry
func NewRegistry(idle time.Duration) *Registry {
	return &Registry{
		tabs: make(map[string]*slot),
		idle: idle,
		now:  time.Now,
	}
}

// Put registers t
func (r *Registry) Put(t *Tab) {
	r.mu.Lock()
	r.tabs[t.ID] = &slot{tab: t, lastSeen: r.now()}
	r.mu.Unlock()
}

// Get returns the tab with id and marks it as seen
func (r *Registry) Get(id string) (*Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.tabs[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.tab, true
}

// Len reports the number of open tabs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Sweep drops tabs idle longer than the timeout. Their session areas are
// cleared without a logout entry, like a closed browser tab.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	n := 0
	for id, s := range r.tabs {
		if s.lastSeen.Before(cutoff) {
			s.tab.volatile.Clear()
			delete(r.tabs, id)
			n++
		}
	}
	return n
}
