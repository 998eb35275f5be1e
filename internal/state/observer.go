package state

import (
	"context"
	"sync"
)

// Event describes a successful mutation of one collection
type Event struct {
	Collection string
	Action     ActivityType
	User       string
}

// Observer is invoked after a successful write
type Observer func(ctx context.Context, ev Event)

// Observers is an ordered list of post-mutation callbacks.
// The zero value is ready to use.
type Observers struct {
	mu   sync.RWMutex
	list []Observer
}

// Add appends an observer; observers run in registration order
func (o *Observers) Add(fn Observer) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.list = append(o.list, fn)
	o.mu.Unlock()
}

// Notify runs every observer with ev
func (o *Observers) Notify(ctx context.Context, ev Event) {
	o.mu.RLock()
	list := make([]Observer, len(o.list))
	copy(list, o.list)
	o.mu.RUnlock()

	for _, fn := range list {
		fn(ctx, ev)
	}
}
