// Package activity keeps the audit trail of every admin mutation
package activity

import (
	"context"
	"time"

	"siteadmin/internal/logging"
	"siteadmin/internal/state"
	"siteadmin/internal/store"
)

// Log is the bounded, append-only audit trail
type Log struct {
	store     *store.Store
	identity  state.Identity
	limit     int
	logger    *logging.Logger
	now       func() time.Time
	observers state.Observers
}

// NewLog creates an audit trail keeping at most limit entries. identity
// supplies the default actor and may be nil.
func NewLog(st *store.Store, identity state.Identity, limit int, logger *logging.Logger) *Log {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Log{
		store:    st,
		identity: identity,
		limit:    limit,
		logger:   logger,
		now:      time.Now,
	}
}

// Observe registers a callback run after Clear
func (l *Log) Observe(fn state.Observer) {
	l.observers.Add(fn)
}

// Record appends one entry. An empty user falls back to the session user,
// then to state.UnknownUser. Failures are logged and never returned.
func (l *Log) Record(ctx context.Context, typ state.ActivityType, message, user string) {
	if user == "" {
		user = l.actor()
	}

	entries := store.Load[state.ActivityEntry](ctx, l.store, store.KeyActivity)
	entries = append(entries, state.ActivityEntry{
		Type:      typ,
		Message:   message,
		User:      user,
		Timestamp: l.now().UnixMilli(),
	})
	entries = store.KeepLast(entries, l.limit)

	if _, err := store.SaveTruncated(ctx, l.store, store.KeyActivity, entries, l.limit/2); err != nil {
		l.logger.Error("Failed to record %s activity for %s: %v", typ, user, err)
	}
}

func (l *Log) actor() string {
	if l.identity != nil {
		if u, ok := l.identity.CurrentUser(); ok && u != "" {
			return u
		}
	}
	return state.UnknownUser
}

// List returns entries newest first
func (l *Log) List(ctx context.Context) []state.ActivityEntry {
	entries := store.Load[state.ActivityEntry](ctx, l.store, store.KeyActivity)
	out := make([]state.ActivityEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

// Clear erases the whole trail. Asking the user for confirmation is the
// caller's job.
func (l *Log) Clear(ctx context.Context) error {
	if err := store.Save(ctx, l.store, store.KeyActivity, []state.ActivityEntry{}); err != nil {
		l.logger.Error("Failed to clear activity log: %v", err)
		return err
	}
	l.logger.Info("Activity log cleared by %s", l.actor())
	l.observers.Notify(ctx, state.Event{Collection: store.KeyActivity, User: l.actor()})
	return nil
}
