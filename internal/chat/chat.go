// Package chat is the bounded, append-only admin chat log
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"siteadmin/internal/logging"
	"siteadmin/internal/state"
	"siteadmin/internal/store"
)

// previewRunes is how much of a message the audit trail keeps
const previewRunes = 50

// Log holds chat messages oldest first
type Log struct {
	store     *store.Store
	gate      state.Identity
	recorder  state.Recorder
	limit     int
	logger    *logging.Logger
	now       func() time.Time
	observers state.Observers
}

// NewLog creates a chat log keeping the newest limit messages
func NewLog(st *store.Store, gate state.Identity, recorder state.Recorder, limit int, logger *logging.Logger) *Log {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Log{
		store:    st,
		gate:     gate,
		recorder: recorder,
		limit:    limit,
		logger:   logger,
		now:      time.Now,
	}
}

// Observe registers a callback run after every successful post
func (l *Log) Observe(fn state.Observer) {
	l.observers.Add(fn)
}

// List returns messages oldest first
func (l *Log) List(ctx context.Context) []state.ChatMessage {
	return store.Load[state.ChatMessage](ctx, l.store, store.KeyChat)
}

// Post appends a message from the session user
func (l *Log) Post(ctx context.Context, text string) error {
	user, ok := l.gate.CurrentUser()
	if !ok {
		return state.ErrUnauthorized
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message is empty", state.ErrValidation)
	}

	msgs := store.Load[state.ChatMessage](ctx, l.store, store.KeyChat)
	msgs = append(msgs, state.ChatMessage{
		User:      user,
		Text:      text,
		Timestamp: l.now().UnixMilli(),
	})
	msgs = store.KeepLast(msgs, l.limit)

	if _, err := store.SaveTruncated(ctx, l.store, store.KeyChat, msgs, l.limit/2); err != nil {
		return err
	}

	l.logger.Debug("Message from %s stored (%d in log)", user, len(msgs))
	l.recorder.Record(ctx, state.ActivityMessage, Preview(text), user)
	l.observers.Notify(ctx, state.Event{Collection: store.KeyChat, Action: state.ActivityMessage, User: user})
	return nil
}

// Preview shortens text for the audit trail
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
