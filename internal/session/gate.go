// Package session tracks who is logged in for the lifetime of one tab.
package session

import (
	"context"
	"fmt"

	"siteadmin/internal/kv"
	"siteadmin/internal/logging"
	"siteadmin/internal/state"
)

// Keys in the volatile per-tab area
const (
	keyLoggedIn    = "isLoggedIn"
	keyCurrentUser = "currentUser"
)

// Verifier checks a username/password pair against the directory
type Verifier interface {
	Verify(ctx context.Context, username, password string) bool
}

// Gate holds the session identity in volatile storage. It is consulted by
// the mutating components and is the only thing that changes the identity.
type Gate struct {
	volatile  kv.Storage
	verifier  Verifier
	recorder  state.Recorder
	logger    *logging.Logger
	observers state.Observers
}

// NewGate creates a gate over a volatile area. recorder may be nil.
func NewGate(volatile kv.Storage, verifier Verifier, recorder state.Recorder, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gate{
		volatile: volatile,
		verifier: verifier,
		recorder: recorder,
		logger:   logger,
	}
}

// Observe registers a callback run after login and logout
func (g *Gate) Observe(fn state.Observer) {
	g.observers.Add(fn)
}

// Login authenticates by exact, case-sensitive comparison. A failure never
// says which of the two fields was wrong.
func (g *Gate) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" || !g.verifier.Verify(ctx, username, password) {
		g.logger.Info("Failed login attempt for %q", username)
		return state.ErrInvalidCredentials
	}

	if err := g.volatile.SetItem(ctx, keyCurrentUser, username); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := g.volatile.SetItem(ctx, keyLoggedIn, "true"); err != nil {
		g.volatile.RemoveItem(ctx, keyCurrentUser)
		return fmt.Errorf("failed to store session: %w", err)
	}

	g.logger.Info("User %s logged in", username)
	g.record(ctx, state.ActivityLogin, fmt.Sprintf("%s logged in", username), username)
	g.observers.Notify(ctx, state.Event{Collection: "session", Action: state.ActivityLogin, User: username})
	return nil
}

// Logout clears the identity. Logging out twice is harmless and the second
// call records nothing.
func (g *Gate) Logout(ctx context.Context) {
	user, ok := g.CurrentUser()

	g.volatile.RemoveItem(ctx, keyLoggedIn)
	g.volatile.RemoveItem(ctx, keyCurrentUser)

	if !ok {
		return
	}

	g.logger.Info("User %s logged out", user)
	g.record(ctx, state.ActivityLogout, fmt.Sprintf("%s logged out", user), user)
	g.observers.Notify(ctx, state.Event{Collection: "session", Action: state.ActivityLogout, User: user})
}

// IsAuthenticated reports whether a user is logged in
func (g *Gate) IsAuthenticated() bool {
	_, ok := g.CurrentUser()
	return ok
}

// CurrentUser returns the logged in username
func (g *Gate) CurrentUser() (string, bool) {
	ctx := context.Background()

	flag, ok, err := g.volatile.GetItem(ctx, keyLoggedIn)
	if err != nil || !ok || flag != "true" {
		return "", false
	}
	user, ok, err := g.volatile.GetItem(ctx, keyCurrentUser)
	if err != nil || !ok || user == "" {
		return "", false
	}
	return user, true
}

func (g *Gate) record(ctx context.Context, typ state.ActivityType, message, user string) {
	if g.recorder != nil {
		g.recorder.Record(ctx, typ, message, user)
	}
}
