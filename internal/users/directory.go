// Package users manages the admin account directory
package users

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"siteadmin/internal/logging"
	"siteadmin/internal/state"
	"siteadmin/internal/store"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ValidateCredentials applies the account format rules
func ValidateCredentials(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-20 letters, digits or underscores", state.ErrValidation)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", state.ErrValidation, MinPasswordLength)
	}
	return nil
}

// Verifier answers credential checks for the session gate. It never needs a
// session itself, which lets the gate be built before the directory.
type Verifier struct {
	store *store.Store
	seed  state.User
}

// NewVerifier creates a verifier; seed is the account restored into an
// empty or corrupt directory
func NewVerifier(st *store.Store, seed state.User) *Verifier {
	return &Verifier{store: st, seed: seed}
}

// load never returns an empty directory
func (v *Verifier) load(ctx context.Context) []state.User {
	return store.LoadOrInit(ctx, v.store, store.KeyUsers, func() []state.User {
		return []state.User{v.seed}
	})
}

// Verify reports whether username/password match an account exactly
func (v *Verifier) Verify(ctx context.Context, username, password string) bool {
	for _, u := range v.load(ctx) {
		if u.Username == username && u.Password == password {
			return true
		}
	}
	return false
}

// Directory is the CRUD surface over accounts
type Directory struct {
	*Verifier
	gate      state.Identity
	recorder  state.Recorder
	logger    *logging.Logger
	observers state.Observers
}

// NewDirectory wires a directory to the session gate and the audit trail
func NewDirectory(v *Verifier, gate state.Identity, recorder state.Recorder, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Directory{
		Verifier: v,
		gate:     gate,
		recorder: recorder,
		logger:   logger,
	}
}

// Observe registers a callback run after every successful change
func (d *Directory) Observe(fn state.Observer) {
	d.observers.Add(fn)
}

// List returns accounts in directory order, without passwords
func (d *Directory) List(ctx context.Context) []state.UserSummary {
	users := d.load(ctx)
	out := make([]state.UserSummary, len(users))
	for i, u := range users {
		out[i] = u.Summary()
	}
	return out
}

// Add creates an account
func (d *Directory) Add(ctx context.Context, username, password string) error {
	if !d.gate.IsAuthenticated() {
		return state.ErrUnauthorized
	}
	if err := ValidateCredentials(username, password); err != nil {
		return err
	}

	users := d.load(ctx)
	for _, u := range users {
		if u.Username == username {
			return fmt.Errorf("%w: user %s", state.ErrDuplicate, username)
		}
	}

	users = append(users, state.User{Username: username, Password: password})
	if err := store.Save(ctx, d.store, store.KeyUsers, users); err != nil {
		d.logger.Error("Failed to add user %s: %v", username, err)
		return err
	}

	d.logger.Info("Added user %s", username)
	d.recorder.Record(ctx, state.ActivityUserAdd, fmt.Sprintf("Added user %s", username), "")
	d.observers.Notify(ctx, state.Event{Collection: store.KeyUsers, Action: state.ActivityUserAdd})
	return nil
}

// Remove deletes the account at index. The last account can never go.
func (d *Directory) Remove(ctx context.Context, index int) error {
	if !d.gate.IsAuthenticated() {
		return state.ErrUnauthorized
	}

	users := d.load(ctx)
	if len(users) <= 1 {
		return fmt.Errorf("%w: cannot remove the last admin account", state.ErrInvariantViolation)
	}
	if err := state.CheckIndex(index, len(users)); err != nil {
		return err
	}

	removed := users[index]
	users = append(users[:index:index], users[index+1:]...)
	if err := store.Save(ctx, d.store, store.KeyUsers, users); err != nil {
		d.logger.Error("Failed to remove user %s: %v", removed.Username, err)
		return err
	}

	d.logger.Info("Removed user %s", removed.Username)
	d.recorder.Record(ctx, state.ActivityUserRemove, fmt.Sprintf("Removed user %s", removed.Username), "")
	d.observers.Notify(ctx, state.Event{Collection: store.KeyUsers, Action: state.ActivityUserRemove})
	return nil
}
