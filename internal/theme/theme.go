// Package theme persists the dashboard color scheme preference
package theme

import (
	"context"
	"fmt"

	"siteadmin/internal/state"
	"siteadmin/internal/store"
)

// Supported themes
const (
	Dark  = "dark"
	Light = "light"
)

// Preferences reads and writes the theme key of the durable store
type Preferences struct {
	store *store.Store
}

// NewPreferences creates a preference accessor
func NewPreferences(st *store.Store) *Preferences {
	return &Preferences{store: st}
}

// Get returns the stored theme, Dark when unset or unrecognized
func (p *Preferences) Get(ctx context.Context) string {
	v, ok, err := p.store.Storage().GetItem(ctx, store.KeyTheme)
	if err != nil || !ok || !valid(v) {
		return Dark
	}
	return v
}

// Set stores name, which must be Dark or Light
func (p *Preferences) Set(ctx context.Context, name string) error {
	if !valid(name) {
		return fmt.Errorf("%w: unknown theme %q", state.ErrValidation, name)
	}
	if err := p.store.Storage().SetItem(ctx, store.KeyTheme, name); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Toggle flips between Dark and Light and returns the new theme
func (p *Preferences) Toggle(ctx context.Context) (string, error) {
	next := Light
	if p.Get(ctx) == Light {
		next = Dark
	}
	return next, p.Set(ctx, next)
}

func valid(name string) bool {
	return name == Dark || name == Light
}
