// Package portal assembles one set of admin components per browser tab.
// Tabs share the durable store but each has its own volatile session area.
package portal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"siteadmin/internal/activity"
	"siteadmin/internal/chat"
	"siteadmin/internal/config"
	"siteadmin/internal/kv"
	"siteadmin/internal/logging"
	"siteadmin/internal/session"
	"siteadmin/internal/state"
	"siteadmin/internal/store"
	"siteadmin/internal/theme"
	"siteadmin/internal/users"
	"siteadmin/internal/vault"
)

// Tab is the component set seen by one browser tab
type Tab struct {
	ID       string
	Session  *session.Gate
	Users    *users.Directory
	Chat     *chat.Log
	Files    *vault.Vault
	Activity *activity.Log
	Theme    *theme.Preferences

	volatile *kv.MemoryStorage
	revision atomic.Uint64
}

// Revision increases after every successful mutation made through this tab.
// Clients compare it to decide whether to refetch.
func (t *Tab) Revision() uint64 {
	return t.revision.Load()
}

// Portal builds and tracks tabs
type Portal struct {
	store    *store.Store
	cfg      *config.Config
	logger   *logging.Logger
	registry *Registry
}

// New creates a portal over the shared durable store
func New(st *store.Store, cfg *config.Config, logger *logging.Logger) *Portal {
	if logger == nil {
		logger = logging.Discard()
	}
	idle := time.Duration(cfg.Session.IdleTimeoutMinutes) * time.Minute
	return &Portal{
		store:    st,
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(idle),
	}
}

// Open creates and registers a tab with a fresh session
func (p *Portal) Open() *Tab {
	t := p.Ephemeral()
	p.Register(t)
	return t
}

// Ephemeral creates a tab that is not tracked. It serves clients that have
// no session yet and is discarded unless passed to Register.
func (p *Portal) Ephemeral() *Tab {
	return p.build(uuid.NewString())
}

// Register starts tracking t so later requests can find it by id
func (p *Portal) Register(t *Tab) {
	p.registry.Put(t)
	p.logger.Debug("Opened tab %s (%d open)", t.ID, p.registry.Len())
}

// Len reports the number of tracked tabs
func (p *Portal) Len() int {
	return p.registry.Len()
}

// Tab returns the open tab with id, or nil
func (p *Portal) Tab(id string) *Tab {
	t, ok := p.registry.Get(id)
	if !ok {
		return nil
	}
	return t
}

// Sweep closes tabs idle longer than the configured timeout
func (p *Portal) Sweep() int {
	n := p.registry.Sweep()
	if n > 0 {
		p.logger.Info("Closed %d idle tab(s)", n)
	}
	return n
}

func (p *Portal) build(id string) *Tab {
	lim := p.cfg.Limits
	logger := p.logger.WithContext("tab", shortID(id))
	volatile := kv.NewMemoryStorage(0)

	var trail *activity.Log
	rec := state.RecorderFunc(func(ctx context.Context, typ state.ActivityType, message, user string) {
		trail.Record(ctx, typ, message, user)
	})

	verifier := users.NewVerifier(p.store, state.User{
		Username: p.cfg.DefaultAdmin.Username,
		Password: p.cfg.DefaultAdmin.Password,
	})
	gate := session.NewGate(volatile, verifier, rec, logger.Named("session"))
	trail = activity.NewLog(p.store, gate, lim.ActivityMax, logger.Named("activity"))

	t := &Tab{
		ID:       id,
		Session:  gate,
		Users:    users.NewDirectory(verifier, gate, rec, logger.Named("users")),
		Chat:     chat.NewLog(p.store, gate, rec, lim.ChatMax, logger.Named("chat")),
		Files:    vault.New(p.store, gate, rec, vault.Limits{MaxFiles: lim.FilesMax, Fallback: lim.FilesFallback, MaxFileBytes: lim.MaxFileBytes}, logger.Named("vault")),
		Activity: trail,
		Theme:    theme.NewPreferences(p.store),
		volatile: volatile,
	}

	bump := func(ctx context.Context, ev state.Event) {
		t.revision.Add(1)
		logger.Debug("%s changed by %s (%s)", ev.Collection, ev.User, ev.Action)
	}
	t.Session.Observe(bump)
	t.Users.Observe(bump)
	t.Chat.Observe(bump)
	t.Files.Observe(bump)
	t.Activity.Observe(bump)
	return t
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
