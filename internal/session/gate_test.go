package session

import (
	"context"
	"errors"
	"testing"

	"siteadmin/internal/kv"
	"siteadmin/internal/state"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(ctx context.Context, username, password string) bool {
	p, ok := v[username]
	return ok && p == password
}

type recorded struct {
	typ  state.ActivityType
	user string
}

func newTestGate() (*Gate, *[]recorded) {
	var log []recorded
	rec := state.RecorderFunc(func(ctx context.Context, typ state.ActivityType, message, user string) {
		log = append(log, recorded{typ: typ, user: user})
	})
	g := NewGate(kv.NewMemoryStorage(0), staticVerifier{"admin": "admin123"}, rec, nil)
	return g, &log
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "admin", "admin123", false},
		{"wrong password", "admin", "admin", true},
		{"unknown user", "root", "admin123", true},
		{"case sensitive user", "Admin", "admin123", true},
		{"case sensitive password", "admin", "ADMIN123", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, log := newTestGate()
			err := g.Login(ctx, tt.username, tt.password)

			if tt.wantErr {
				if !errors.Is(err, state.ErrInvalidCredentials) {
					t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
				}
				if g.IsAuthenticated() {
					t.Error("failed login must not authenticate")
				}
				if len(*log) != 0 {
					t.Errorf("failed login recorded %d entries", len(*log))
				}
				return
			}

			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			user, ok := g.CurrentUser()
			if !ok || user != tt.username {
				t.Errorf("CurrentUser() = %q, %v", user, ok)
			}
			if len(*log) != 1 || (*log)[0].typ != state.ActivityLogin {
				t.Errorf("expected one login entry, got %+v", *log)
			}
		})
	}
}

func TestLoginErrorIsUniform(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate()

	errUser := g.Login(ctx, "nobody", "admin123")
	errPass := g.Login(ctx, "admin", "wrongpass")
	if errUser.Error() != errPass.Error() {
		t.Errorf("errors differ: %q vs %q", errUser, errPass)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	g, log := newTestGate()

	if err := g.Login(ctx, "admin", "admin123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	events := 0
	g.Observe(func(ctx context.Context, ev state.Event) { events++ })

	g.Logout(ctx)
	g.Logout(ctx)

	if g.IsAuthenticated() {
		t.Error("still authenticated after logout")
	}
	if len(*log) != 2 || (*log)[1].typ != state.ActivityLogout || (*log)[1].user != "admin" {
		t.Errorf("expected login then one logout, got %+v", *log)
	}
	if events != 1 {
		t.Errorf("observers notified %d times, want 1", events)
	}
}

func TestCurrentUserNeedsFlag(t *testing.T) {
	ctx := context.Background()
	volatile := kv.NewMemoryStorage(0)
	g := NewGate(volatile, staticVerifier{}, nil, nil)

	volatile.SetItem(ctx, keyCurrentUser, "admin")
	if g.IsAuthenticated() {
		t.Error("identity without the logged-in flag must not count")
	}

	volatile.SetItem(ctx, keyLoggedIn, "true")
	if !g.IsAuthenticated() {
		t.Error("expected authenticated once both keys are set")
	}
}
