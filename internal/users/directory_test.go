package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"siteadmin/internal/activity"
	"siteadmin/internal/kv"
	"siteadmin/internal/session"
	"siteadmin/internal/state"
	"siteadmin/internal/store"
)

type fixture struct {
	store    *store.Store
	mem      *kv.MemoryStorage
	gate     *session.Gate
	activity *activity.Log
	dir      *Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{mem: kv.NewMemoryStorage(0)}
	f.store = store.New(f.mem, nil)

	seed := state.User{Username: "admin", Password: "admin123"}
	verifier := NewVerifier(f.store, seed)

	var log *activity.Log
	rec := state.RecorderFunc(func(ctx context.Context, typ state.ActivityType, message, user string) {
		log.Record(ctx, typ, message, user)
	})
	f.gate = session.NewGate(kv.NewMemoryStorage(0), verifier, rec, nil)
	log = activity.NewLog(f.store, f.gate, 100, nil)
	f.activity = log
	f.dir = NewDirectory(verifier, f.gate, log, nil)
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if err := f.gate.Login(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "bob_42", "secret1", false},
		{"min length name", "abc", "123456", false},
		{"max length name", strings.Repeat("a", 20), "123456", false},
		{"too short name", "ab", "123456", true},
		{"too long name", strings.Repeat("a", 21), "123456", true},
		{"space in name", "bob smith", "123456", true},
		{"dash in name", "bob-smith", "123456", true},
		{"markup in name", "<script>", "123456", true},
		{"short password", "bob", "12345", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.username, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, state.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestEmptyDirectorySeedsDefaultAdmin(t *testing.T) {
	f := newFixture(t)

	got := f.dir.List(context.Background())
	if len(got) != 1 || got[0].Username != "admin" {
		t.Fatalf("List() = %+v, want only admin", got)
	}
}

func TestCorruptDirectoryResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mem.SetItem(ctx, store.KeyUsers, `[{"username":`)

	got := f.dir.List(ctx)
	if len(got) != 1 || got[0].Username != "admin" {
		t.Fatalf("List() = %+v, want exactly one default account", got)
	}
	if !f.dir.Verify(ctx, "admin", "admin123") {
		t.Error("default credentials should work after reset")
	}
}

func TestAddThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	if err := f.dir.Add(ctx, "carol_1", "hunter22"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	f.gate.Logout(ctx)
	if err := f.gate.Login(ctx, "carol_1", "hunter22"); err != nil {
		t.Fatalf("Login() with new account error = %v", err)
	}
	if user, _ := f.gate.CurrentUser(); user != "carol_1" {
		t.Errorf("CurrentUser() = %q, want carol_1", user)
	}
}

func TestAddErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	if err := f.dir.Add(ctx, "admin", "another1"); !errors.Is(err, state.ErrDuplicate) {
		t.Errorf("duplicate Add() error = %v, want ErrDuplicate", err)
	}
	if err := f.dir.Add(ctx, "x", "another1"); !errors.Is(err, state.ErrValidation) {
		t.Errorf("invalid Add() error = %v, want ErrValidation", err)
	}
	// Usernames are case-sensitive, so this is a different account
	if err := f.dir.Add(ctx, "Admin", "another1"); err != nil {
		t.Errorf("Add(Admin) error = %v", err)
	}
}

func TestMutationsRequireSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.dir.Add(ctx, "dave", "password"); !errors.Is(err, state.ErrUnauthorized) {
		t.Errorf("Add() error = %v, want ErrUnauthorized", err)
	}
	if err := f.dir.Remove(ctx, 0); !errors.Is(err, state.ErrUnauthorized) {
		t.Errorf("Remove() error = %v, want ErrUnauthorized", err)
	}
	if got := f.dir.List(ctx); len(got) != 1 {
		t.Errorf("directory changed without a session: %+v", got)
	}
	if got := f.activity.List(ctx); len(got) != 0 {
		t.Errorf("unauthorized calls recorded %d entries", len(got))
	}
}

func TestRemoveLastAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	err := f.dir.Remove(ctx, 0)
	if !errors.Is(err, state.ErrInvariantViolation) {
		t.Fatalf("Remove(0) error = %v, want ErrInvariantViolation", err)
	}
	if got := f.dir.List(ctx); len(got) != 1 || got[0].Username != "admin" {
		t.Errorf("directory changed: %+v", got)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	for _, name := range []string{"bob", "carol"} {
		if err := f.dir.Add(ctx, name, "password"); err != nil {
			t.Fatalf("Add(%s) error = %v", name, err)
		}
	}

	if err := f.dir.Remove(ctx, 5); !errors.Is(err, state.ErrIndex) {
		t.Errorf("Remove(5) error = %v, want ErrIndex", err)
	}
	if err := f.dir.Remove(ctx, -1); !errors.Is(err, state.ErrIndex) {
		t.Errorf("Remove(-1) error = %v, want ErrIndex", err)
	}

	if err := f.dir.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove(1) error = %v", err)
	}
	got := f.dir.List(ctx)
	if len(got) != 2 || got[0].Username != "admin" || got[1].Username != "carol" {
		t.Errorf("List() = %+v, want admin, carol", got)
	}

	entries := f.activity.List(ctx)
	if entries[0].Type != state.ActivityUserRemove || !strings.Contains(entries[0].Message, "bob") {
		t.Errorf("latest activity = %+v, want user-remove naming bob", entries[0])
	}
}

func TestDirectoryNeverEmpties(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	for _, name := range []string{"u_one", "u_two", "u_three"} {
		f.dir.Add(ctx, name, "password")
	}
	for i := 0; i < 10; i++ {
		f.dir.Remove(ctx, 0)
		if n := len(f.dir.List(ctx)); n < 1 {
			t.Fatalf("directory size dropped to %d", n)
		}
	}
	if n := len(f.dir.List(ctx)); n != 1 {
		t.Errorf("expected one account left, got %d", n)
	}
}

func TestEachMutationRecordsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	before := len(f.activity.List(ctx))
	f.dir.Add(ctx, "erin", "password")
	after := f.activity.List(ctx)
	if len(after) != before+1 || after[0].Type != state.ActivityUserAdd || after[0].User != "admin" {
		t.Errorf("Add recorded %+v", after)
	}

	f.dir.Add(ctx, "erin", "password")
	if n := len(f.activity.List(ctx)); n != before+1 {
		t.Errorf("failed Add recorded an entry (%d entries)", n)
	}
}
