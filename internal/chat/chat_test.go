package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"siteadmin/internal/kv"
	"siteadmin/internal/state"
	"siteadmin/internal/store"
)

type fakeGate struct {
	user string
}

func (g *fakeGate) IsAuthenticated() bool { return g.user != "" }

func (g *fakeGate) CurrentUser() (string, bool) { return g.user, g.user != "" }

type entry struct {
	typ     state.ActivityType
	message string
	user    string
}

type fakeRecorder struct {
	entries []entry
}

func (r *fakeRecorder) Record(ctx context.Context, typ state.ActivityType, message, user string) {
	r.entries = append(r.entries, entry{typ, message, user})
}

func newTestLog(user string) (*Log, *fakeGate, *fakeRecorder) {
	gate := &fakeGate{user: user}
	rec := &fakeRecorder{}
	l := NewLog(store.New(kv.NewMemoryStorage(0), nil), gate, rec, 100, nil)
	l.now = func() time.Time { return time.UnixMilli(42) }
	return l, gate, rec
}

func TestPost(t *testing.T) {
	ctx := context.Background()
	l, _, rec := newTestLog("admin")

	if err := l.Post(ctx, "  hello world  "); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	msgs := l.List(ctx)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	want := state.ChatMessage{User: "admin", Text: "hello world", Timestamp: 42}
	if msgs[0] != want {
		t.Errorf("message = %+v, want %+v", msgs[0], want)
	}
	if len(rec.entries) != 1 || rec.entries[0].typ != state.ActivityMessage || rec.entries[0].message != "hello world" {
		t.Errorf("recorded %+v", rec.entries)
	}
}

func TestPostUnauthenticatedIsNoop(t *testing.T) {
	ctx := context.Background()
	l, _, rec := newTestLog("")

	err := l.Post(ctx, "hello")
	if !errors.Is(err, state.ErrUnauthorized) {
		t.Fatalf("Post() error = %v, want ErrUnauthorized", err)
	}
	if got := l.List(ctx); len(got) != 0 {
		t.Errorf("chat changed: %+v", got)
	}
	if len(rec.entries) != 0 {
		t.Errorf("activity recorded: %+v", rec.entries)
	}
}

func TestPostRejectsBlank(t *testing.T) {
	ctx := context.Background()
	l, _, rec := newTestLog("admin")

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := l.Post(ctx, text); !errors.Is(err, state.ErrValidation) {
			t.Errorf("Post(%q) error = %v, want ErrValidation", text, err)
		}
	}
	if len(rec.entries) != 0 {
		t.Errorf("blank posts recorded %d entries", len(rec.entries))
	}
}

func TestPostKeepsNewestHundred(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLog("admin")

	for i := 0; i < 135; i++ {
		if err := l.Post(ctx, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Post(%d) error = %v", i, err)
		}
		if n := len(l.List(ctx)); n > 100 {
			t.Fatalf("log grew to %d", n)
		}
	}

	msgs := l.List(ctx)
	if len(msgs) != 100 {
		t.Fatalf("expected 100 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("m%d", i+35); m.Text != want {
			t.Fatalf("msgs[%d] = %q, want %q", i, m.Text, want)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "hi", "hi"},
		{"exactly fifty", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"long", strings.Repeat("b", 51), strings.Repeat("b", 50) + "..."},
		{"multibyte", strings.Repeat("é", 60), strings.Repeat("é", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.in); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPostStoresRawMarkup(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLog("admin")

	l.Post(ctx, "<img src=x onerror=alert(1)>")
	if got := l.List(ctx)[0].Text; got != "<img src=x onerror=alert(1)>" {
		t.Errorf("text altered on store: %q", got)
	}
}

func TestObserversAfterPost(t *testing.T) {
	ctx := context.Background()
	l, _, rec := newTestLog("admin")

	var sawEntry bool
	l.Observe(func(ctx context.Context, ev state.Event) {
		sawEntry = len(rec.entries) == 1
	})
	l.Post(ctx, "hello")

	if !sawEntry {
		t.Error("observers must run after the activity entry is recorded")
	}
}
