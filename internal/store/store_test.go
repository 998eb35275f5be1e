package store

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"siteadmin/internal/kv"
	"siteadmin/internal/logging"
	"siteadmin/internal/state"
)

func newTestStore(t *testing.T, quota int64) (*Store, *kv.MemoryStorage, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mem := kv.NewMemoryStorage(quota)
	return New(mem, logging.NewLogger("store", logging.DEBUG, &buf)), mem, &buf
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, 0)

	msgs := []state.ChatMessage{
		{User: "admin", Text: "hi", Timestamp: 1},
		{User: "bob", Text: "<b>yo</b>", Timestamp: 2},
	}
	if err := Save(ctx, s, KeyChat, msgs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := Load[state.ChatMessage](ctx, s, KeyChat)
	if !reflect.DeepEqual(got, msgs) {
		t.Errorf("Load() = %+v, want %+v", got, msgs)
	}
}

func TestLoadFailsClosed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload *string
		wantLog string
	}{
		{"missing key", nil, ""},
		{"garbage", strPtr("{not json"), "corrupt"},
		{"wrong shape", strPtr(`{"user":"a"}`), "corrupt"},
		{"null", strPtr("null"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mem, buf := newTestStore(t, 0)
			if tt.payload != nil {
				mem.SetItem(ctx, KeyChat, *tt.payload)
			}

			got := Load[state.ChatMessage](ctx, s, KeyChat)
			if got == nil || len(got) != 0 {
				t.Errorf("Load() = %#v, want empty non-nil slice", got)
			}
			if tt.wantLog != "" && !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("expected warning containing %q, got %q", tt.wantLog, buf.String())
			}
		})
	}
}

func TestLoadOrInitReseeds(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t, 0)
	mem.SetItem(ctx, KeyUsers, "%%%corrupt")

	seed := func() []state.User { return []state.User{{Username: "admin", Password: "admin123"}} }

	got := LoadOrInit(ctx, s, KeyUsers, seed)
	if len(got) != 1 || got[0].Username != "admin" {
		t.Fatalf("LoadOrInit() = %+v, want one admin", got)
	}

	// The seed must have been written back
	raw, ok, _ := mem.GetItem(ctx, KeyUsers)
	if !ok || !strings.Contains(raw, `"admin"`) {
		t.Errorf("seed not persisted, stored = %q", raw)
	}

	// A second load reads the stored value without reseeding
	calls := 0
	LoadOrInit(ctx, s, KeyUsers, func() []state.User { calls++; return seed() })
	if calls != 0 {
		t.Errorf("init called %d times on a populated collection", calls)
	}
}

func TestSaveTruncatedRetries(t *testing.T) {
	ctx := context.Background()

	items := make([]state.SharedFile, 5)
	for i := range items {
		items[i] = state.SharedFile{Name: string(rune('a' + i)), Data: strings.Repeat("x", 100)}
	}

	// Room for roughly three entries
	s, _, buf := newTestStore(t, 500)

	saved, err := SaveTruncated(ctx, s, KeyFiles, items, 2)
	if err != nil {
		t.Fatalf("SaveTruncated() error = %v", err)
	}
	if len(saved) != 2 || saved[0].Name != "d" || saved[1].Name != "e" {
		t.Errorf("SaveTruncated() kept %+v, want newest two", saved)
	}
	if !strings.Contains(buf.String(), "retrying") {
		t.Error("expected a retry warning")
	}

	stored := Load[state.SharedFile](ctx, s, KeyFiles)
	if len(stored) != 2 {
		t.Errorf("stored %d entries, want 2", len(stored))
	}
}

func TestSaveTruncatedGivesUp(t *testing.T) {
	ctx := context.Background()
	s, _, buf := newTestStore(t, 50)

	items := []state.SharedFile{{Name: "a", Data: strings.Repeat("x", 200)}, {Name: "b", Data: strings.Repeat("x", 200)}}
	_, err := SaveTruncated(ctx, s, KeyFiles, items, 1)
	if !errors.Is(err, state.ErrStorageQuotaExceeded) {
		t.Fatalf("SaveTruncated() error = %v, want ErrStorageQuotaExceeded", err)
	}
	if !strings.Contains(buf.String(), "Dropped write") {
		t.Error("a dropped write must be logged")
	}
	if got := Load[state.SharedFile](ctx, s, KeyFiles); len(got) != 0 {
		t.Errorf("nothing should be stored, got %d entries", len(got))
	}
}

func TestKeepLast(t *testing.T) {
	tests := []struct {
		in   []int
		n    int
		want []int
	}{
		{[]int{1, 2, 3}, 5, []int{1, 2, 3}},
		{[]int{1, 2, 3}, 2, []int{2, 3}},
		{[]int{1, 2, 3}, 0, []int{}},
		{nil, 3, []int{}},
	}

	for _, tt := range tests {
		got := KeepLast(tt.in, tt.n)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("KeepLast(%v, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
		}
	}

	src := []int{1, 2, 3}
	out := KeepLast(src, 3)
	out[0] = 99
	if src[0] != 1 {
		t.Error("KeepLast must return a copy")
	}
}

func strPtr(s string) *string { return &s }
