package cacheinfra

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestEntry_Valid(t *testing.T) {
	stored := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := Entry{StoredAt: stored, TTL: time.Minute}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "fresh", now: stored, want: true},
		{name: "exactly at ttl", now: stored.Add(time.Minute), want: true},
		{name: "just past ttl", now: stored.Add(time.Minute + time.Nanosecond), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.Valid(tt.now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, WithNow(clock.Now))

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss for unknown key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "k", "value", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, ok, err := store.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if entry.Value != "value" {
		t.Errorf("expected value %q, got %v", "value", entry.Value)
	}
	if entry.TTL != time.Minute {
		t.Errorf("expected default ttl to apply, got %v", entry.TTL)
	}
	if !entry.StoredAt.Equal(clock.Now()) {
		t.Errorf("expected StoredAt %v, got %v", clock.Now(), entry.StoredAt)
	}
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, WithNow(clock.Now))

	_ = store.Set(ctx, "short", 1, 10*time.Second)
	_ = store.Set(ctx, "long", 2, time.Hour)

	clock.Advance(11 * time.Second)

	stats, _ := store.Stats(ctx)
	if stats.Size != 2 {
		t.Fatalf("expired entries stay until read, expected size 2, got %d", stats.Size)
	}

	if _, ok, _ := store.Get(ctx, "short"); ok {
		t.Error("expected expired entry to miss")
	}
	if _, ok, _ := store.Get(ctx, "long"); !ok {
		t.Error("expected long-lived entry to hit")
	}

	stats, _ = store.Stats(ctx)
	if !reflect.DeepEqual(stats.Keys, []string{"long"}) {
		t.Errorf("expected expired key to be removed on read, got %v", stats.Keys)
	}
}

func TestMemoryStore_OverwriteResetsWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, WithNow(clock.Now))

	_ = store.Set(ctx, "k", "old", 30*time.Second)
	clock.Advance(20 * time.Second)
	_ = store.Set(ctx, "k", "new", 30*time.Second)
	clock.Advance(20 * time.Second)

	entry, ok, _ := store.Get(ctx, "k")
	if !ok {
		t.Fatal("expected overwritten entry to still be valid")
	}
	if entry.Value != "new" {
		t.Errorf("expected latest value, got %v", entry.Value)
	}
}

func TestMemoryStore_DeleteClearStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	for _, key := range []string{"b", "a", "c"} {
		_ = store.Set(ctx, key, key, 0)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if !reflect.DeepEqual(stats.Keys, []string{"a", "b", "c"}) {
		t.Errorf("expected sorted keys, got %v", stats.Keys)
	}

	_ = store.Delete(ctx, "b")
	_ = store.Delete(ctx, "never-set")
	stats, _ = store.Stats(ctx)
	if stats.Size != 2 {
		t.Errorf("expected size 2 after delete, got %d", stats.Size)
	}

	_ = store.Clear(ctx)
	stats, _ = store.Stats(ctx)
	if stats.Size != 0 || len(stats.Keys) != 0 {
		t.Errorf("expected empty store after clear, got %+v", stats)
	}
	if stats.Keys == nil {
		t.Error("expected empty key list rather than nil")
	}
}
