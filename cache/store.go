package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-carmarket/internal/cacheinfra"
	"github.com/vmihailenco/msgpack/v5"
)

// Entry is a cached value with the time it was stored and its TTL.
type Entry = cacheinfra.Entry

// Stats is the diagnostic view returned by Store.Stats.
type Stats = cacheinfra.Stats

// Store is the TTL cache the marketplace facade reads through. Expired
// entries are removed when they are read.
type Store interface {
	// Get returns a fresh entry. An expired entry is removed and reported
	// as a miss.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set overwrites key with a fresh timestamp. ttl <= 0 uses the store default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes everything the store owns.
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// Lookup reads key and returns its value as T. Values held in process are
// type asserted, values held by serializing stores are decoded from msgpack.
func Lookup[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var zero T

	entry, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}

	if entry.Value != nil {
		value, ok := entry.Value.(T)
		if !ok {
			return zero, false, fmt.Errorf("cache: entry %q holds %T", key, entry.Value)
		}
		return value, true, nil
	}

	if entry.Raw == nil {
		return zero, true, nil
	}

	var value T
	if err := msgpack.Unmarshal(entry.Raw, &value); err != nil {
		return zero, false, fmt.Errorf("cache: decode entry %q: %w", key, err)
	}
	return value, true, nil
}
