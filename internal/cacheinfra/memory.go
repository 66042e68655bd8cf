package cacheinfra

import (
	"context"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore keeps entries in process. Expired entries are dropped when they
// are read; there is no background sweep.
type MemoryStore struct {
	entries    *xsync.MapOf[string, Entry]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(defaultTTL time.Duration, opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{
		entries:    xsync.NewMapOf[string, Entry](),
		defaultTTL: defaultTTL,
		now:        o.now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	entry, ok := s.entries.Load(key)
	if !ok {
		return Entry{}, false, nil
	}

	now := s.now()
	if entry.Valid(now) {
		return entry, true, nil
	}

	// Drop the entry unless a concurrent Set already replaced it.
	s.entries.Compute(key, func(current Entry, loaded bool) (Entry, bool) {
		return current, !loaded || !current.Valid(now)
	})
	return Entry{}, false, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.entries.Store(key, Entry{Value: value, StoredAt: s.now(), TTL: ttl})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.entries.Clear()
	return nil
}

// Stats lists every key held, including expired entries not yet read.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	keys := make([]string, 0, s.entries.Size())
	s.entries.Range(func(key string, _ Entry) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}, nil
}
