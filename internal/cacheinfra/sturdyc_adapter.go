package cacheinfra

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// SturdycStore backs the cache with sturdyc clients. A sturdyc client has a
// single TTL, so the store keeps one client per distinct TTL it is asked for
// and remembers which bucket each key was written to.
type SturdycStore struct {
	cfg        Config
	clientOpts []sturdyc.Option
	now        func() time.Time

	mu      sync.RWMutex
	buckets map[time.Duration]*sturdyc.Client[Entry]
	index   *xsync.MapOf[string, time.Duration]
}

// NewSturdycStore validates cfg and prepares an empty store. Extra sturdyc
// options, such as a test clock, are applied to every bucket.
//
// The constructor translates Config parameters to sturdyc initialization:
// - Capacity, NumShards, EvictionPercentage are passed to sturdyc.New()
// - EvictionInterval is applied via ToSturdycOptions()
func NewSturdycStore(cfg Config, clientOpts []sturdyc.Option, opts ...Option) (*SturdycStore, error) {
	cfg.Backend = BackendSturdyc
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	return &SturdycStore{
		cfg:        cfg,
		clientOpts: append(cfg.ToSturdycOptions(), clientOpts...),
		now:        o.now,
		buckets:    make(map[time.Duration]*sturdyc.Client[Entry]),
		index:      xsync.NewMapOf[string, time.Duration](),
	}, nil
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

func (s *SturdycStore) Get(_ context.Context, key string) (Entry, bool, error) {
	ttl, ok := s.index.Load(key)
	if !ok {
		return Entry{}, false, nil
	}

	client := s.bucket(ttl, false)
	if client != nil {
		if entry, found := client.Get(key); found && entry.Valid(s.now()) {
			return entry, true, nil
		}
		client.Delete(key)
	}

	s.index.Compute(key, func(current time.Duration, loaded bool) (time.Duration, bool) {
		return current, !loaded || current == ttl
	})
	return Entry{}, false, nil
}

func (s *SturdycStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}

	if previous, ok := s.index.Load(key); ok && previous != ttl {
		if client := s.bucket(previous, false); client != nil {
			client.Delete(key)
		}
	}

	s.bucket(ttl, true).Set(key, Entry{Value: value, StoredAt: s.now(), TTL: ttl})
	s.index.Store(key, ttl)
	return nil
}

func (s *SturdycStore) Delete(_ context.Context, key string) error {
	if ttl, ok := s.index.LoadAndDelete(key); ok {
		if client := s.bucket(ttl, false); client != nil {
			client.Delete(key)
		}
	}
	return nil
}

// Clear removes every key from every bucket.
func (s *SturdycStore) Clear(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.buckets {
		for _, key := range client.ScanKeys() {
			client.Delete(key)
		}
	}
	s.index.Clear()
	return nil
}

func (s *SturdycStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for _, client := range s.buckets {
		keys = append(keys, client.ScanKeys()...)
	}
	sort.Strings(keys)
	if keys == nil {
		keys = []string{}
	}
	return Stats{Size: len(keys), Keys: keys}, nil
}

// bucket returns the client for ttl, creating it when create is set.
func (s *SturdycStore) bucket(ttl time.Duration, create bool) *sturdyc.Client[Entry] {
	s.mu.RLock()
	client, ok := s.buckets[ttl]
	s.mu.RUnlock()
	if ok || !create {
		return client
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok = s.buckets[ttl]; ok {
		return client
	}
	client = sturdyc.New[Entry](
		s.cfg.Capacity,
		s.cfg.NumShards,
		ttl,
		s.cfg.EvictionPercentage,
		s.clientOpts...,
	)
	s.buckets[ttl] = client
	return client
}
