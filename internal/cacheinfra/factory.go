package cacheinfra

import (
	"context"
	"io"
	"time"

	"github.com/viccon/sturdyc"
)

// Store is implemented by every backend in this package.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SturdycStore)(nil)
	_ Store = (*RedisStore)(nil)
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewStore builds the backend cfg selects. The returned closer releases any
// connection the store opened.
func NewStore(ctx context.Context, cfg Config, opts ...Option) (Store, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case BackendSturdyc:
		store, err := NewSturdycStore(cfg, []sturdyc.Option{}, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	case BackendRedis:
		client, err := DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, cfg.Redis.Prefix, cfg.TTL, opts...), client, nil
	default:
		return NewMemoryStore(cfg.TTL, opts...), nopCloser{}, nil
	}
}
