package cache

import (
	"context"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-carmarket/internal/cacheinfra"
)

// Backend names a Store implementation.
type Backend = cacheinfra.Backend

const (
	BackendMemory  = cacheinfra.BackendMemory
	BackendSturdyc = cacheinfra.BackendSturdyc
	BackendRedis   = cacheinfra.BackendRedis
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            Backend
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	Redis              RedisConfig
}

// RedisConfig locates the redis server for BackendRedis.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Option tunes a store built by NewStore.
type Option = cacheinfra.Option

// WithClock replaces the clock used to stamp and expire entries.
func WithClock(now func() time.Time) Option {
	return cacheinfra.WithNow(now)
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewStore constructs the configured backend. Close the returned closer when
// the store is no longer used.
func NewStore(ctx context.Context, cfg Config, opts ...Option) (Store, io.Closer, error) {
	return cacheinfra.NewStore(ctx, cfg.toInternal(), opts...)
}

// NewMemoryStore returns the default in-process store.
func NewMemoryStore(defaultTTL time.Duration, opts ...Option) Store {
	return cacheinfra.NewMemoryStore(defaultTTL, opts...)
}

// DialRedis connects to the redis server described by cfg. It lets other
// components share the cache connection settings.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	return cacheinfra.DialRedis(ctx, Config{Redis: cfg}.toInternal().Redis)
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Redis: cacheinfra.RedisConfig{
			Address:  c.Redis.Address,
			Username: c.Redis.Username,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:            cfg.Backend,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		Redis: RedisConfig{
			Address:  cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}
}
