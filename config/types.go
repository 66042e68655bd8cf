// Package config loads the runtime configuration of the carmarket service
// with env > file > default precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/goliatone/go-carmarket/cache"
	"github.com/goliatone/go-carmarket/remote/bunclient"
)

// Config holds every runtime option.
type Config struct {
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Facade   FacadeConfig   `koanf:"facade"`
	KV       KVConfig       `koanf:"kv"`
	Auth     AuthConfig     `koanf:"auth"`
	HTTP     HTTPConfig     `koanf:"http"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"maxOpenConns"`
}

// CacheConfig describes the cache store. Durations accept Go syntax plus
// days and weeks ("90s", "2m", "1d").
type CacheConfig struct {
	Backend            string            `koanf:"backend"`
	DefaultTTL         string            `koanf:"defaultTTL"`
	TTL                map[string]string `koanf:"ttl"`
	Capacity           int               `koanf:"capacity"`
	NumShards          int               `koanf:"numShards"`
	EvictionPercentage int               `koanf:"evictionPercentage"`
	EvictionInterval   string            `koanf:"evictionInterval"`
	Redis              RedisConfig       `koanf:"redis"`
}

type RedisConfig struct {
	Address  string `koanf:"address"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// FacadeConfig toggles the optional behaviours of the query facade.
type FacadeConfig struct {
	ProbeConnectivity bool `koanf:"probeConnectivity"`
	SingleFlight      bool `koanf:"singleFlight"`
	InvalidateOnWrite bool `koanf:"invalidateOnWrite"`
	FeaturedLimit     int  `koanf:"featuredLimit"`
}

// KVConfig selects where recent searches are persisted. The redis backend
// shares the cache redis connection settings.
type KVConfig struct {
	Backend string `koanf:"backend"`
}

type AuthConfig struct {
	BcryptCost int    `koanf:"bcryptCost"`
	SessionTTL string `koanf:"sessionTTL"`
}

type HTTPConfig struct {
	Address string `koanf:"address"`
}

const (
	KVMemory = "memory"
	KVRedis  = "redis"
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	cacheDefaults := cache.DefaultConfig()
	policy := cache.DefaultTTLPolicy()

	ttl := make(map[string]string, len(policy.Operations))
	for op, d := range policy.Operations {
		ttl[op] = d.String()
	}

	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Driver: bunclient.DriverSQLite,
			DSN:    bunclient.DefaultConfig().DSN,
		},
		Cache: CacheConfig{
			Backend:            string(cacheDefaults.Backend),
			DefaultTTL:         policy.Default.String(),
			TTL:                ttl,
			Capacity:           cacheDefaults.Capacity,
			NumShards:          cacheDefaults.NumShards,
			EvictionPercentage: cacheDefaults.EvictionPercentage,
			Redis: RedisConfig{
				Address: cacheDefaults.Redis.Address,
				Prefix:  cacheDefaults.Redis.Prefix,
			},
		},
		Facade: FacadeConfig{
			ProbeConnectivity: true,
			FeaturedLimit:     10,
		},
		KV:   KVConfig{Backend: KVMemory},
		Auth: AuthConfig{BcryptCost: 10, SessionTTL: "7d"},
		HTTP: HTTPConfig{Address: ":8080"},
	}
}

// Validate rejects unknown backends and drivers and unusable durations.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("config: logging.format %q must be json or text", c.Logging.Format))
	}

	switch c.Database.Driver {
	case bunclient.DriverPostgres, bunclient.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: database.driver %q must be postgres or sqlite", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("config: database.dsn is required"))
	}

	switch c.KV.Backend {
	case KVMemory, KVRedis:
	default:
		errs = append(errs, fmt.Errorf("config: kv.backend %q must be memory or redis", c.KV.Backend))
	}

	if _, err := c.TTLPolicy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseDuration("auth.sessionTTL", c.Auth.SessionTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg, err := c.CacheStoreConfig(); err != nil {
		errs = append(errs, err)
	} else if err := cfg.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: cache: %w", err))
	}
	if c.Facade.FeaturedLimit < 0 {
		errs = append(errs, errors.New("config: facade.featuredLimit must not be negative"))
	}

	return errors.Join(errs...)
}

// TTLPolicy parses the cache lifetimes.
func (c Config) TTLPolicy() (cache.TTLPolicy, error) {
	defaultTTL, err := parseDuration("cache.defaultTTL", c.Cache.DefaultTTL)
	if err != nil {
		return cache.TTLPolicy{}, err
	}

	overrides := make(map[string]time.Duration, len(c.Cache.TTL))
	for op, raw := range c.Cache.TTL {
		d, err := parseDuration("cache.ttl."+op, raw)
		if err != nil {
			return cache.TTLPolicy{}, err
		}
		overrides[op] = d
	}

	return cache.DefaultTTLPolicy().Merge(defaultTTL, overrides), nil
}

// CacheStoreConfig converts the cache section for cache.NewStore.
func (c Config) CacheStoreConfig() (cache.Config, error) {
	defaultTTL, err := parseDuration("cache.defaultTTL", c.Cache.DefaultTTL)
	if err != nil {
		return cache.Config{}, err
	}

	var interval time.Duration
	if c.Cache.EvictionInterval != "" {
		if interval, err = parseDuration("cache.evictionInterval", c.Cache.EvictionInterval); err != nil {
			return cache.Config{}, err
		}
	}

	return cache.Config{
		Backend:            cache.Backend(strings.ToLower(c.Cache.Backend)),
		Capacity:           c.Cache.Capacity,
		NumShards:          c.Cache.NumShards,
		TTL:                defaultTTL,
		EvictionPercentage: c.Cache.EvictionPercentage,
		EvictionInterval:   interval,
		Redis: cache.RedisConfig{
			Address:  c.Cache.Redis.Address,
			Username: c.Cache.Redis.Username,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Prefix:   c.Cache.Redis.Prefix,
		},
	}, nil
}

// ClientConfig converts the database and auth sections for bunclient.Open.
func (c Config) ClientConfig() (bunclient.Config, error) {
	sessionTTL, err := parseDuration("auth.sessionTTL", c.Auth.SessionTTL)
	if err != nil {
		return bunclient.Config{}, err
	}
	return bunclient.Config{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		MaxOpenConns: c.Database.MaxOpenConns,
		BcryptCost:   c.Auth.BcryptCost,
		SessionTTL:   sessionTTL,
	}, nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %q", field, raw)
	}
	return d, nil
}
