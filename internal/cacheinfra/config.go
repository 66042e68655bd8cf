package cacheinfra

import (
	"time"
)

// Backend selects the cache store implementation.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendSturdyc Backend = "sturdyc"
	BackendRedis   Backend = "redis"
)

// Config holds the configuration for the cache stores.
type Config struct {
	// Backend selects the store. Empty means memory.
	Backend Backend

	// Capacity defines the maximum number of entries a sturdyc bucket can store.
	// Must be greater than 0 for the sturdyc backend.
	Capacity int

	// NumShards determines the number of sturdyc shards for concurrent access.
	// Default: 256
	NumShards int

	// TTL is the fallback time-to-live when a caller passes none.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries sturdyc evicts
	// when a bucket reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	Redis RedisConfig
}

// RedisConfig locates the redis server used by the redis backend.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	// Prefix namespaces every key the store writes, so Clear and Stats only
	// touch this application's entries.
	Prefix string
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendMemory,
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		Redis: RedisConfig{
			Address: "localhost:6379",
			Prefix:  "carmarket",
		},
	}
}

// Validate checks if the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	switch c.Backend {
	case "", BackendMemory:
		return nil
	case BackendSturdyc:
		if c.Capacity <= 0 {
			return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
		}
		if c.NumShards <= 0 {
			return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
		}
		if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
			return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
		}
		if c.EvictionInterval < 0 {
			return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
		}
		return nil
	case BackendRedis:
		if c.Redis.Address == "" {
			return &ConfigError{Field: "Redis.Address", Message: "is required"}
		}
		if c.Redis.Prefix == "" {
			return &ConfigError{Field: "Redis.Prefix", Message: "is required"}
		}
		return nil
	default:
		return &ConfigError{Field: "Backend", Message: "unsupported backend " + string(c.Backend)}
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
