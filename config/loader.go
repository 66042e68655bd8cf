package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment prefix used by the CLI.
const DefaultEnvPrefix = "CARMARKET"

// Loader hydrates the runtime configuration while respecting env > file > default precedence.
type Loader struct {
	envPrefix string
	files     []string
}

func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{
		envPrefix: envPrefix,
		files:     files,
	}
}

// camelKeys restores the camelCase spelling of keys that arrive lowercased
// from the environment.
var camelKeys = map[string]string{
	"maxopenconns":       "maxOpenConns",
	"defaultttl":         "defaultTTL",
	"numshards":          "numShards",
	"evictionpercentage": "evictionPercentage",
	"evictioninterval":   "evictionInterval",
	"probeconnectivity":  "probeConnectivity",
	"singleflight":       "singleFlight",
	"invalidateonwrite":  "invalidateOnWrite",
	"featuredlimit":      "featuredLimit",
	"bcryptcost":         "bcryptCost",
	"sessionttl":         "sessionTTL",
}

// Load assembles the effective configuration and validates it.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(structToMap(DefaultConfig()), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Config{}, ctx.Err()
		default:
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", path)
			}
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		if err := k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps CARMARKET_CACHE__TTL__FETCH_LISTINGS to cache.ttl.fetch_listings.
// Double underscores separate path segments; single underscores are kept so
// operation names survive.
func (l *Loader) envKey(s string) string {
	key := strings.TrimPrefix(s, l.envPrefix+"_")
	segments := strings.Split(strings.ToLower(key), "__")
	for i, segment := range segments {
		if camel, ok := camelKeys[strings.ReplaceAll(segment, "_", "")]; ok {
			segments[i] = camel
		}
	}
	return strings.Join(segments, ".")
}

// structToMap converts a Config into a map for the koanf confmap provider.
func structToMap(cfg Config) map[string]any {
	ttl := make(map[string]any, len(cfg.Cache.TTL))
	for op, d := range cfg.Cache.TTL {
		ttl[op] = d
	}

	return map[string]any{
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
		},
		"database": map[string]any{
			"driver":       cfg.Database.Driver,
			"dsn":          cfg.Database.DSN,
			"maxOpenConns": cfg.Database.MaxOpenConns,
		},
		"cache": map[string]any{
			"backend":            cfg.Cache.Backend,
			"defaultTTL":         cfg.Cache.DefaultTTL,
			"ttl":                ttl,
			"capacity":           cfg.Cache.Capacity,
			"numShards":          cfg.Cache.NumShards,
			"evictionPercentage": cfg.Cache.EvictionPercentage,
			"evictionInterval":   cfg.Cache.EvictionInterval,
			"redis": map[string]any{
				"address":  cfg.Cache.Redis.Address,
				"username": cfg.Cache.Redis.Username,
				"password": cfg.Cache.Redis.Password,
				"db":       cfg.Cache.Redis.DB,
				"prefix":   cfg.Cache.Redis.Prefix,
			},
		},
		"facade": map[string]any{
			"probeConnectivity": cfg.Facade.ProbeConnectivity,
			"singleFlight":      cfg.Facade.SingleFlight,
			"invalidateOnWrite": cfg.Facade.InvalidateOnWrite,
			"featuredLimit":     cfg.Facade.FeaturedLimit,
		},
		"kv": map[string]any{
			"backend": cfg.KV.Backend,
		},
		"auth": map[string]any{
			"bcryptCost": cfg.Auth.BcryptCost,
			"sessionTTL": cfg.Auth.SessionTTL,
		},
		"http": map[string]any{
			"address": cfg.HTTP.Address,
		},
	}
}
