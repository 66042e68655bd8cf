package marketplace

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-carmarket/cache"
	"github.com/goliatone/go-carmarket/metrics"
)

// DefaultFeaturedLimit is the number of featured listings returned.
const DefaultFeaturedLimit = 10

// DefaultPageSize is used by filtered searches that do not set a limit.
const DefaultPageSize = 20

type options struct {
	keys              cache.KeySerializer
	ttl               cache.TTLPolicy
	logger            *slog.Logger
	metrics           *metrics.Recorder
	probe             bool
	singleFlight      bool
	invalidateOnWrite bool
	featuredLimit     int
	recent            *RecentSearches
	now               func() time.Time
}

// Option configures a Service.
type Option func(*options)

func defaultOptions() options {
	return options{
		keys:          cache.NewDefaultKeySerializer(),
		ttl:           cache.DefaultTTLPolicy(),
		logger:        slog.New(slog.DiscardHandler),
		probe:         true,
		featuredLimit: DefaultFeaturedLimit,
		now:           time.Now,
	}
}

// WithKeySerializer replaces the canonical key serializer.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(o *options) {
		if keys != nil {
			o.keys = keys
		}
	}
}

// WithTTLPolicy sets per operation cache lifetimes.
func WithTTLPolicy(policy cache.TTLPolicy) Option {
	return func(o *options) {
		o.ttl = policy
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(rec *metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = rec
	}
}

// WithConnectivityProbe toggles the reachability check issued before each
// remote query on a cache miss. Enabled by default.
func WithConnectivityProbe(enabled bool) Option {
	return func(o *options) {
		o.probe = enabled
	}
}

// WithSingleFlight makes concurrent misses for the same key share one
// remote call. Disabled by default, in which case each miss queries.
func WithSingleFlight(enabled bool) Option {
	return func(o *options) {
		o.singleFlight = enabled
	}
}

// WithInvalidateOnWrite makes writes drop the cached reads of the collection
// they touch. Disabled by default, in which case cached reads stay until
// they expire or the cache is cleared.
func WithInvalidateOnWrite(enabled bool) Option {
	return func(o *options) {
		o.invalidateOnWrite = enabled
	}
}

func WithFeaturedLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.featuredLimit = n
		}
	}
}

// WithRecentSearches records the search text of listing reads.
func WithRecentSearches(recent *RecentSearches) Option {
	return func(o *options) {
		o.recent = recent
	}
}

// WithClock replaces the clock used for validation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
