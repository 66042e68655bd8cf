package marketplace

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-carmarket/cache"
	"github.com/goliatone/go-carmarket/failure"
	"github.com/goliatone/go-carmarket/metrics"
	"github.com/goliatone/go-carmarket/remote"
)

// Service is the cache-augmented query facade over the remote marketplace
// database. Every read validates its input, then consults the cache, then
// queries the remote client and caches the result with the operation TTL.
type Service struct {
	client remote.Client
	store  cache.Store
	opts   options
	tags   *tagRegistry
	flight singleflight.Group
}

// New builds a Service. The caller owns store and decides its lifetime; it
// is shared by every operation of the Service.
func New(client remote.Client, store cache.Store, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		client: client,
		store:  store,
		opts:   o,
		tags:   newTagRegistry(),
	}
}

// CacheStats reports the number of cached entries and their keys.
func (s *Service) CacheStats(ctx context.Context) (cache.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return cache.Stats{}, failure.Normalize(err)
	}
	return stats, nil
}

// ClearCache drops every cached entry.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.clear(ctx, "manual")
}

func (s *Service) clear(ctx context.Context, reason string) error {
	s.tags.reset()
	s.opts.metrics.ObserveClear(reason)
	if err := s.store.Clear(ctx); err != nil {
		s.opts.logger.Warn("cache clear failed", slog.String("reason", reason), slog.Any("error", err))
		return failure.Normalize(err)
	}
	s.opts.logger.Debug("cache cleared", slog.String("reason", reason))
	return nil
}

// fetchFunc queries the remote client. found is false for a clean "no such
// record" answer, which is returned to the caller but never cached.
type fetchFunc[T any] func(ctx context.Context) (value T, found bool, err error)

type readResult[T any] struct {
	value T
	found bool
}

// read runs the cache-check, probe, query and cache-store steps for one call.
// Validation has already happened. args must be the validated parameters.
func read[T any](ctx context.Context, s *Service, op string, args []any, tags []string, fetch fetchFunc[T]) (T, bool, error) {
	key := s.opts.keys.SerializeKey(op, args...)
	log := s.opts.logger.With(slog.String("operation", op))

	value, hit, err := cache.Lookup[T](ctx, s.store, key)
	switch {
	case err != nil:
		log.Warn("cache lookup failed, querying remote", slog.String("key", key), slog.Any("error", err))
		s.opts.metrics.ObserveCache(op, metrics.CacheError)
	case hit:
		log.Debug("cache hit", slog.String("key", key))
		s.opts.metrics.ObserveCache(op, metrics.CacheHit)
		return value, true, nil
	default:
		log.Debug("cache miss", slog.String("key", key))
		s.opts.metrics.ObserveCache(op, metrics.CacheMiss)
	}

	tags = slices.Concat(tags, cacheTagsFromContext(ctx))
	if !s.opts.singleFlight {
		res, err := query(ctx, s, op, key, tags, fetch)
		return res.value, res.found, err
	}

	// The shared load runs detached from the caller that started it; a
	// caller that gives up leaves the others waiting on the result.
	shared := s.flight.DoChan(key, func() (any, error) {
		return query(context.WithoutCancel(ctx), s, op, key, tags, fetch)
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, false, failure.Normalize(ctx.Err())
	case res := <-shared:
		if res.Err != nil {
			var zero T
			return zero, false, res.Err
		}
		out := res.Val.(readResult[T])
		return out.value, out.found, nil
	}
}

func query[T any](ctx context.Context, s *Service, op, key string, tags []string, fetch fetchFunc[T]) (readResult[T], error) {
	log := s.opts.logger.With(slog.String("operation", op))

	if s.opts.probe {
		if err := s.client.Ping(ctx); err != nil {
			ferr := failure.Connection(err)
			s.opts.metrics.ObserveRemote(op, string(ferr.Kind), 0)
			log.Warn("connectivity probe failed", slog.String("kind", string(ferr.Kind)), slog.Any("error", err))
			return readResult[T]{}, ferr
		}
	}

	start := s.opts.now()
	value, found, err := fetch(ctx)
	elapsed := s.elapsedSince(start)
	if err != nil {
		ferr := failure.Normalize(err)
		s.opts.metrics.ObserveRemote(op, string(failure.KindOf(ferr)), elapsed)
		log.Warn("remote query failed", slog.String("kind", string(failure.KindOf(ferr))), slog.Any("error", err))
		return readResult[T]{}, ferr
	}

	if !found {
		s.opts.metrics.ObserveRemote(op, metrics.OutcomeNotFound, elapsed)
		return readResult[T]{}, nil
	}
	s.opts.metrics.ObserveRemote(op, metrics.OutcomeOK, elapsed)

	if err := s.store.Set(ctx, key, value, s.opts.ttl.TTL(op)); err != nil {
		log.Warn("cache store failed", slog.String("key", key), slog.Any("error", err))
		s.opts.metrics.ObserveCache(op, metrics.CacheStoreError)
	} else {
		s.opts.metrics.ObserveCache(op, metrics.CacheStored)
		s.tags.register(key, tags...)
	}

	return readResult[T]{value: value, found: true}, nil
}

// invalidate drops the reads registered under tags when write invalidation
// is enabled.
func (s *Service) invalidate(ctx context.Context, tags ...string) {
	if !s.opts.invalidateOnWrite {
		return
	}
	for _, tag := range tags {
		if err := s.InvalidateTag(ctx, tag); err != nil {
			s.opts.logger.Warn("cache invalidation failed", slog.String("tag", tag), slog.Any("error", err))
		}
	}
}

func (s *Service) elapsedSince(start time.Time) time.Duration {
	return s.opts.now().Sub(start)
}
