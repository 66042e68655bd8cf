package cacheinfra

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	hex "github.com/tmthrgd/go-hex"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	fieldKey      = "k"
	fieldValue    = "v"
	fieldStoredAt = "t"
	fieldTTL      = "ttl"

	scanBatch = 256
)

// RedisStore keeps msgpack encoded entries in redis hashes. Cache keys can be
// long, so the redis key is the prefix plus an xxhash of the cache key and the
// original key is kept in the hash.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewRedisStore wraps client. The caller owns the client lifecycle.
func NewRedisStore(client redis.UniversalClient, prefix string, defaultTTL time.Duration, opts ...Option) *RedisStore {
	o := applyOptions(opts)
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		now:        o.now,
	}
}

// DialRedis opens a client for cfg and checks the connection.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}
	return client, nil
}

func (s *RedisStore) redisKey(key string) string {
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64String(key))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

func (s *RedisStore) pattern() string {
	return s.prefix + ":*"
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	rk := s.redisKey(key)
	fields, err := s.client.HGetAll(ctx, rk).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(fields) == 0 || fields[fieldKey] != key {
		return Entry{}, false, nil
	}

	entry, err := decodeFields(fields)
	if err != nil {
		return Entry{}, false, err
	}
	if !entry.Valid(s.now()) {
		return Entry{}, false, s.client.Del(ctx, rk).Err()
	}
	return entry, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	rk := s.redisKey(key)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, rk)
	pipe.HSet(ctx, rk,
		fieldKey, key,
		fieldValue, data,
		fieldStoredAt, s.now().UnixMilli(),
		fieldTTL, ttl.Milliseconds(),
	)
	pipe.PExpire(ctx, rk, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.redisKey(key)).Err()
}

// Clear deletes every key under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.scan(ctx, func(batch []string) error {
		return s.client.Del(ctx, batch...).Err()
	})
}

// Stats reports the original cache keys under the store prefix.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	keys := []string{}
	err := s.scan(ctx, func(batch []string) error {
		pipe := s.client.Pipeline()
		cmds := make([]*redis.StringCmd, len(batch))
		for i, rk := range batch {
			cmds[i] = pipe.HGet(ctx, rk, fieldKey)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		for _, cmd := range cmds {
			if original, err := cmd.Result(); err == nil {
				keys = append(keys, original)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}, nil
}

func (s *RedisStore) scan(ctx context.Context, fn func(batch []string) error) error {
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.pattern(), scanBatch).Result()
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func decodeFields(fields map[string]string) (Entry, error) {
	storedAt, err := strconv.ParseInt(fields[fieldStoredAt], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("decode stored-at: %w", err)
	}
	ttl, err := strconv.ParseInt(fields[fieldTTL], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("decode ttl: %w", err)
	}
	return Entry{
		Raw:      []byte(fields[fieldValue]),
		StoredAt: time.UnixMilli(storedAt),
		TTL:      time.Duration(ttl) * time.Millisecond,
	}, nil
}
