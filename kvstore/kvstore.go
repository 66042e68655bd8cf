// Package kvstore persists small string values, such as recent searches,
// across restarts.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// Store is a string key-value store.
type Store interface {
	// GetItem returns the value and whether it was present.
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Memory is a process-local Store.
type Memory struct {
	items *xsync.MapOf[string, string]
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{items: xsync.NewMapOf[string, string]()}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	value, ok := m.items.Load(key)
	return value, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.items.Store(key, value)
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Redis stores items as plain redis strings under prefix.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps client. The caller owns the client lifecycle.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":kv:" + key
}

func (r *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("kvstore: set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("kvstore: remove %s: %w", key, err)
	}
	return nil
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)
