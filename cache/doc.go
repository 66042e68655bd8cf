// Package cache provides the TTL store, TTL policy and key serialization used by
// the marketplace facade.
//
// # Overview
//
// The package exports three pieces:
//
//   - Store: a TTL cache with lazy expiry, Clear and Stats
//   - TTLPolicy: per operation lifetimes loaded from configuration
//   - KeySerializer: builds canonical cache keys from an operation name and arguments
//
// A Store is always constructed explicitly and passed to its users; there is
// no package level cache.
//
// # Basic Usage
//
//	store, closer, err := cache.NewStore(ctx, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
//
//	key := cache.NewDefaultKeySerializer().SerializeKey(cache.OpFetchListings, 0, 10, "Toyota")
//	listings, hit, err := cache.Lookup[[]Listing](ctx, store, key)
//
// # Backends
//
//   - memory: an xsync map, entries expire on read
//   - sturdyc: sharded sturdyc clients, one per distinct TTL
//   - redis: msgpack encoded hashes under a key prefix, with server side expiry
//
// Lookup hides the difference between in process values and msgpack payloads.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection and renders values canonically:
//
//   - Strings are quoted, so "1" and 1 differ
//   - Numbers and booleans carry their type, as in int:1 or float64:1
//   - Nil pointers render as nil, distinct from the zero value
//   - Maps render as key=value pairs sorted by key
//   - Structs render exported fields as name:value pairs sorted by name
//   - Values implementing encoding.TextMarshaler, such as time.Time, use their text form
//   - Function pointers use %p and are stable only within a process
//
// Two parameter values that compare equal produce the same key, and any
// differing argument produces a different key.
package cache
