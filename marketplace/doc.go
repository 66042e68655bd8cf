// Package marketplace is the cached query facade of the car marketplace.
//
// # Overview
//
// A Service sits in front of a remote.Client. Each read follows the same
// sequence:
//
//	validate -> derive key -> cache check -> connectivity probe -> query -> cache store
//
// Invalid input fails with a VALIDATION_ERROR before any I/O. A cache hit
// returns without touching the remote service. On a miss the result is
// stored with the TTL configured for the operation. Every failure is
// returned as a *failure.Error.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(cache.DefaultTTL)
//	svc := marketplace.New(client, store,
//		marketplace.WithTTLPolicy(policy),
//		marketplace.WithLogger(logger),
//	)
//
//	listings, err := svc.FetchListings(ctx, 0, 20, "toyota")
//	listing, err := svc.FetchListingByID(ctx, id) // nil, nil when missing
//
// # Staleness
//
// Writes do not touch cached reads by default: a new listing appears in
// FetchListings once the cached page expires. WithInvalidateOnWrite drops the
// reads of the written collection instead. SignOut always clears the whole
// cache because cached reads are not partitioned by user.
//
// # Cache Tags
//
// Reads register their keys under the collection they read ("listings",
// "reviews", "bookmarks"). Extra tags can be attached per call:
//
//	ctx = marketplace.WithCacheTags(ctx, "dealer:"+dealerID)
//	_, _ = svc.FetchListings(ctx, 0, 20, "")
//	_ = svc.InvalidateTag(ctx, "dealer:"+dealerID)
package marketplace
