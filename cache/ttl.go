package cache

import "time"

// Operation names used as key namespaces and TTL policy keys.
const (
	OpFetchListings     = "fetch_listings"
	OpFetchListingByID  = "fetch_listing_by_id"
	OpFetchFeatured     = "fetch_featured"
	OpSearchWithFilters = "search_with_filters"
	OpFetchReviews      = "fetch_reviews"
	OpFetchBookmarks    = "fetch_bookmarks"
)

// DefaultTTL applies to operations without an explicit TTL.
const DefaultTTL = 5 * time.Minute

// TTLPolicy maps operation names to cache lifetimes.
type TTLPolicy struct {
	Default    time.Duration
	Operations map[string]time.Duration
}

// DefaultTTLPolicy returns the lifetimes tuned per operation: featured
// listings change rarely, filtered searches often.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Default: DefaultTTL,
		Operations: map[string]time.Duration{
			OpFetchListings:     2 * time.Minute,
			OpFetchListingByID:  2 * time.Minute,
			OpFetchFeatured:     10 * time.Minute,
			OpSearchWithFilters: time.Minute,
			OpFetchReviews:      5 * time.Minute,
			OpFetchBookmarks:    time.Minute,
		},
	}
}

// TTL returns the lifetime for operation, falling back to Default and then
// to DefaultTTL.
func (p TTLPolicy) TTL(operation string) time.Duration {
	if ttl, ok := p.Operations[operation]; ok && ttl > 0 {
		return ttl
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultTTL
}

// Merge returns a copy of p with the non-zero entries of overrides applied.
func (p TTLPolicy) Merge(defaultTTL time.Duration, overrides map[string]time.Duration) TTLPolicy {
	out := TTLPolicy{
		Default:    p.Default,
		Operations: make(map[string]time.Duration, len(p.Operations)+len(overrides)),
	}
	for op, ttl := range p.Operations {
		out.Operations[op] = ttl
	}
	for op, ttl := range overrides {
		if ttl > 0 {
			out.Operations[op] = ttl
		}
	}
	if defaultTTL > 0 {
		out.Default = defaultTTL
	}
	return out
}
