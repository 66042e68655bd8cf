package marketplace

import (
	"context"
	"strings"
	"unicode"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-carmarket/failure"
)

type cacheTagsContextKey struct{}

// WithCacheTags attaches additional cache tags to the context. Reads made
// with the context register their cache keys under the tags, so that
// InvalidateTag can drop them later.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	existing := cacheTagsFromContext(ctx)
	combined := dedupeTags(append(existing, tags...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// InvalidateTag deletes every cached read registered under tag.
func (s *Service) InvalidateTag(ctx context.Context, tag string) error {
	keys := s.tags.take(normalizeTag(tag))
	if len(keys) == 0 {
		return nil
	}

	s.opts.metrics.ObserveClear("tag:" + normalizeTag(tag))
	var firstErr error
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return failure.Normalize(firstErr)
	}
	return nil
}

// tagRegistry tracks which cache keys were stored under each tag.
type tagRegistry struct {
	keys *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
}

func newTagRegistry() *tagRegistry {
	return &tagRegistry{keys: xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]]()}
}

func (r *tagRegistry) register(key string, tags ...string) {
	for _, tag := range dedupeTags(tags) {
		set, _ := r.keys.LoadOrCompute(tag, func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		set.Store(key, struct{}{})
	}
}

// take removes tag and returns the keys it held.
func (r *tagRegistry) take(tag string) []string {
	set, ok := r.keys.LoadAndDelete(tag)
	if !ok {
		return nil
	}
	keys := make([]string, 0, set.Size())
	set.Range(func(key string, _ struct{}) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func (r *tagRegistry) reset() {
	r.keys.Clear()
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = normalizeTag(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// normalizeTag lets callers tag with type or collection names in any case:
// "Listing", "listing" and "LISTING" are one tag.
func normalizeTag(tag string) string {
	return toSnake(strings.TrimSpace(tag))
}

// toSnake converts the provided string to snake_case using ASCII-aware rules,
// stripping punctuation so tags stay usable as key fragments.
func toSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || (nextLower && unicode.IsUpper(prev))) && !lastUnderscore {
					b.WriteByte('_')
					lastUnderscore = true
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false

		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}
