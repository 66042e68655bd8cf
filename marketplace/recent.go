package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-carmarket/guard"
	"github.com/goliatone/go-carmarket/kvstore"
	"github.com/goliatone/go-carmarket/remote"
)

const (
	RecentSearchesKey = "recent_searches"
	MaxRecentSearches = 10
)

// RecentSearches keeps the last search terms in a key-value store as one
// JSON array, most recent first.
type RecentSearches struct {
	kv    kvstore.Store
	owner string
}

func NewRecentSearches(kv kvstore.Store) *RecentSearches {
	return &RecentSearches{kv: kv}
}

// For returns the list kept for owner in the same store.
func (r *RecentSearches) For(owner string) *RecentSearches {
	return &RecentSearches{kv: r.kv, owner: owner}
}

func (r *RecentSearches) key() string {
	if r.owner == "" {
		return RecentSearchesKey
	}
	return RecentSearchesKey + ":" + r.owner
}

// List returns the stored terms. A missing or unreadable entry is an empty list.
func (r *RecentSearches) List(ctx context.Context) ([]string, error) {
	raw, ok, err := r.kv.GetItem(ctx, r.key())
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []string{}, nil
	}

	var terms []string
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return []string{}, nil
	}
	return nonNil(terms), nil
}

// Add moves term to the front, dropping any earlier entry that differs only
// in case, and keeps at most MaxRecentSearches terms.
func (r *RecentSearches) Add(ctx context.Context, term string) error {
	term = guard.SanitizeSearchText(term)
	if term == "" {
		return nil
	}

	terms, err := r.List(ctx)
	if err != nil {
		return err
	}

	next := make([]string, 0, MaxRecentSearches)
	next = append(next, term)
	for _, existing := range terms {
		if len(next) == MaxRecentSearches {
			break
		}
		if strings.EqualFold(existing, term) {
			continue
		}
		next = append(next, existing)
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("recent searches: encode: %w", err)
	}
	return r.kv.SetItem(ctx, r.key(), string(raw))
}

func (r *RecentSearches) Clear(ctx context.Context) error {
	return r.kv.RemoveItem(ctx, r.key())
}

// RecentSearches returns the recorded search terms, or an empty list when
// the Service was built without a recent searches store. Calls scoped with
// remote.WithAccessToken see only the signed-in user's terms.
func (s *Service) RecentSearches(ctx context.Context) ([]string, error) {
	recent := s.recentFor(ctx)
	if recent == nil {
		return []string{}, nil
	}
	return recent.List(ctx)
}

func (s *Service) recordSearch(ctx context.Context, term string) {
	if term == "" {
		return
	}
	recent := s.recentFor(ctx)
	if recent == nil {
		return
	}
	if err := recent.Add(ctx, term); err != nil {
		s.opts.logger.Warn("recording recent search failed", slog.Any("error", err))
	}
}

// recentFor picks the list for ctx. Unscoped calls share the device list and
// anonymous scoped calls get none.
func (s *Service) recentFor(ctx context.Context) *RecentSearches {
	if s.opts.recent == nil {
		return nil
	}
	if _, scoped := remote.AccessToken(ctx); !scoped {
		return s.opts.recent
	}

	user, err := s.client.Auth().CurrentUser(ctx)
	if err != nil {
		s.opts.logger.Warn("resolving recent searches owner failed", slog.Any("error", err))
		return nil
	}
	if user == nil {
		return nil
	}
	return s.opts.recent.For(user.ID)
}
