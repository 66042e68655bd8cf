package marketplace

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-carmarket/cache"
	"github.com/goliatone/go-carmarket/failure"
	"github.com/goliatone/go-carmarket/guard"
	"github.com/goliatone/go-carmarket/remote"
)

// Cache tags by collection.
const (
	TagListings  = "listings"
	TagReviews   = "reviews"
	TagBookmarks = "bookmarks"
)

// FetchListings returns a page of active listings, newest first. A non-empty
// search matches make, model or description, case-insensitively.
func (s *Service) FetchListings(ctx context.Context, page, limit int, search string) ([]Listing, error) {
	if err := guard.ValidatePagination(page, limit); err != nil {
		return nil, err
	}
	search = guard.SanitizeSearchText(search)
	s.recordSearch(ctx, search)

	listings, _, err := read(ctx, s, cache.OpFetchListings, []any{page, limit, search}, []string{TagListings},
		func(ctx context.Context) ([]Listing, bool, error) {
			q := activeListings()
			if search != "" {
				pattern := remote.ContainsPattern(search)
				q.Or(
					remote.Filter{Column: "make", Op: remote.OpILike, Value: pattern},
					remote.Filter{Column: "model", Op: remote.OpILike, Value: pattern},
					remote.Filter{Column: "description", Op: remote.OpILike, Value: pattern},
				)
			}
			q.Order("created_at", false).Order("id", true)
			q.Range(page*limit, page*limit+limit-1)
			return selectAll[Listing](ctx, s.client, q)
		})
	return listResult(listings, err)
}

// FetchListingByID returns the listing with its dealer, or nil when no such
// listing exists.
func (s *Service) FetchListingByID(ctx context.Context, id string) (*Listing, error) {
	id = strings.TrimSpace(id)
	if err := guard.ValidateID("id", id); err != nil {
		return nil, err
	}

	listing, _, err := read(ctx, s, cache.OpFetchListingByID, []any{id}, []string{TagListings},
		func(ctx context.Context) (*Listing, bool, error) {
			q := remote.From(TableListings).With(RelationDealer).Eq("id", id)
			return selectOne[Listing](ctx, s.client, q)
		})
	if err != nil || listing == nil {
		return nil, err
	}
	copied := listing.clone()
	return &copied, nil
}

// FetchFeatured returns active featured listings, most viewed first and then
// newest first.
func (s *Service) FetchFeatured(ctx context.Context) ([]Listing, error) {
	limit := s.opts.featuredLimit

	listings, _, err := read(ctx, s, cache.OpFetchFeatured, nil, []string{TagListings},
		func(ctx context.Context) ([]Listing, bool, error) {
			q := activeListings().Eq("featured", true).
				Order("views", false).
				Order("created_at", false).
				Order("id", true).
				Range(0, limit-1)
			return selectAll[Listing](ctx, s.client, q)
		})
	return listResult(listings, err)
}

// SearchWithFilters runs a structured search. Filters are validated first;
// text filters are sanitized and matched as case-insensitive substrings.
func (s *Service) SearchWithFilters(ctx context.Context, filters SearchFilters) ([]Listing, error) {
	filters = filters.normalize()
	if err := filters.Validate(s.opts.now()); err != nil {
		return nil, err
	}

	listings, _, err := read(ctx, s, cache.OpSearchWithFilters, []any{filters}, []string{TagListings},
		func(ctx context.Context) ([]Listing, bool, error) {
			return selectAll[Listing](ctx, s.client, filters.query())
		})
	return listResult(listings, err)
}

// FetchReviews returns a page of reviews for a listing, newest first.
func (s *Service) FetchReviews(ctx context.Context, listingID string, page, limit int) ([]Review, error) {
	listingID = strings.TrimSpace(listingID)
	if err := guard.ValidateID("listingId", listingID); err != nil {
		return nil, err
	}
	if err := guard.ValidatePagination(page, limit); err != nil {
		return nil, err
	}

	reviews, _, err := read(ctx, s, cache.OpFetchReviews, []any{listingID, page, limit}, []string{TagReviews},
		func(ctx context.Context) ([]Review, bool, error) {
			q := remote.From(TableReviews).
				Eq("listing_id", listingID).
				Order("created_at", false).
				Order("id", true).
				Range(page*limit, page*limit+limit-1)
			return selectAll[Review](ctx, s.client, q)
		})
	return listResult(reviews, err)
}

// CreateListing validates and inserts a new active listing.
func (s *Service) CreateListing(ctx context.Context, in NewListing) (*Listing, error) {
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	if err := in.Validate(s.opts.now()); err != nil {
		return nil, err
	}

	now := s.opts.now().UTC()
	listing := &Listing{
		ID:           uuid.NewString(),
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		Price:        in.Price,
		Mileage:      in.Mileage,
		Condition:    in.Condition,
		FuelType:     in.FuelType,
		Transmission: in.Transmission,
		BodyType:     in.BodyType,
		Location:     strings.TrimSpace(in.Location),
		Description:  strings.TrimSpace(in.Description),
		Images:       nonNil(in.Images),
		Status:       StatusActive,
		Featured:     in.Featured,
		DealerID:     in.DealerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.client.Insert(ctx, TableListings, listing); err != nil {
		return nil, failure.Normalize(err)
	}
	s.invalidate(ctx, TagListings)
	return listing, nil
}

func activeListings() *remote.Query {
	return remote.From(TableListings).With(RelationDealer).Eq("status", StatusActive)
}

func selectAll[T any](ctx context.Context, client remote.Client, q *remote.Query) ([]T, bool, error) {
	rows := []T{}
	if err := client.Select(ctx, q, &rows); err != nil {
		return nil, false, err
	}
	return nonNil(rows), true, nil
}

// selectOne reports found=false for a clean no-rows answer.
func selectOne[T any](ctx context.Context, client remote.Client, q *remote.Query) (*T, bool, error) {
	row := new(T)
	if err := client.SelectOne(ctx, q, row); err != nil {
		if remote.IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row, true, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// listResult hands out a copy of items. In-process stores keep the value
// itself, so the copy keeps later readers from seeing caller modifications.
func listResult[T any](items []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return cloneAll(nonNil(items)), nil
}

type cloner[T any] interface {
	clone() T
}

func cloneAll[T any](items []T) []T {
	out := slices.Clone(items)
	for i := range out {
		if c, ok := any(out[i]).(cloner[T]); ok {
			out[i] = c.clone()
		}
	}
	return out
}
