package marketplace

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-carmarket/cache"
	"github.com/goliatone/go-carmarket/failure"
	"github.com/goliatone/go-carmarket/guard"
	"github.com/goliatone/go-carmarket/remote"
)

// AddBookmark saves an item for the signed-in user. Bookmarking the same
// item twice fails with DUPLICATE_ERROR.
func (s *Service) AddBookmark(ctx context.Context, itemType, itemID string) (*Bookmark, error) {
	itemType, itemID = strings.ToLower(strings.TrimSpace(itemType)), strings.TrimSpace(itemID)
	if err := guard.ValidateBookmarkItem(itemType, itemID); err != nil {
		return nil, err
	}
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	bookmark := &Bookmark{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ItemType:  itemType,
		ItemID:    itemID,
		CreatedAt: s.opts.now().UTC(),
	}
	if err := s.client.Insert(ctx, TableBookmarks, bookmark); err != nil {
		return nil, failure.Normalize(err)
	}
	s.invalidate(ctx, TagBookmarks)
	return bookmark, nil
}

// RemoveBookmark deletes a saved item. Removing an item that is not
// bookmarked is not an error.
func (s *Service) RemoveBookmark(ctx context.Context, itemType, itemID string) error {
	itemType, itemID = strings.ToLower(strings.TrimSpace(itemType)), strings.TrimSpace(itemID)
	if err := guard.ValidateBookmarkItem(itemType, itemID); err != nil {
		return err
	}
	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}

	q := remote.From(TableBookmarks).
		Eq("user_id", user.ID).
		Eq("item_type", itemType).
		Eq("item_id", itemID)
	if _, err := s.client.Delete(ctx, q); err != nil {
		return failure.Normalize(err)
	}
	s.invalidate(ctx, TagBookmarks)
	return nil
}

// FetchBookmarks returns the signed-in user's bookmarks, newest first.
func (s *Service) FetchBookmarks(ctx context.Context) ([]Bookmark, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	bookmarks, _, err := read(ctx, s, cache.OpFetchBookmarks, []any{user.ID}, []string{TagBookmarks},
		func(ctx context.Context) ([]Bookmark, bool, error) {
			q := remote.From(TableBookmarks).
				Eq("user_id", user.ID).
				Order("created_at", false).
				Order("id", true)
			return selectAll[Bookmark](ctx, s.client, q)
		})
	return listResult(bookmarks, err)
}
