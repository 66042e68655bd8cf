package bunclient

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-carmarket/marketplace"
)

// Models lists every table the client reads or writes, in creation order.
func Models() []any {
	return []any{
		(*marketplace.Dealer)(nil),
		(*marketplace.Listing)(nil),
		(*marketplace.Review)(nil),
		(*marketplace.Bookmark)(nil),
		(*UserRecord)(nil),
		(*SessionRecord)(nil),
	}
}

// CreateSchema creates any missing tables.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("bunclient: create table for %T: %w", model, err)
		}
	}
	return nil
}

// Fixtures is seed data loaded by Seed.
type Fixtures struct {
	Dealers  []marketplace.Dealer  `json:"dealers"`
	Listings []marketplace.Listing `json:"listings"`
	Reviews  []marketplace.Review  `json:"reviews"`
}

// Seed inserts fixtures in a single transaction, skipping rows whose primary
// key already exists.
func Seed(ctx context.Context, db *bun.DB, fixtures Fixtures) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(fixtures.Dealers) > 0 {
			if _, err := tx.NewInsert().Model(&fixtures.Dealers).Ignore().Exec(ctx); err != nil {
				return fmt.Errorf("bunclient: seed dealers: %w", translateError(err))
			}
		}
		if len(fixtures.Listings) > 0 {
			if _, err := tx.NewInsert().Model(&fixtures.Listings).Ignore().Exec(ctx); err != nil {
				return fmt.Errorf("bunclient: seed listings: %w", translateError(err))
			}
		}
		if len(fixtures.Reviews) > 0 {
			if _, err := tx.NewInsert().Model(&fixtures.Reviews).Ignore().Exec(ctx); err != nil {
				return fmt.Errorf("bunclient: seed reviews: %w", translateError(err))
			}
		}
		return nil
	})
}
