package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-carmarket/remote/bunclient"
)

// SQLiteConfig returns a bunclient configuration for a private in-memory
// database, with the cheapest bcrypt cost.
func SQLiteConfig() bunclient.Config {
	return bunclient.Config{
		Driver:     bunclient.DriverSQLite,
		DSN:        fmt.Sprintf("file:carmarket-%s?mode=memory&cache=shared", uuid.NewString()),
		BcryptCost: bcrypt.MinCost,
		SessionTTL: time.Hour,
	}
}

// OpenSQLite opens a private in-memory database with the schema created
// and, when seed is true, the embedded fixtures loaded. The client is closed
// when the test ends.
func OpenSQLite(t testing.TB, seed bool) *bunclient.Client {
	t.Helper()

	ctx := context.Background()
	client, err := bunclient.Open(ctx, SQLiteConfig())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := bunclient.CreateSchema(ctx, client.DB()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if seed {
		if err := bunclient.Seed(ctx, client.DB(), MarketplaceFixtures(t)); err != nil {
			t.Fatalf("failed to seed fixtures: %v", err)
		}
	}
	return client
}
