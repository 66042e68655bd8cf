package testsupport

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-carmarket/marketplace"
	"github.com/goliatone/go-carmarket/remote/bunclient"
)

//go:embed testdata/marketplace.json
var marketplaceFixtures []byte

// MarketplaceFixtures returns a fresh copy of the embedded dealers,
// listings and reviews. Active listings, newest first: listing-5, listing-3,
// listing-2, listing-1. listing-4 is sold.
func MarketplaceFixtures(t testing.TB) bunclient.Fixtures {
	t.Helper()

	var fixtures bunclient.Fixtures
	if err := json.Unmarshal(marketplaceFixtures, &fixtures); err != nil {
		t.Fatalf("failed to unmarshal embedded marketplace fixtures: %v", err)
	}
	return fixtures
}

// Listing returns the fixture listing with id.
func Listing(t testing.TB, id string) marketplace.Listing {
	t.Helper()

	for _, listing := range MarketplaceFixtures(t).Listings {
		if listing.ID == id {
			return listing
		}
	}
	t.Fatalf("no fixture listing %q", id)
	return marketplace.Listing{}
}

// LoadFixture loads test data from a file relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads a JSON fixture file and unmarshals it into dest.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// WriteFixtureJSON writes value as indented JSON to a file in a temporary
// directory and returns its path. Used to feed seed and config files to
// commands under test.
func WriteFixtureJSON(t testing.TB, name string, value any) string {
	t.Helper()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal JSON fixture %s: %v", name, err)
	}
	return WriteFile(t, name, data)
}

// WriteFile writes data to name inside a per-test temporary directory.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}
