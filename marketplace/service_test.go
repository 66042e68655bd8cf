package marketplace_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-carmarket/cache"
	"github.com/goliatone/go-carmarket/failure"
	"github.com/goliatone/go-carmarket/marketplace"
	"github.com/goliatone/go-carmarket/pkg/testsupport"
	"github.com/goliatone/go-carmarket/remote"
)

type harness struct {
	svc   *marketplace.Service
	fake  *testsupport.FakeClient
	store cache.Store
	clock *testsupport.Clock
}

func newHarness(t *testing.T, opts ...marketplace.Option) *harness {
	t.Helper()

	clock := testsupport.NewClock()
	fake := testsupport.NewFakeClient()
	store := cache.NewMemoryStore(cache.DefaultTTL, cache.WithClock(clock.Now))
	opts = append([]marketplace.Option{marketplace.WithClock(clock.Now)}, opts...)

	return &harness{
		svc:   marketplace.New(fake, store, opts...),
		fake:  fake,
		store: store,
		clock: clock,
	}
}

func listingsHandler(rows ...marketplace.Listing) testsupport.SelectHandler {
	return func(*remote.Query) (any, error) {
		return append([]marketplace.Listing{}, rows...), nil
	}
}

func requireKind(t *testing.T, err error, kind failure.Kind) *failure.Error {
	t.Helper()

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, kind, fe.Kind, "error: %v", err)
	return fe
}

func TestFetchListings_CacheHit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.OnSelect(marketplace.TableListings, listingsHandler(testsupport.Listing(t, "listing-1")))

	first, err := h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)
	second, err := h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, h.fake.Calls("select", marketplace.TableListings))
}

func TestFetchListings_ExpiredEntryRefetches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.OnSelect(marketplace.TableListings, listingsHandler(testsupport.Listing(t, "listing-1")))

	_, err := h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	_, err = h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Calls("select", marketplace.TableListings), "entry is valid up to its ttl")

	h.clock.Advance(time.Second)
	_, err = h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Calls("select", marketplace.TableListings))
}

func TestFetchListings_PagesUseDistinctKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.OnSelect(marketplace.TableListings, func(q *remote.Query) (any, error) {
		id := "listing-1"
		if q.Offset > 0 {
			id = "listing-2"
		}
		return []marketplace.Listing{testsupport.Listing(t, id)}, nil
	})

	page0, err := h.svc.FetchListings(ctx, 0, 1, "")
	require.NoError(t, err)
	page1, err := h.svc.FetchListings(ctx, 1, 1, "")
	require.NoError(t, err)

	require.Equal(t, "listing-1", page0[0].ID)
	require.Equal(t, "listing-2", page1[0].ID)
	require.Equal(t, 2, h.fake.Calls("select", marketplace.TableListings))

	stats, err := h.svc.CacheStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Size)
}

func TestFetchListings_InvalidPagination(t *testing.T) {
	tests := []struct {
		name   string
		page   int
		limit  int
		detail string
	}{
		{name: "zero limit", page: 0, limit: 0, detail: "limit must be between 1 and 100"},
		{name: "limit too large", page: 0, limit: 101, detail: "limit must be between 1 and 100"},
		{name: "negative page", page: -1, limit: 10, detail: "page must be a non-negative integer"},
		{name: "page offset overflows", page: 1 << 62, limit: 4, detail: "page is too large for the requested limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			listings, err := h.svc.FetchListings(context.Background(), tt.page, tt.limit, "")
			require.Nil(t, listings)
			fe := requireKind(t, err, failure.KindValidation)
			require.Contains(t, fe.Detail, tt.detail)
			require.Zero(t, h.fake.RemoteCalls())
			require.Zero(t, h.fake.Calls("ping", ""))
		})
	}
}

func TestFetchListings_SearchIsSanitized(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.OnSelect(marketplace.TableListings, listingsHandler(testsupport.Listing(t, "listing-1")))

	_, err := h.svc.FetchListings(ctx, 0, 10, "  <Toyota>; ")
	require.NoError(t, err)
	_, err = h.svc.FetchListings(ctx, 0, 10, "Toyota")
	require.NoError(t, err)

	require.Equal(t, 1, h.fake.Calls("select", marketplace.TableListings), "sanitized text shares the key")

	q := h.fake.LastQuery()
	require.Len(t, q.AnyOf, 3)
	for _, f := range q.AnyOf {
		require.Equal(t, remote.OpILike, f.Op)
		require.Equal(t, "%Toyota%", f.Value)
	}
	require.Contains(t, q.Filters, remote.Filter{Column: "status", Op: remote.OpEq, Value: marketplace.StatusActive})
	require.Equal(t, []string{marketplace.RelationDealer}, q.Expand)
	require.Equal(t, remote.Order{Column: "created_at", Ascending: false}, q.Orders[0])
}

func TestFetchListings_ZeroMatchesIsEmptySlice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	listings, err := h.svc.FetchListings(ctx, 0, 10, "nothing matches")
	require.NoError(t, err)
	require.NotNil(t, listings)
	require.Empty(t, listings)

	featured, err := h.svc.FetchFeatured(ctx)
	require.NoError(t, err)
	require.NotNil(t, featured)

	results, err := h.svc.SearchWithFilters(ctx, marketplace.SearchFilters{Make: "Lada"})
	require.NoError(t, err)
	require.NotNil(t, results)
}

func TestFetchListings_CachedResultSurvivesRemoteFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var mu sync.Mutex
	calls := 0
	h.fake.OnSelect(marketplace.TableListings, func(*remote.Query) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls > 1 {
			return nil, errors.New("remote unavailable")
		}
		return []marketplace.Listing{testsupport.Listing(t, "listing-1")}, nil
	})

	first, err := h.svc.FetchListings(ctx, 0, 10, "Toyota")
	require.NoError(t, err)
	second, err := h.svc.FetchListings(ctx, 0, 10, "Toyota")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Equal(t, first, second)
	require.Equal(t, 1, h.fake.Calls("select", marketplace.TableListings))
}

func TestFetchListings_RemoteFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind failure.Kind
	}{
		{name: "network", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, kind: failure.KindNetwork},
		{name: "permission", err: &remote.Error{Code: "42501", Message: "permission denied"}, kind: failure.KindAuth},
		{name: "unknown", err: errors.New("boom"), kind: failure.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			h.fake.OnSelect(marketplace.TableListings, func(*remote.Query) (any, error) {
				return nil, tt.err
			})

			listings, err := h.svc.FetchListings(ctx, 0, 10, "")
			require.Nil(t, listings)
			requireKind(t, err, tt.kind)

			stats, err := h.svc.CacheStats(ctx)
			require.NoError(t, err)
			require.Zero(t, stats.Size, "failures are not cached")
		})
	}
}

func TestRead_ProbeFailureSkipsQuery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.SetPingError(errors.New("offline"))

	_, err := h.svc.FetchFeatured(ctx)
	requireKind(t, err, failure.KindConnection)
	require.Zero(t, h.fake.RemoteCalls())

	h.fake.SetPingError(nil)
	_, err = h.svc.FetchFeatured(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.RemoteCalls())
}

func TestRead_ProbeCanBeDisabled(t *testing.T) {
	h := newHarness(t, marketplace.WithConnectivityProbe(false))
	h.fake.SetPingError(errors.New("offline"))

	_, err := h.svc.FetchFeatured(context.Background())
	require.NoError(t, err)
	require.Zero(t, h.fake.Calls("ping", ""))
}

func TestFetchListingByID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	listing, err := h.svc.FetchListingByID(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, listing)

	_, err = h.svc.FetchListingByID(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Calls("select_one", marketplace.TableListings), "not found is not cached")

	want := testsupport.Listing(t, "listing-3")
	h.fake.OnSelectOne(marketplace.TableListings, func(q *remote.Query) (any, error) {
		require.Contains(t, q.Filters, remote.Filter{Column: "id", Op: remote.OpEq, Value: "listing-3"})
		return &want, nil
	})

	listing, err = h.svc.FetchListingByID(ctx, " listing-3 ")
	require.NoError(t, err)
	require.Equal(t, &want, listing)

	listing, err = h.svc.FetchListingByID(ctx, "listing-3")
	require.NoError(t, err)
	require.Equal(t, "listing-3", listing.ID)
	require.Equal(t, 3, h.fake.Calls("select_one", marketplace.TableListings))
}

func TestCachedResultsAreCopies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	row := testsupport.Listing(t, "listing-1")
	row.Images = []string{"front.jpg"}
	row.Dealer = &marketplace.Dealer{ID: row.DealerID, Name: "Harbor Motors"}
	h.fake.OnSelect(marketplace.TableListings, listingsHandler(row))
	h.fake.OnSelectOne(marketplace.TableListings, func(*remote.Query) (any, error) {
		single := row
		return &single, nil
	})

	first, err := h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)
	first[0].Make = "MUTATED"
	first[0].Images[0] = "MUTATED"
	first[0].Dealer.Name = "MUTATED"

	second, err := h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Calls("select", marketplace.TableListings))
	require.Equal(t, row.Make, second[0].Make)
	require.Equal(t, "front.jpg", second[0].Images[0])
	require.Equal(t, "Harbor Motors", second[0].Dealer.Name)

	one, err := h.svc.FetchListingByID(ctx, "listing-1")
	require.NoError(t, err)
	one.Make = "MUTATED"
	one.Dealer.Name = "MUTATED"

	again, err := h.svc.FetchListingByID(ctx, "listing-1")
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Calls("select_one", marketplace.TableListings))
	require.Equal(t, row.Make, again.Make)
	require.Equal(t, "Harbor Motors", again.Dealer.Name)
}

func TestFetchListingByID_Failures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.FetchListingByID(ctx, "  ")
	requireKind(t, err, failure.KindValidation)
	require.Zero(t, h.fake.RemoteCalls())

	h.fake.OnSelectOne(marketplace.TableListings, func(*remote.Query) (any, error) {
		return nil, &remote.Error{Code: "08006", Message: "connection failure"}
	})
	listing, err := h.svc.FetchListingByID(ctx, "listing-1")
	require.Nil(t, listing)
	requireKind(t, err, failure.KindConnection)
}

func TestFetchFeatured_Query(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, marketplace.WithFeaturedLimit(3))

	_, err := h.svc.FetchFeatured(ctx)
	require.NoError(t, err)

	q := h.fake.LastQuery()
	require.Contains(t, q.Filters, remote.Filter{Column: "featured", Op: remote.OpEq, Value: true})
	require.Contains(t, q.Filters, remote.Filter{Column: "status", Op: remote.OpEq, Value: marketplace.StatusActive})
	require.Equal(t, []remote.Order{
		{Column: "views", Ascending: false},
		{Column: "created_at", Ascending: false},
		{Column: "id", Ascending: true},
	}, q.Orders)
	require.Equal(t, 3, q.Limit)
	require.Zero(t, q.Offset)
}

func TestFetchReviews(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.OnSelect(marketplace.TableReviews, func(q *remote.Query) (any, error) {
		return testsupport.MarketplaceFixtures(t).Reviews[:2], nil
	})

	reviews, err := h.svc.FetchReviews(ctx, "listing-1", 0, 5)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	_, err = h.svc.FetchReviews(ctx, "listing-1", 0, 5)
	require.NoError(t, err)
	require.Equal(t, 1, h.fake.Calls("select", marketplace.TableReviews))

	_, err = h.svc.FetchReviews(ctx, "", 0, 5)
	requireKind(t, err, failure.KindValidation)
}

func TestSignOut_ClearsCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.OnSelect(marketplace.TableListings, listingsHandler(testsupport.Listing(t, "listing-1")))
	h.fake.FakeAuth().Register("ann@example.com", "secret1")

	_, err := h.svc.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = h.svc.FetchListings(ctx, 0, 10, "")
	require.NoError(t, err)
	_, err = h.svc.FetchFeatured(ctx)
	require.NoError(t, err)

	stats, err := h.svc.CacheStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Size)

	require.NoError(t, h.svc.SignOut(ctx))

	stats, err = h.svc.CacheStats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Size)
	require.Empty(t, stats.Keys)

	user, err := h.svc.CurrentUser(ctx)
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestSignOut_ClearsCacheWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.fake.FakeAuth().SignOutErr = errors.New("token revoke failed")

	_, err := h.svc.FetchFeatured(ctx)
	require.NoError(t, err)

	err = h.svc.SignOut(ctx)
	requireKind(t, err, failure.KindUnknown)

	stats, err := h.svc.CacheStats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Size)
}

func TestSignInAndSignUp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.SignUp(ctx, "not-an-email", "secret1")
	fe := requireKind(t, err, failure.KindValidation)
	require.Contains(t, fe.Detail, "email must be a valid email address")

	_, err = h.svc.SignUp(ctx, "ann@example.com", "short")
	fe = requireKind(t, err, failure.KindValidation)
	require.Contains(t, fe.Detail, "password must be at least 6 characters")

	session, err := h.svc.SignUp(ctx, " ann@example.com ", "secret1")
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", session.User.Email)

	_, err = h.svc.SignUp(ctx, "ann@example.com", "secret1")
	requireKind(t, err, failure.KindDuplicate)

	_, err = h.svc.SignIn(ctx, "ann@example.com", "wrong-password")
	requireKind(t, err, failure.KindAuth)

	_, err = h.svc.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	user, err := h.svc.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", user.Email)
}

func TestClearCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.FetchFeatured(ctx)
	require.NoError(t, err)
	require.NoError(t, h.svc.ClearCache(ctx))

	_, err = h.svc.FetchFeatured(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Calls("select", marketplace.TableListings))
}

func TestTTLPolicyIsApplied(t *testing.T) {
	ctx := context.Background()
	policy := cache.DefaultTTLPolicy().Merge(0, map[string]time.Duration{cache.OpFetchFeatured: time.Second})
	h := newHarness(t, marketplace.WithTTLPolicy(policy))

	_, err := h.svc.FetchFeatured(ctx)
	require.NoError(t, err)

	key := cache.NewDefaultKeySerializer().SerializeKey(cache.OpFetchFeatured)
	entry, ok, err := h.store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Second, entry.TTL)

	h.clock.Advance(2 * time.Second)
	_, err = h.svc.FetchFeatured(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, h.fake.Calls("select", marketplace.TableListings))
}

func TestConcurrentMissesQueryIndependently(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var entered sync.WaitGroup
	entered.Add(2)
	h.fake.OnSelect(marketplace.TableListings, func(*remote.Query) (any, error) {
		entered.Done()
		entered.Wait()
		return []marketplace.Listing{}, nil
	})

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.FetchFeatured(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 2, h.fake.Calls("select", marketplace.TableListings))
}

func TestSingleFlightSharesRemoteCall(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, marketplace.WithSingleFlight(true))

	release := make(chan struct{})
	h.fake.OnSelect(marketplace.TableListings, func(*remote.Query) (any, error) {
		<-release
		return []marketplace.Listing{testsupport.Listing(t, "listing-3")}, nil
	})

	const callers = 4
	results := make([][]marketplace.Listing, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listings, err := h.svc.FetchFeatured(ctx)
			assert.NoError(t, err)
			results[i] = listings
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, 1, h.fake.Calls("select", marketplace.TableListings))
	for _, listings := range results {
		require.Len(t, listings, 1)
		require.Equal(t, "listing-3", listings[0].ID)
	}
}

// blockingClient holds Select until released and then honours the query
// context, like a database driver would.
type blockingClient struct {
	*testsupport.FakeClient
	entered chan struct{}
	release chan struct{}
}

func (c *blockingClient) Select(ctx context.Context, q *remote.Query, dest any) error {
	select {
	case c.entered <- struct{}{}:
	default:
	}
	<-c.release
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.FakeClient.Select(ctx, q, dest)
}

func TestSingleFlightSurvivesCancelledCaller(t *testing.T) {
	fake := testsupport.NewFakeClient()
	fake.OnSelect(marketplace.TableListings, listingsHandler(testsupport.Listing(t, "listing-3")))
	client := &blockingClient{
		FakeClient: fake,
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	svc := marketplace.New(client, cache.NewMemoryStore(cache.DefaultTTL), marketplace.WithSingleFlight(true))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.FetchFeatured(first)
		firstErr <- err
	}()
	<-client.entered

	type result struct {
		listings []marketplace.Listing
		err      error
	}
	second := make(chan result, 1)
	go func() {
		listings, err := svc.FetchFeatured(context.Background())
		second <- result{listings, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	requireKind(t, <-firstErr, failure.KindNetwork)

	close(client.release)
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.listings, 1)
	require.Equal(t, "listing-3", res.listings[0].ID)
	require.Equal(t, 1, fake.Calls("select", marketplace.TableListings))
}
