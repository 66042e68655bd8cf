package testsupport

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-carmarket/remote"
)

// SelectHandler answers a read. The returned value is assigned to the
// destination, so it must have the destination's element type: a slice of
// records for Select and a single record for SelectOne.
type SelectHandler func(q *remote.Query) (any, error)

// FakeClient is a scripted remote.Client that counts every call.
type FakeClient struct {
	mu sync.Mutex

	selects    map[string]SelectHandler
	selectOnes map[string]SelectHandler
	inserts    map[string]func(row any) error
	deletes    map[string]func(q *remote.Query) (int64, error)
	pingErr    error

	queries  []*remote.Query
	inserted map[string][]any
	calls    map[string]int

	auth *FakeAuth
}

var _ remote.Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{
		selects:    make(map[string]SelectHandler),
		selectOnes: make(map[string]SelectHandler),
		inserts:    make(map[string]func(any) error),
		deletes:    make(map[string]func(*remote.Query) (int64, error)),
		inserted:   make(map[string][]any),
		calls:      make(map[string]int),
		auth:       NewFakeAuth(),
	}
}

// OnSelect scripts Select on table. Without a handler Select matches nothing.
func (f *FakeClient) OnSelect(table string, h SelectHandler) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects[table] = h
	return f
}

// OnSelectOne scripts SelectOne on table. Without a handler SelectOne reports
// no rows.
func (f *FakeClient) OnSelectOne(table string, h SelectHandler) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectOnes[table] = h
	return f
}

func (f *FakeClient) OnInsert(table string, h func(row any) error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts[table] = h
	return f
}

func (f *FakeClient) OnDelete(table string, h func(q *remote.Query) (int64, error)) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes[table] = h
	return f
}

// SetPingError makes the connectivity probe fail with err; nil restores it.
func (f *FakeClient) SetPingError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

// Calls returns how many times method ("select", "select_one", "insert",
// "delete", "ping") was called on table. Ping ignores table.
func (f *FakeClient) Calls(method, table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[callKey(method, table)]
}

// RemoteCalls counts every data call, excluding pings.
func (f *FakeClient) RemoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for key, n := range f.calls {
		if !strings.HasPrefix(key, "ping") {
			total += n
		}
	}
	return total
}

// Queries returns the read and delete queries received, in order.
func (f *FakeClient) Queries() []*remote.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*remote.Query(nil), f.queries...)
}

// LastQuery returns the most recent query, or nil.
func (f *FakeClient) LastQuery() *remote.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

// Inserted returns the rows inserted into table.
func (f *FakeClient) Inserted(table string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.inserted[table]...)
}

func (f *FakeClient) FakeAuth() *FakeAuth {
	return f.auth
}

func (f *FakeClient) Select(_ context.Context, q *remote.Query, dest any) error {
	h := f.record("select", q)
	if h == nil {
		return nil
	}
	value, err := h(q)
	if err != nil {
		return err
	}
	return assign(dest, value)
}

func (f *FakeClient) SelectOne(_ context.Context, q *remote.Query, dest any) error {
	f.mu.Lock()
	f.calls[callKey("select_one", q.Table)]++
	f.queries = append(f.queries, q)
	h := f.selectOnes[q.Table]
	f.mu.Unlock()

	if h == nil {
		return &remote.Error{Code: remote.CodeNoRows, Message: "no rows in result set", Status: 406}
	}
	value, err := h(q)
	if err != nil {
		return err
	}
	return assign(dest, value)
}

func (f *FakeClient) Insert(_ context.Context, table string, row any) error {
	f.mu.Lock()
	f.calls[callKey("insert", table)]++
	h := f.inserts[table]
	f.mu.Unlock()

	if h != nil {
		if err := h(row); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.inserted[table] = append(f.inserted[table], row)
	f.mu.Unlock()
	return nil
}

func (f *FakeClient) Delete(_ context.Context, q *remote.Query) (int64, error) {
	f.mu.Lock()
	f.calls[callKey("delete", q.Table)]++
	f.queries = append(f.queries, q)
	h := f.deletes[q.Table]
	f.mu.Unlock()

	if h == nil {
		return 0, nil
	}
	return h(q)
}

func (f *FakeClient) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[callKey("ping", "")]++
	return f.pingErr
}

func (f *FakeClient) Auth() remote.Auth {
	return f.auth
}

func (f *FakeClient) record(method string, q *remote.Query) SelectHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[callKey(method, q.Table)]++
	f.queries = append(f.queries, q)
	return f.selects[q.Table]
}

func callKey(method, table string) string {
	if method == "ping" {
		return "ping"
	}
	return method + ":" + table
}

func assign(dest, value any) error {
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("testsupport: destination must be a non-nil pointer, got %T", dest)
	}
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Pointer && v.Type() != target.Elem().Type() {
		v = v.Elem()
	}
	if !v.Type().AssignableTo(target.Elem().Type()) {
		return fmt.Errorf("testsupport: cannot assign %T to %T", value, dest)
	}
	target.Elem().Set(v)
	return nil
}

// FakeAuth is an in-memory remote.Auth. Unscoped calls share one current
// session; calls scoped with remote.WithAccessToken use the token's session.
type FakeAuth struct {
	mu        sync.Mutex
	passwords map[string]string
	users     map[string]remote.User
	sessions  map[string]remote.User
	current   *remote.User

	// SignOutErr, when set, is returned by SignOut after the session ends.
	SignOutErr error
}

var _ remote.Auth = (*FakeAuth)(nil)

func NewFakeAuth() *FakeAuth {
	return &FakeAuth{
		passwords: make(map[string]string),
		users:     make(map[string]remote.User),
		sessions:  make(map[string]remote.User),
	}
}

// Register adds an account without signing in.
func (a *FakeAuth) Register(email, password string) remote.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.register(email, password)
}

func (a *FakeAuth) register(email, password string) remote.User {
	email = strings.ToLower(email)
	user := remote.User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	a.passwords[email] = password
	a.users[email] = user
	return user
}

func (a *FakeAuth) SignUp(ctx context.Context, creds remote.Credentials) (*remote.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email := strings.ToLower(creds.Email)
	if _, ok := a.users[email]; ok {
		return nil, &remote.Error{Code: remote.CodeUserAlreadyExists, Message: "User already registered", Status: 422}
	}
	user := a.register(email, creds.Password)
	return a.start(ctx, user), nil
}

func (a *FakeAuth) SignIn(ctx context.Context, creds remote.Credentials) (*remote.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email := strings.ToLower(creds.Email)
	user, ok := a.users[email]
	if !ok || a.passwords[email] != creds.Password {
		return nil, &remote.Error{Code: remote.CodeInvalidCredentials, Message: "Invalid login credentials", Status: 400}
	}
	return a.start(ctx, user), nil
}

func (a *FakeAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if token, scoped := remote.AccessToken(ctx); scoped {
		delete(a.sessions, token)
	} else {
		a.current = nil
	}
	return a.SignOutErr
}

func (a *FakeAuth) CurrentUser(ctx context.Context) (*remote.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if token, scoped := remote.AccessToken(ctx); scoped {
		user, ok := a.sessions[token]
		if !ok {
			return nil, nil
		}
		return &user, nil
	}
	if a.current == nil {
		return nil, nil
	}
	user := *a.current
	return &user, nil
}

func (a *FakeAuth) start(ctx context.Context, user remote.User) *remote.Session {
	token := uuid.NewString()
	a.sessions[token] = user
	if _, scoped := remote.AccessToken(ctx); !scoped {
		a.current = &user
	}
	return &remote.Session{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(time.Hour).UTC(),
		User:        user,
	}
}
