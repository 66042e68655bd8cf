package remote

import (
	"context"
	"time"
)

// Client is the narrow view of the hosted database the marketplace consumes.
type Client interface {
	// Select scans all matching rows into dest, a pointer to a slice.
	Select(ctx context.Context, q *Query, dest any) error
	// SelectOne scans the first matching row into dest, a pointer to a struct.
	// A missing row is reported as an *Error with CodeNoRows.
	SelectOne(ctx context.Context, q *Query, dest any) error
	Insert(ctx context.Context, table string, row any) error
	// Delete removes the rows matching q's filters and returns how many went.
	Delete(ctx context.Context, q *Query) (int64, error)
	// Ping is the lightweight reachability probe.
	Ping(ctx context.Context) error
	Auth() Auth
}

// Auth is the authentication sub-client. Without a scoped context it acts on
// a single current session, like a signed-in device. A context built with
// WithAccessToken resolves the session from its token and leaves the current
// session untouched.
type Auth interface {
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	SignUp(ctx context.Context, creds Credentials) (*Session, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns nil without error when nobody is signed in.
	CurrentUser(ctx context.Context) (*User, error)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}
