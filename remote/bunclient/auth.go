package bunclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-carmarket/remote"
)

// UserRecord is a locally registered account.
type UserRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

// SessionRecord is an issued access token.
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	Token     string    `bun:"token,pk"`
	UserID    string    `bun:"user_id,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Auth is a local stand-in for the hosted auth service. Unscoped calls share
// a single current session, like a signed-in device; calls scoped with
// remote.WithAccessToken are resolved per token.
type Auth struct {
	db         *bun.DB
	cost       int
	sessionTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	current *remote.Session
}

var _ remote.Auth = (*Auth)(nil)

func newAuth(db *bun.DB, cost int, sessionTTL time.Duration, now func() time.Time) *Auth {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &Auth{db: db, cost: cost, sessionTTL: sessionTTL, now: now}
}

func (a *Auth) SignUp(ctx context.Context, creds remote.Credentials) (*remote.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), a.cost)
	if err != nil {
		return nil, &remote.Error{Code: "weak_password", Message: err.Error(), Status: http.StatusUnprocessableEntity}
	}

	user := &UserRecord{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(creds.Email),
		PasswordHash: string(hash),
		CreatedAt:    a.now().UTC(),
	}
	if _, err := a.db.NewInsert().Model(user).Exec(ctx); err != nil {
		err = translateError(err)
		var re *remote.Error
		if errors.As(err, &re) && re.Code == remote.CodeUniqueViolation {
			return nil, &remote.Error{
				Code:    remote.CodeUserAlreadyExists,
				Message: "User already registered",
				Status:  http.StatusUnprocessableEntity,
			}
		}
		return nil, err
	}

	return a.startSession(ctx, user)
}

func (a *Auth) SignIn(ctx context.Context, creds remote.Credentials) (*remote.Session, error) {
	user := new(UserRecord)
	err := a.db.NewSelect().
		Model(user).
		Where("?TableAlias.email = ?", normalizeEmail(creds.Email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		err = translateError(err)
		if remote.IsNoRows(err) {
			return nil, invalidCredentials()
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		return nil, invalidCredentials()
	}

	return a.startSession(ctx, user)
}

// SignOut revokes the session. Signing out while signed out is a no-op.
func (a *Auth) SignOut(ctx context.Context) error {
	token, scoped := remote.AccessToken(ctx)
	if !scoped {
		a.mu.Lock()
		current := a.current
		a.current = nil
		a.mu.Unlock()

		if current == nil {
			return nil
		}
		token = current.AccessToken
	}
	if token == "" {
		return nil
	}

	_, err := a.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	return translateError(err)
}

func (a *Auth) CurrentUser(ctx context.Context) (*remote.User, error) {
	if token, scoped := remote.AccessToken(ctx); scoped {
		return a.lookup(ctx, token)
	}

	a.mu.RLock()
	current := a.current
	a.mu.RUnlock()

	if current == nil {
		return nil, nil
	}

	user, err := a.lookup(ctx, current.AccessToken)
	if err == nil && user == nil {
		a.forget(current)
	}
	return user, err
}

// lookup resolves the owner of a live session. Unknown and expired tokens
// resolve to nil.
func (a *Auth) lookup(ctx context.Context, token string) (*remote.User, error) {
	if token == "" {
		return nil, nil
	}

	session := new(SessionRecord)
	err := a.db.NewSelect().
		Model(session).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		err = translateError(err)
		if remote.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if a.now().After(session.ExpiresAt) {
		return nil, nil
	}

	user := new(UserRecord)
	err = a.db.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", session.UserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		err = translateError(err)
		if remote.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	return &remote.User{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}

func (a *Auth) startSession(ctx context.Context, user *UserRecord) (*remote.Session, error) {
	now := a.now().UTC()
	record := &SessionRecord{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(a.sessionTTL),
		CreatedAt: now,
	}
	if _, err := a.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, translateError(err)
	}

	session := &remote.Session{
		AccessToken: record.Token,
		ExpiresAt:   record.ExpiresAt,
		User: remote.User{
			ID:        user.ID,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		},
	}

	if _, scoped := remote.AccessToken(ctx); !scoped {
		a.mu.Lock()
		a.current = session
		a.mu.Unlock()
	}

	copied := *session
	return &copied, nil
}

// forget drops session if it is still the current one.
func (a *Auth) forget(session *remote.Session) {
	a.mu.Lock()
	if a.current == session {
		a.current = nil
	}
	a.mu.Unlock()
}

func invalidCredentials() *remote.Error {
	return &remote.Error{
		Code:    remote.CodeInvalidCredentials,
		Message: "Invalid login credentials",
		Status:  http.StatusBadRequest,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
