// Package bunclient implements remote.Client on top of bun, against Postgres
// through lib/pq or SQLite through go-sqlite3.
package bunclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-carmarket/remote"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and tunes the database connection.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	// BcryptCost is the password hashing cost for the local auth provider.
	BcryptCost int
	SessionTTL time.Duration
}

// DefaultConfig returns an in-memory SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver:     DriverSQLite,
		DSN:        "file::memory:?cache=shared",
		BcryptCost: bcrypt.DefaultCost,
		SessionTTL: 7 * 24 * time.Hour,
	}
}

// Client is a remote.Client backed by a bun database.
type Client struct {
	db   *bun.DB
	auth *Auth
}

var _ remote.Client = (*Client)(nil)

// Open connects to the database described by cfg and checks the connection.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bunclient: ping %s: %w", cfg.Driver, err)
	}
	return New(db, cfg), nil
}

// OpenDB opens a bun.DB for cfg without touching the network.
func OpenDB(cfg Config) (*bun.DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("bunclient: open postgres: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("bunclient: open sqlite: %w", err)
		}
		// SQLite serializes writers; one connection also keeps an in-memory
		// database alive for the lifetime of the pool.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("bunclient: unsupported driver %q", cfg.Driver)
	}
}

// New wraps an open database.
func New(db *bun.DB, cfg Config) *Client {
	return &Client{
		db:   db,
		auth: newAuth(db, cfg.BcryptCost, cfg.SessionTTL, time.Now),
	}
}

// DB exposes the underlying database for schema management.
func (c *Client) DB() *bun.DB {
	return c.db
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Select(ctx context.Context, q *remote.Query, dest any) error {
	criteria, err := selectCriteria(q)
	if err != nil {
		return err
	}

	query := c.db.NewSelect().Model(dest)
	for _, apply := range criteria {
		query = apply(query)
	}

	if err := query.Scan(ctx); err != nil {
		return translateError(err)
	}
	return nil
}

func (c *Client) SelectOne(ctx context.Context, q *remote.Query, dest any) error {
	criteria, err := selectCriteria(q)
	if err != nil {
		return err
	}

	query := c.db.NewSelect().Model(dest)
	for _, apply := range append(criteria, limitOne) {
		query = apply(query)
	}

	return translateError(query.Scan(ctx))
}

var limitOne repository.SelectCriteria = func(sq *bun.SelectQuery) *bun.SelectQuery {
	return sq.Limit(1)
}

func (c *Client) Insert(ctx context.Context, table string, row any) error {
	_, err := c.db.NewInsert().
		Model(row).
		ModelTableExpr("?", bun.Ident(table)).
		Exec(ctx)
	return translateError(err)
}

func (c *Client) Delete(ctx context.Context, q *remote.Query) (int64, error) {
	criteria, err := deleteCriteria(q)
	if err != nil {
		return 0, err
	}

	query := c.db.NewDelete().TableExpr("?", bun.Ident(q.Table))
	for _, apply := range criteria {
		query = apply(query)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return 0, translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Ping checks that the database answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Auth() remote.Auth {
	return c.auth
}
