// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// LAYOUT:
// DB owns the *sql.DB pool. Each entity has a small store type (UserDB,
// TokenDB, CategoryDB, ExpenseDB) that runs its SQL against a queryer, which
// is either the pool or an open *sql.Tx. WithinTx (tx.go) hands fn a set of
// stores bound to one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/expense-ledger/internal/config"
	"github.com/sakif/expense-ledger/internal/repository"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// queryer is the subset of *sql.DB and *sql.Tx the stores use.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and hands out the entity stores.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	retry  config.RetryPolicy
}

// Option customises New.
type Option func(*DB)

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) { db.logger = logger }
}

// WithRetryPolicy sets how WithinTx retries contended transactions.
func WithRetryPolicy(p config.RetryPolicy) Option {
	return func(db *DB) { db.retry = p }
}

// New opens the database at dbPath and applies pending migrations.
//
// dbPath examples:
//   - "data/ledger.db" → file-based database (persistent, WAL mode)
//   - ":memory:"       → in-memory database (tests)
//
// Every connection gets foreign keys, a busy timeout, and BEGIN IMMEDIATE
// transactions via DSN pragmas, so the settings survive pool churn.
func New(dbPath string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives and dies with its connection, so the
	// pool must never open a second one.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if !isMemory(dbPath) {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	db := &DB{
		conn:   conn,
		logger: slog.Default(),
		retry:  config.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Users() *UserDB { return &UserDB{q: db.conn} }

func (db *DB) Tokens() *TokenDB { return &TokenDB{q: db.conn} }

func (db *DB) Categories() *CategoryDB { return &CategoryDB{q: db.conn} }

func (db *DB) Expenses() *ExpenseDB { return &ExpenseDB{q: db.conn} }

// Repositories returns stores bound to the connection pool.
func (db *DB) Repositories() repository.Repositories {
	return reposFor(db.conn)
}

func reposFor(q queryer) repository.Repositories {
	return repository.Repositories{
		Users:      &UserDB{q: q},
		Tokens:     &TokenDB{q: q},
		Categories: &CategoryDB{q: q},
		Expenses:   &ExpenseDB{q: q},
	}
}

// likePattern turns a raw search string into a LIKE pattern that matches it
// as a substring. Use with ESCAPE '\'.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}
