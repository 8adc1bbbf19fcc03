package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/repository"
)

// compile-time check that *DB can run transactions for the service layer
var _ repository.Transactor = (*DB)(nil)

// WithinTx runs fn in a transaction and commits if fn returns nil.
//
// RETRIES:
// SQLite allows one writer at a time. When the database stays busy or locked
// past busy_timeout, the whole transaction is rolled back and fn is run again
// from the start, waiting retry.Delay(attempt) between attempts. After
// MaxAttempts the last error is returned as apperror.ErrTransient. Any other
// error from fn rolls back and is returned as is. Cancelling ctx stops the
// wait and returns ctx.Err().
func (db *DB) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	attempts := db.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := db.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := db.retry.Delay(attempt)
		db.logger.Warn("transaction contended, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return apperror.Transient("transaction", lastErr)
}

func (db *DB) runTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(reposFor(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isTransient reports whether err is SQLite lock contention, which is worth
// retrying. Extended result codes carry the primary code in the low byte.
func isTransient(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
