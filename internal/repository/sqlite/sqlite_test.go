package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	moderncsqlite "modernc.org/sqlite"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/config"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

// newTestDB returns a fresh in-memory database, closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:", WithRetryPolicy(config.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user with a dummy password hash.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Nickname:     username,
		Email:        username + "@example.com",
		PasswordHash: []byte("hash"),
		PasswordSalt: []byte("salt"),
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestCategory(t *testing.T, db *DB, owner model.Owner, name string) *model.Category {
	t.Helper()
	cat := &model.Category{Name: name, Active: true, Owner: owner}
	if err := db.Categories().Create(context.Background(), cat); err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return cat
}

// =========================================================================
// SETUP TESTS
// =========================================================================

func TestNew_FileDatabaseMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := New(path)
	require.NoError(t, err)
	createTestUser(t, db, "alice")
	require.NoError(t, db.Close())

	// Re-opening must find the schema up to date and the data intact.
	db, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Users().GetByUsername(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestForeignKeysEnforced(t *testing.T) {
	db := newTestDB(t)

	err := db.Expenses().Create(context.Background(), &model.Expense{
		UserID:      "missing-user",
		CategoryID:  "missing-category",
		Title:       "Orphan",
		Amount:      model.FromCents(100),
		ExpenseDate: model.NewDate(2024, time.June, 1),
	})
	assert.Error(t, err)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%abc%", likePattern("abc"))
	assert.Equal(t, `%50\%%`, likePattern("50%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

// =========================================================================
// TRANSACTION TESTS
// =========================================================================

func TestWithinTx_Commits(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	var catID string
	err := db.WithinTx(context.Background(), func(r repository.Repositories) error {
		cat := &model.Category{Name: "Books", Active: true, Owner: model.OwnedBy(user.ID)}
		if err := r.Categories.Create(context.Background(), cat); err != nil {
			return err
		}
		catID = cat.ID
		return nil
	})
	require.NoError(t, err)

	_, err = db.Categories().GetByID(context.Background(), catID)
	assert.NoError(t, err)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	boom := errors.New("boom")

	var catID string
	err := db.WithinTx(context.Background(), func(r repository.Repositories) error {
		cat := &model.Category{Name: "Books", Active: true, Owner: model.OwnedBy(user.ID)}
		if err := r.Categories.Create(context.Background(), cat); err != nil {
			return err
		}
		catID = cat.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = db.Categories().GetByID(context.Background(), catID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestWithinTx_RetriesTransientErrors(t *testing.T) {
	db := newTestDB(t)
	busy := busyError(t)

	var calls atomic.Int32
	err := db.WithinTx(context.Background(), func(repository.Repositories) error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("sqlite: writing: %w", busy)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWithinTx_GivesUpAsTransient(t *testing.T) {
	db := newTestDB(t)
	busy := busyError(t)

	var calls atomic.Int32
	err := db.WithinTx(context.Background(), func(repository.Repositories) error {
		calls.Add(1)
		return busy
	})

	require.ErrorIs(t, err, apperror.ErrTransient)
	assert.Equal(t, int32(3), calls.Load(), "attempts are bounded by the retry policy")
}

func TestWithinTx_StopsOnCancelledContext(t *testing.T) {
	db := newTestDB(t)
	db.retry = config.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	busy := busyError(t)

	ctx, cancel := context.WithCancel(context.Background())
	err := db.WithinTx(ctx, func(repository.Repositories) error {
		cancel()
		return busy
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(busyError(t)))
	assert.False(t, isTransient(errors.New("plain")))
	assert.False(t, isTransient(apperror.NotFound("x", "y")))
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	_, err := db.conn.Exec(`INSERT INTO users (id, username, password_hash, password_salt, created_at, updated_at)
		VALUES ('u1', 'dup', x'00', x'00', 0, 0), ('u2', 'dup', x'00', x'00', 0, 0)`)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

// busyError produces a genuine SQLITE_BUSY error from the driver by opening
// a second connection to a file database while the first holds a write lock.
func busyError(t *testing.T) error {
	t.Helper()

	path := filepath.Join(t.TempDir(), "busy.db")
	holder, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { holder.Close() })

	ctx := context.Background()
	lockConn, err := holder.conn.Conn(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { lockConn.Close() })
	_, err = lockConn.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = lockConn.ExecContext(ctx, "ROLLBACK") })

	contender, err := holder.conn.Conn(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { contender.Close() })
	_, err = contender.ExecContext(ctx, "PRAGMA busy_timeout = 0")
	require.NoError(t, err)
	_, err = contender.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.Error(t, err)

	var se *moderncsqlite.Error
	require.True(t, errors.As(err, &se), "want *sqlite.Error, got %T", err)
	return err
}
