package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

// compile-time check that *CategoryDB implements repository.CategoryRepository
var _ repository.CategoryRepository = (*CategoryDB)(nil)

// CategoryDB stores categories. A NULL user_id is a global category.
type CategoryDB struct {
	q queryer
}

const categoryColumns = `id, name, is_active, user_id`

// visibleWhere restricts to global categories and those owned by the user.
const visibleWhere = `(user_id IS NULL OR user_id = ?)`

// visibleFilter adds an optional name search. LIKE folds ASCII letters only.
func visibleFilter(userID, search string) (string, []any) {
	where := visibleWhere
	args := []any{userID}
	if search != "" {
		where += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(search))
	}
	return where, args
}

// ListVisible returns one page of the categories userID can see, filtered by
// name and ordered by name descending (ties by id).
func (c *CategoryDB) ListVisible(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Category, error) {
	where, args := visibleFilter(userID, opts.Search)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := c.q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE `+where+`
		 ORDER BY name DESC, id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories for user %s: %w", userID, err)
	}
	return scanCategories(rows)
}

func (c *CategoryDB) CountVisible(ctx context.Context, userID, search string) (int, error) {
	where, args := visibleFilter(userID, search)

	var n int
	if err := c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting categories for user %s: %w", userID, err)
	}
	return n, nil
}

func (c *CategoryDB) ListVisibleByActive(ctx context.Context, userID string, activeOnly bool) ([]model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE ` + visibleWhere
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := c.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories for user %s: %w", userID, err)
	}
	return scanCategories(rows)
}

// GetByID returns the category regardless of owner; callers check visibility.
func (c *CategoryDB) GetByID(ctx context.Context, id string) (*model.Category, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %s: %w", id, err)
	}
	return cat, nil
}

// NameExists mirrors the unique index: same owner scope, NOCASE name.
func (c *CategoryDB) NameExists(ctx context.Context, owner model.Owner, name, excludeID string) (bool, error) {
	var exists bool
	err := c.q.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE COALESCE(user_id, '') = ? AND name = ? COLLATE NOCASE AND id <> ?
		)`,
		ownerKey(owner), strings.TrimSpace(name), excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking category name %q: %w", name, err)
	}
	return exists, nil
}

func (c *CategoryDB) Create(ctx context.Context, category *model.Category) error {
	category.ID = xid.New().String()

	_, err := c.q.ExecContext(ctx,
		`INSERT INTO categories (id, name, is_active, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		category.ID,
		category.Name,
		category.Active,
		ownerValue(category.Owner),
		time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category", category.Name)
		}
		return fmt.Errorf("sqlite: inserting category %q: %w", category.Name, err)
	}
	return nil
}

// Update writes name and active flag. The owner never changes.
func (c *CategoryDB) Update(ctx context.Context, category *model.Category) error {
	result, err := c.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, is_active = ? WHERE id = ?`,
		category.Name,
		category.Active,
		category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category", category.Name)
		}
		return fmt.Errorf("sqlite: updating category %s: %w", category.ID, err)
	}
	return requireOneRow(result, "category", category.ID)
}

// Delete removes the category. Expenses still pointing at it make the
// foreign key fail, so callers reassign them first.
func (c *CategoryDB) Delete(ctx context.Context, id string) error {
	result, err := c.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting category %s: %w", id, err)
	}
	return requireOneRow(result, "category", id)
}

// EnsureGlobal is idempotent: the insert is a no-op when the unique index
// already holds a global category of that name.
func (c *CategoryDB) EnsureGlobal(ctx context.Context, name string) (*model.Category, error) {
	_, err := c.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (id, name, is_active, user_id, created_at)
		 VALUES (?, ?, 1, NULL, ?)`,
		xid.New().String(), name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ensuring global category %q: %w", name, err)
	}

	row := c.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE user_id IS NULL AND name = ? COLLATE NOCASE`,
		name,
	)
	cat, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading global category %q: %w", name, err)
	}
	return cat, nil
}

func ownerValue(o model.Owner) any {
	if id, ok := o.UserID(); ok {
		return id
	}
	return nil
}

func ownerKey(o model.Owner) string {
	id, _ := o.UserID()
	return id
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		cat    model.Category
		userID sql.NullString
	)
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Active, &userID); err != nil {
		return nil, err
	}
	if userID.Valid {
		cat.Owner = model.OwnedBy(userID.String)
	}
	return &cat, nil
}

func scanCategories(rows *sql.Rows) ([]model.Category, error) {
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning category: %w", err)
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

func requireOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
