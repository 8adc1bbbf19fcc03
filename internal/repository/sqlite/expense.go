package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

// compile-time check that *ExpenseDB implements repository.ExpenseRepository
var _ repository.ExpenseRepository = (*ExpenseDB)(nil)

// ExpenseDB stores expenses. Amounts are kept as integer cents.
type ExpenseDB struct {
	q queryer
}

// expenseSelect joins in the category name and owner's username.
const expenseSelect = `
	SELECT e.id, e.user_id, e.category_id, e.title, e.amount_cents, e.expense_date,
	       e.note, e.created_at, c.name, u.username
	FROM expenses e
	JOIN categories c ON c.id = e.category_id
	JOIN users u ON u.id = e.user_id`

// searchWhere matches title, note, category name, the date text, or the
// amount rendered with two decimals ("12.50"). LIKE folds ASCII letters only,
// so "CAFÉ" does not match "Café".
const searchWhere = ` AND (
	e.title LIKE ? ESCAPE '\' OR
	e.note LIKE ? ESCAPE '\' OR
	c.name LIKE ? ESCAPE '\' OR
	e.expense_date LIKE ? ESCAPE '\' OR
	printf('%.2f', e.amount_cents / 100.0) LIKE ? ESCAPE '\')`

func userFilter(userID, search string) (string, []any) {
	where := ` WHERE e.user_id = ?`
	args := []any{userID}
	if search != "" {
		p := likePattern(search)
		where += searchWhere
		args = append(args, p, p, p, p, p)
	}
	return where, args
}

// ListByUser returns one page of userID's expenses ordered by creation time,
// newest first (ties by id).
func (e *ExpenseDB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Expense, error) {
	where, args := userFilter(userID, opts.Search)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := e.q.QueryContext(ctx,
		expenseSelect+where+` ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing expenses for user %s: %w", userID, err)
	}
	return scanExpenses(rows)
}

func (e *ExpenseDB) CountByUser(ctx context.Context, userID, search string) (int, error) {
	where, args := userFilter(userID, search)

	var n int
	err := e.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e JOIN categories c ON c.id = e.category_id`+where,
		args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting expenses for user %s: %w", userID, err)
	}
	return n, nil
}

// ListByUserAndMonth pages userID's expenses with from <= date < to. Dates
// are ISO text, so the range compares lexically.
func (e *ExpenseDB) ListByUserAndMonth(ctx context.Context, userID string, from, to model.Date, opts repository.ListOptions) ([]model.Expense, error) {
	rows, err := e.q.QueryContext(ctx,
		expenseSelect+`
		 WHERE e.user_id = ? AND e.expense_date >= ? AND e.expense_date < ?
		 ORDER BY e.expense_date, e.created_at, e.id
		 LIMIT ? OFFSET ?`,
		userID, from.String(), to.String(), opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing expenses for user %s in %s: %w", userID, from, err)
	}
	return scanExpenses(rows)
}

func (e *ExpenseDB) CountByUserAndMonth(ctx context.Context, userID string, from, to model.Date) (int, error) {
	var n int
	err := e.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses
		 WHERE user_id = ? AND expense_date >= ? AND expense_date < ?`,
		userID, from.String(), to.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting expenses for user %s in %s: %w", userID, from, err)
	}
	return n, nil
}

// GetByID returns the expense regardless of owner; callers check ownership.
func (e *ExpenseDB) GetByID(ctx context.Context, id string) (*model.Expense, error) {
	row := e.q.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ?`, id)
	exp, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("expense", id)
		}
		return nil, fmt.Errorf("sqlite: getting expense %s: %w", id, err)
	}
	return exp, nil
}

func (e *ExpenseDB) Create(ctx context.Context, expense *model.Expense) error {
	expense.ID = xid.New().String()
	expense.CreatedAt = time.Now().UTC()

	_, err := e.q.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category_id, title, amount_cents, expense_date, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.UserID,
		expense.CategoryID,
		expense.Title,
		model.Cents(expense.Amount),
		expense.ExpenseDate.String(),
		expense.Note,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting expense for user %s: %w", expense.UserID, err)
	}
	return nil
}

// Update writes every editable field in one statement. created_at and the
// owner never change.
func (e *ExpenseDB) Update(ctx context.Context, expense *model.Expense) error {
	result, err := e.q.ExecContext(ctx,
		`UPDATE expenses
		 SET title = ?, amount_cents = ?, expense_date = ?, note = ?, category_id = ?
		 WHERE id = ?`,
		expense.Title,
		model.Cents(expense.Amount),
		expense.ExpenseDate.String(),
		expense.Note,
		expense.CategoryID,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating expense %s: %w", expense.ID, err)
	}
	return requireOneRow(result, "expense", expense.ID)
}

func (e *ExpenseDB) Delete(ctx context.Context, id string) error {
	result, err := e.q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting expense %s: %w", id, err)
	}
	return requireOneRow(result, "expense", id)
}

func (e *ExpenseDB) ReassignCategory(ctx context.Context, userID, fromCategoryID, toCategoryID string) (int64, error) {
	result, err := e.q.ExecContext(ctx,
		`UPDATE expenses SET category_id = ? WHERE user_id = ? AND category_id = ?`,
		toCategoryID, userID, fromCategoryID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reassigning expenses from category %s: %w", fromCategoryID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

func scanExpense(row rowScanner) (*model.Expense, error) {
	var (
		exp   model.Expense
		cents int64
		date  string
	)
	err := row.Scan(
		&exp.ID,
		&exp.UserID,
		&exp.CategoryID,
		&exp.Title,
		&cents,
		&date,
		&exp.Note,
		&exp.CreatedAt,
		&exp.CategoryName,
		&exp.Username,
	)
	if err != nil {
		return nil, err
	}

	exp.Amount = model.FromCents(cents)
	if exp.ExpenseDate, err = model.ParseDate(date); err != nil {
		return nil, fmt.Errorf("sqlite: expense %s: %w", exp.ID, err)
	}
	return &exp, nil
}

func scanExpenses(rows *sql.Rows) ([]model.Expense, error) {
	defer rows.Close()

	expenses := []model.Expense{}
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning expense: %w", err)
		}
		expenses = append(expenses, *exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating expenses: %w", err)
	}
	return expenses, nil
}
