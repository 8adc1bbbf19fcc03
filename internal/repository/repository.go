// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/expense-ledger/internal/model"
)

// ListOptions selects one page of a filtered listing. Search is a raw
// substring; implementations match it case-insensitively and escape any
// wildcard characters it contains.
type ListOptions struct {
	Limit  int
	Offset int
	Search string
}

type UserRepository interface {
	// Create fails with apperror.ErrConflict when the username is taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type TokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	// GetByToken returns apperror.ErrNotFound for an unknown token.
	GetByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// MarkUsed burns an active token. It reports false if the token was
	// already used or revoked, so two concurrent callers cannot both win.
	MarkUsed(ctx context.Context, id string) (bool, error)
	// Revoke revokes a token that is still usable. Unknown tokens are ignored.
	Revoke(ctx context.Context, token string) error
}

type CategoryRepository interface {
	// ListVisible pages the global categories plus those owned by userID,
	// ordered by name descending.
	ListVisible(ctx context.Context, userID string, opts ListOptions) ([]model.Category, error)
	CountVisible(ctx context.Context, userID, search string) (int, error)
	// ListVisibleByActive lists every visible category, optionally only the
	// active ones, ordered by name.
	ListVisibleByActive(ctx context.Context, userID string, activeOnly bool) ([]model.Category, error)
	GetByID(ctx context.Context, id string) (*model.Category, error)
	// NameExists compares case-insensitively within owner's scope, ignoring
	// the category excludeID (pass "" to exclude nothing).
	NameExists(ctx context.Context, owner model.Owner, name, excludeID string) (bool, error)
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id string) error
	// EnsureGlobal returns the global category called name, creating it
	// (active) if it does not exist yet.
	EnsureGlobal(ctx context.Context, name string) (*model.Category, error)
}

type ExpenseRepository interface {
	// ListByUser pages userID's expenses, newest first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Expense, error)
	CountByUser(ctx context.Context, userID, search string) (int, error)
	// ListByUserAndMonth pages userID's expenses dated in [from, to).
	ListByUserAndMonth(ctx context.Context, userID string, from, to model.Date, opts ListOptions) ([]model.Expense, error)
	CountByUserAndMonth(ctx context.Context, userID string, from, to model.Date) (int, error)
	GetByID(ctx context.Context, id string) (*model.Expense, error)
	Create(ctx context.Context, expense *model.Expense) error
	Update(ctx context.Context, expense *model.Expense) error
	Delete(ctx context.Context, id string) error
	// ReassignCategory moves userID's expenses from one category to another
	// and returns how many rows moved.
	ReassignCategory(ctx context.Context, userID, fromCategoryID, toCategoryID string) (int64, error)
}

// Repositories bundles one repository per entity. Inside a transaction every
// field is bound to the same transaction.
type Repositories struct {
	Users      UserRepository
	Tokens     TokenRepository
	Categories CategoryRepository
	Expenses   ExpenseRepository
}

// Transactor runs fn atomically. Implementations retry fn from scratch on
// transient contention, so fn must not have side effects outside the
// repositories it is given.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}
