package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

const (
	MaxExpenseTitleLength = 100
	MaxExpenseNoteLength  = 500
)

// ExpenseService manages a user's expenses.
//
// OWNERSHIP RULES:
//   - Get treats someone else's expense exactly like a missing one.
//   - Update and Delete report a foreign expense as a validation failure
//     ("does not belong to user"), and a missing one as NotFound.
//   - The category of an expense must be visible to the user and active.
type ExpenseService struct {
	expenses   repository.ExpenseRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	logger     *slog.Logger
}

func NewExpenseService(repos repository.Repositories, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{
		expenses:   repos.Expenses,
		categories: repos.Categories,
		users:      repos.Users,
		logger:     logger,
	}
}

// Page returns one page of the user's expenses, newest first. search
// matches title, note, category name, date, or the amount as "12.50".
func (s *ExpenseService) Page(ctx context.Context, userID string, page, pageSize int, search string) (model.Page[model.Expense], error) {
	page, pageSize = normalizePage(page, pageSize)
	search = normalizeSearch(search)

	var (
		items []model.Expense
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.expenses.ListByUser(gctx, userID, repository.ListOptions{
			Limit:  pageSize,
			Offset: offset(page, pageSize),
			Search: search,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.expenses.CountByUser(gctx, userID, search)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Page[model.Expense]{}, fmt.Errorf("service/expense: paging expenses: %w", err)
	}

	return model.NewPage(items, page, pageSize, total), nil
}

// Get returns one of the user's expenses.
func (s *ExpenseService) Get(ctx context.Context, id, userID string) (*model.Expense, error) {
	exp, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("expense", id)
		}
		return nil, fmt.Errorf("service/expense: getting expense %s: %w", id, err)
	}
	if exp.UserID != userID {
		return nil, apperror.NotFound("expense", id)
	}
	return exp, nil
}

// Create records a new expense for userID.
func (s *ExpenseService) Create(ctx context.Context, userID string, in model.ExpenseInput) (*model.Expense, error) {
	in, err := validateExpenseInput(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("userId", fmt.Sprintf("user %s not found", userID))
		}
		return nil, fmt.Errorf("service/expense: %w", err)
	}
	if err := s.checkCategory(ctx, in.CategoryID, userID); err != nil {
		return nil, err
	}

	exp := &model.Expense{UserID: userID}
	applyExpenseInput(exp, in)
	if err := s.expenses.Create(ctx, exp); err != nil {
		s.logger.Error("failed to create expense",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/expense: creating expense: %w", err)
	}

	s.logger.Info("expense created",
		slog.String("id", exp.ID),
		slog.String("userID", userID),
	)
	return s.reload(ctx, exp.ID)
}

// Update replaces the editable fields of one of the user's expenses.
func (s *ExpenseService) Update(ctx context.Context, id, userID string, in model.ExpenseInput) (*model.Expense, error) {
	exp, err := s.ownedExpense(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	in, err = validateExpenseInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID, userID); err != nil {
		return nil, err
	}

	applyExpenseInput(exp, in)
	if err := s.expenses.Update(ctx, exp); err != nil {
		return nil, fmt.Errorf("service/expense: updating expense %s: %w", id, err)
	}

	s.logger.Info("expense updated", slog.String("id", id))
	return s.reload(ctx, id)
}

// Delete removes one of the user's expenses.
func (s *ExpenseService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.ownedExpense(ctx, id, userID); err != nil {
		return err
	}

	if err := s.expenses.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/expense: deleting expense %s: %w", id, err)
	}

	s.logger.Info("expense deleted", slog.String("id", id))
	return nil
}

func (s *ExpenseService) ownedExpense(ctx context.Context, id, userID string) (*model.Expense, error) {
	exp, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/expense: getting expense %s: %w", id, err)
	}
	if exp.UserID != userID {
		return nil, apperror.ValidationFailed("id", "expense does not belong to user")
	}
	return exp, nil
}

// checkCategory requires a category the user can see and that is active.
func (s *ExpenseService) checkCategory(ctx context.Context, categoryID, userID string) error {
	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("categoryId", fmt.Sprintf("category %s not found", categoryID))
		}
		return fmt.Errorf("service/expense: %w", err)
	}
	if !cat.Owner.VisibleTo(userID) {
		return apperror.ValidationFailed("categoryId", fmt.Sprintf("category %s not found", categoryID))
	}
	if !cat.Active {
		return apperror.ValidationFailed("categoryId", fmt.Sprintf("category %s is inactive", categoryID))
	}
	return nil
}

// reload re-reads an expense so the joined names are filled in.
func (s *ExpenseService) reload(ctx context.Context, id string) (*model.Expense, error) {
	exp, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/expense: reloading expense %s: %w", id, err)
	}
	return exp, nil
}

func applyExpenseInput(exp *model.Expense, in model.ExpenseInput) {
	exp.Title = in.Title
	exp.Amount = in.Amount
	exp.ExpenseDate = in.ExpenseDate
	exp.Note = in.Note
	exp.CategoryID = in.CategoryID
}

func validateExpenseInput(in model.ExpenseInput) (model.ExpenseInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Note = strings.TrimSpace(in.Note)
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	if in.Title == "" {
		return in, apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(in.Title) > MaxExpenseTitleLength {
		return in, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxExpenseTitleLength))
	}
	if utf8.RuneCountInString(in.Note) > MaxExpenseNoteLength {
		return in, apperror.ValidationFailed("note",
			fmt.Sprintf("note must be %d characters or less", MaxExpenseNoteLength))
	}
	if !in.Amount.IsPositive() {
		return in, apperror.ValidationFailed("amount", "amount must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return in, apperror.ValidationFailed("amount", "amount must have at most two decimal places")
	}
	if in.Amount.Shift(2).GreaterThan(maxAmountCents) {
		return in, apperror.ValidationFailed("amount", "amount is too large")
	}
	if in.ExpenseDate.IsZero() {
		return in, apperror.ValidationFailed("expenseDate", "expense date is required")
	}
	if in.CategoryID == "" {
		return in, apperror.ValidationFailed("categoryId", "category is required")
	}
	return in, nil
}
