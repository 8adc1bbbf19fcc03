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

const MaxCategoryNameLength = 100

// CategoryService enforces category ownership and naming rules.
//
// VISIBILITY VS OWNERSHIP:
// A user sees global categories plus their own, but may only change their
// own. Changing a global category is Forbidden; a category owned by someone
// else is reported as NotFound, exactly like a missing id.
type CategoryService struct {
	repo   repository.CategoryRepository
	tx     repository.Transactor
	logger *slog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, tx repository.Transactor, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		repo:   repo,
		tx:     tx,
		logger: logger,
	}
}

// Page returns one page of the visible categories, optionally filtered by a
// case-insensitive name substring, ordered by name descending.
func (s *CategoryService) Page(ctx context.Context, userID string, page, pageSize int, search string) (model.Page[model.Category], error) {
	page, pageSize = normalizePage(page, pageSize)
	search = normalizeSearch(search)

	var (
		items []model.Category
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.ListVisible(gctx, userID, repository.ListOptions{
			Limit:  pageSize,
			Offset: offset(page, pageSize),
			Search: search,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountVisible(gctx, userID, search)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Page[model.Category]{}, fmt.Errorf("service/category: paging categories: %w", err)
	}

	return model.NewPage(items, page, pageSize, total), nil
}

// List returns every visible category; activeOnly drops inactive ones.
func (s *CategoryService) List(ctx context.Context, userID string, activeOnly bool) ([]model.Category, error) {
	cats, err := s.repo.ListVisibleByActive(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("service/category: listing categories: %w", err)
	}
	return cats, nil
}

// Get returns a category the user can see.
func (s *CategoryService) Get(ctx context.Context, id, userID string) (*model.Category, error) {
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cat.Owner.VisibleTo(userID) {
		return nil, apperror.NotFound("category", id)
	}
	return cat, nil
}

// Create adds a category owned by userID. The name is trimmed and must be
// unique (case-insensitively) among the user's own categories.
func (s *CategoryService) Create(ctx context.Context, userID, name string) (*model.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	owner := model.OwnedBy(userID)
	if err := ensureNameFree(ctx, s.repo, owner, name, ""); err != nil {
		return nil, err
	}

	cat := &model.Category{Name: name, Active: true, Owner: owner}
	if err := s.repo.Create(ctx, cat); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/category: creating category: %w", err)
	}

	s.logger.Info("category created",
		slog.String("id", cat.ID),
		slog.String("userID", userID),
	)
	return cat, nil
}

// Update renames one of the user's categories. The active flag is kept.
func (s *CategoryService) Update(ctx context.Context, id, userID, name string) (*model.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	cat, err := ownedCategory(ctx, s.repo, id, userID)
	if err != nil {
		return nil, err
	}
	if err := ensureNameFree(ctx, s.repo, cat.Owner, name, cat.ID); err != nil {
		return nil, err
	}

	cat.Name = name
	if err := s.repo.Update(ctx, cat); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/category: updating category %s: %w", id, err)
	}

	s.logger.Info("category renamed", slog.String("id", id))
	return cat, nil
}

// ToggleActive flips the active flag of one of the user's categories.
// Calling it twice restores the original state.
func (s *CategoryService) ToggleActive(ctx context.Context, id, userID string) (*model.Category, error) {
	cat, err := ownedCategory(ctx, s.repo, id, userID)
	if err != nil {
		return nil, err
	}

	cat.Active = !cat.Active
	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, fmt.Errorf("service/category: toggling category %s: %w", id, err)
	}

	s.logger.Info("category toggled",
		slog.String("id", id),
		slog.Bool("active", cat.Active),
	)
	return cat, nil
}

// Delete removes one of the user's categories. In the same transaction the
// global "Uncategorized" category is created if needed and every expense
// the user filed under the deleted category is moved to it. Nothing changes
// if any step fails.
func (s *CategoryService) Delete(ctx context.Context, id, userID string) error {
	var moved int64
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		cat, err := ownedCategory(ctx, r.Categories, id, userID)
		if err != nil {
			return err
		}

		fallback, err := r.Categories.EnsureGlobal(ctx, model.UncategorizedName)
		if err != nil {
			return err
		}

		moved, err = r.Expenses.ReassignCategory(ctx, userID, cat.ID, fallback.ID)
		if err != nil {
			return err
		}

		return r.Categories.Delete(ctx, cat.ID)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		s.logger.Error("failed to delete category",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/category: deleting category %s: %w", id, err)
	}

	s.logger.Info("category deleted",
		slog.String("id", id),
		slog.Int64("reassignedExpenses", moved),
	)
	return nil
}

// SeedGlobals makes sure each named global category exists. Safe to run on
// every startup.
func (s *CategoryService) SeedGlobals(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := s.repo.EnsureGlobal(ctx, name); err != nil {
			return fmt.Errorf("service/category: seeding %q: %w", name, err)
		}
	}
	s.logger.Info("global categories ensured", slog.Int("count", len(names)))
	return nil
}

func ensureNameFree(ctx context.Context, repo repository.CategoryRepository, owner model.Owner, name, excludeID string) error {
	exists, err := repo.NameExists(ctx, owner, name, excludeID)
	if err != nil {
		return fmt.Errorf("service/category: %w", err)
	}
	if exists {
		return apperror.Conflict("category", name)
	}
	return nil
}

// ownedCategory loads id and checks that userID owns it.
func ownedCategory(ctx context.Context, repo repository.CategoryRepository, id, userID string) (*model.Category, error) {
	cat, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat.Owner.IsGlobal() {
		return nil, apperror.Forbidden("global categories cannot be modified")
	}
	if !cat.Owner.IsOwnedBy(userID) {
		return nil, apperror.NotFound("category", id)
	}
	return cat, nil
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "category name is required")
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
	}
	return name, nil
}

// isDomainError reports whether err already carries an AppError that the
// caller should see unchanged.
func isDomainError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
