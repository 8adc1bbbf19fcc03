package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

// ReportService builds read-only summaries over the expense store.
type ReportService struct {
	expenses repository.ExpenseRepository
	logger   *slog.Logger
}

func NewReportService(expenses repository.ExpenseRepository, logger *slog.Logger) *ReportService {
	return &ReportService{
		expenses: expenses,
		logger:   logger,
	}
}

// Monthly totals the user's expenses for one month, per category name.
//
// PAGING:
// page/pageSize select which expense rows feed the aggregate, and the
// envelope's TotalItems is the number of expense rows in the month, not the
// number of aggregates (always one). Clients of the existing API rely on
// this, so it is kept as is.
func (s *ReportService) Monthly(ctx context.Context, userID string, month, year, page, pageSize int) (model.Page[model.MonthlyReport], error) {
	if month < 1 || month > 12 {
		return model.Page[model.MonthlyReport]{}, apperror.ValidationFailed("month", "month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return model.Page[model.MonthlyReport]{}, apperror.ValidationFailed("year", "year must be between 1 and 9999")
	}
	page, pageSize = normalizePage(page, pageSize)
	from, to := model.MonthRange(year, time.Month(month))

	var (
		rows  []model.Expense
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.expenses.ListByUserAndMonth(gctx, userID, from, to, repository.ListOptions{
			Limit:  pageSize,
			Offset: offset(page, pageSize),
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.expenses.CountByUserAndMonth(gctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Page[model.MonthlyReport]{}, fmt.Errorf("service/report: loading expenses: %w", err)
	}

	report := aggregate(rows)
	report.Month = month
	report.Year = year

	s.logger.Debug("monthly report built",
		slog.String("userID", userID),
		slog.Int("expenses", len(rows)),
		slog.Int("categories", len(report.ByCategory)),
	)

	return model.NewPage([]model.MonthlyReport{report}, page, pageSize, total), nil
}

// aggregate sums amounts per category name; the grand total is the sum of
// the groups. Groups are ordered by name.
func aggregate(rows []model.Expense) model.MonthlyReport {
	sums := make(map[string]decimal.Decimal)
	for _, e := range rows {
		sums[e.CategoryName] = sums[e.CategoryName].Add(e.Amount)
	}

	report := model.MonthlyReport{
		Total:      decimal.Zero,
		ByCategory: make([]model.CategorySummary, 0, len(sums)),
	}
	for name, sum := range sums {
		report.ByCategory = append(report.ByCategory, model.CategorySummary{CategoryName: name, TotalAmount: sum})
		report.Total = report.Total.Add(sum)
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		return report.ByCategory[i].CategoryName < report.ByCategory[j].CategoryName
	})
	return report
}
