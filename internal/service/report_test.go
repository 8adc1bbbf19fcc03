package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/model"
)

func TestMonthly_GroupsByCategory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	food := env.globalCategory(t, "Food")
	transport := env.globalCategory(t, "Transport")

	env.expense(t, alice.ID, food.ID, "Lunch", "12.50", model.NewDate(2024, 6, 1))
	env.expense(t, alice.ID, food.ID, "Dinner", "20.25", model.NewDate(2024, 6, 30))
	env.expense(t, alice.ID, transport.ID, "Bus", "2.75", model.NewDate(2024, 6, 15))
	env.expense(t, alice.ID, food.ID, "May lunch", "99.00", model.NewDate(2024, 5, 31))
	env.expense(t, alice.ID, food.ID, "July lunch", "99.00", model.NewDate(2024, 7, 1))
	env.expense(t, bob.ID, food.ID, "Bob's lunch", "99.00", model.NewDate(2024, 6, 1))

	page, err := env.reports.Monthly(context.Background(), alice.ID, 6, 2024, 1, 10)
	require.NoError(t, err)

	require.Len(t, page.Data, 1)
	report := page.Data[0]
	assert.Equal(t, 6, report.Month)
	assert.Equal(t, 2024, report.Year)
	assert.True(t, report.Total.Equal(decimal.RequireFromString("35.50")), "total = %s", report.Total)

	require.Len(t, report.ByCategory, 2)
	assert.Equal(t, "Food", report.ByCategory[0].CategoryName)
	assert.True(t, report.ByCategory[0].TotalAmount.Equal(decimal.RequireFromString("32.75")))
	assert.Equal(t, "Transport", report.ByCategory[1].CategoryName)
	assert.True(t, report.ByCategory[1].TotalAmount.Equal(decimal.RequireFromString("2.75")))

	// totalItems counts the month's expense rows, not the aggregates.
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
}

func TestMonthly_PagesOverExpenseRows(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	food := env.globalCategory(t, "Food")

	env.expense(t, alice.ID, food.ID, "A", "1.00", model.NewDate(2024, 6, 1))
	env.expense(t, alice.ID, food.ID, "B", "2.00", model.NewDate(2024, 6, 2))
	env.expense(t, alice.ID, food.ID, "C", "4.00", model.NewDate(2024, 6, 3))

	page, err := env.reports.Monthly(context.Background(), alice.ID, 6, 2024, 2, 2)
	require.NoError(t, err)

	// Second page holds only the third expense by date.
	assert.True(t, page.Data[0].Total.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
}

func TestMonthly_EmptyMonth(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	page, err := env.reports.Monthly(context.Background(), alice.ID, 2, 2024, 0, 0)
	require.NoError(t, err)

	require.Len(t, page.Data, 1)
	assert.True(t, page.Data[0].Total.IsZero())
	assert.Empty(t, page.Data[0].ByCategory)
	assert.NotNil(t, page.Data[0].ByCategory)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, DefaultPageSize, page.Limit)
}

func TestMonthly_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		month, year int
	}{
		{"month zero", 0, 2024},
		{"month thirteen", 13, 2024},
		{"year zero", 6, 0},
		{"year too large", 6, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reports.Monthly(context.Background(), "anyone", tt.month, tt.year, 1, 5)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestAggregate(t *testing.T) {
	rows := []model.Expense{
		{CategoryName: "Transport", Amount: decimal.RequireFromString("0.10")},
		{CategoryName: "Food", Amount: decimal.RequireFromString("0.20")},
		{CategoryName: "Transport", Amount: decimal.RequireFromString("0.20")},
	}

	report := aggregate(rows)

	// Decimal sums must not pick up binary rounding noise.
	assert.Equal(t, "0.5", report.Total.String())
	require.Len(t, report.ByCategory, 2)
	assert.Equal(t, "Food", report.ByCategory[0].CategoryName)
	assert.Equal(t, "0.3", report.ByCategory[1].TotalAmount.String())
}
