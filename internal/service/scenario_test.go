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

// TestScenario_LunchLifecycle walks one user through the whole ledger:
// register, log in, file an expense, report on it, then delete its category.
func TestScenario_LunchLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice, err := env.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	login, err := env.auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	claims, err := env.auth.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	userID := claims.UserID()
	assert.Equal(t, alice.ID, userID)

	food, err := env.categories.Create(ctx, userID, "Food")
	require.NoError(t, err)

	lunch, err := env.expenses.Create(ctx, userID, model.ExpenseInput{
		Title:       "Lunch",
		Amount:      decimal.RequireFromString("12.50"),
		ExpenseDate: model.NewDate(2024, 6, 1),
		CategoryID:  food.ID,
	})
	require.NoError(t, err)

	expenses, err := env.expenses.Page(ctx, userID, 1, 5, "")
	require.NoError(t, err)
	require.Len(t, expenses.Data, 1)
	assert.Equal(t, "Food", expenses.Data[0].CategoryName)
	assert.Equal(t, 1, expenses.TotalItems)

	report, err := env.reports.Monthly(ctx, userID, 6, 2024, 1, 5)
	require.NoError(t, err)
	require.Len(t, report.Data, 1)
	assert.True(t, report.Data[0].Total.Equal(decimal.RequireFromString("12.50")))
	require.Len(t, report.Data[0].ByCategory, 1)
	assert.Equal(t, "Food", report.Data[0].ByCategory[0].CategoryName)

	require.NoError(t, env.categories.Delete(ctx, food.ID, userID))

	moved, err := env.expenses.Get(ctx, lunch.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, model.UncategorizedName, moved.CategoryName)

	_, err = env.categories.Get(ctx, food.ID, userID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The report follows the expense to its new category.
	report, err = env.reports.Monthly(ctx, userID, 6, 2024, 1, 5)
	require.NoError(t, err)
	require.Len(t, report.Data[0].ByCategory, 1)
	assert.Equal(t, model.UncategorizedName, report.Data[0].ByCategory[0].CategoryName)
}
