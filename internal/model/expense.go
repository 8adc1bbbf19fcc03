package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending record owned by one user.
//
// Amount is a decimal with at most two fractional digits. The store keeps it
// as integer cents; CategoryName and Username are joined in on read.
type Expense struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	CategoryID   string          `json:"categoryId"`
	Title        string          `json:"title"`
	Amount       decimal.Decimal `json:"amount"`
	ExpenseDate  Date            `json:"expenseDate"`
	Note         string          `json:"note"`
	CreatedAt    time.Time       `json:"createdAt"`
	CategoryName string          `json:"categoryName"`
	Username     string          `json:"username"`
}

// ExpenseInput carries the caller-editable fields of an expense.
type ExpenseInput struct {
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate Date            `json:"expenseDate"`
	Note        string          `json:"note"`
	CategoryID  string          `json:"categoryId"`
}

// Cents converts a two-decimal amount to its integer cent value.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

// FromCents is the inverse of Cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
