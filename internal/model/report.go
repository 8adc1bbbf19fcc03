package model

import "github.com/shopspring/decimal"

// CategorySummary is the spend of one category within a report.
type CategorySummary struct {
	CategoryName string          `json:"categoryName"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
}

// MonthlyReport aggregates a user's expenses for one calendar month.
type MonthlyReport struct {
	Month      int               `json:"month"`
	Year       int               `json:"year"`
	Total      decimal.Decimal   `json:"total"`
	ByCategory []CategorySummary `json:"byCategory"`
}
