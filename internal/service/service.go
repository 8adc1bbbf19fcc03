// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services depend on the repository interfaces, never on the sqlite package,
// so tests can hand them fakes or an in-memory database interchangeably.
//
// ERRORS:
// Every failure a caller can act on is an *apperror.AppError (validation,
// not found, forbidden, conflict, unauthorized, transient). Anything else is
// an unexpected storage failure and is wrapped with the operation name.
package service

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Paging defaults shared by every list operation.
const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

// normalizePage clamps page to >= 1 and pageSize to 1..MaxPageSize, using
// DefaultPageSize when none was given. page is also capped so the row offset
// cannot overflow.
func normalizePage(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

func offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

func normalizeSearch(search string) string {
	return strings.TrimSpace(search)
}

// maxAmountCents keeps amounts within the int64 cent column.
var maxAmountCents = decimal.NewFromInt(math.MaxInt64)
