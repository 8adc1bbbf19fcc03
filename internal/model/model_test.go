package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	tests := []struct {
		name           string
		limit, total   int
		wantTotalPages int
	}{
		{"empty", 5, 0, 0},
		{"exact multiple", 5, 10, 2},
		{"remainder rounds up", 5, 11, 3},
		{"single item", 5, 1, 1},
		{"limit larger than total", 100, 7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage[int](nil, 1, tt.limit, tt.total)
			assert.Equal(t, tt.wantTotalPages, p.TotalPages)
			assert.NotNil(t, p.Data)
		})
	}
}

func TestPageJSONShape(t *testing.T) {
	b, err := json.Marshal(NewPage([]string{"a"}, 2, 5, 6))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":["a"],"page":2,"limit":5,"totalItems":6,"totalPages":2}`, string(b))
}

func TestOwner(t *testing.T) {
	g := Global()
	assert.True(t, g.IsGlobal())
	assert.True(t, g.VisibleTo("alice"))
	assert.False(t, g.IsOwnedBy(""))

	o := OwnedBy("alice")
	assert.False(t, o.IsGlobal())
	assert.True(t, o.IsOwnedBy("alice"))
	assert.False(t, o.IsOwnedBy("bob"))
	assert.False(t, o.VisibleTo("bob"))

	id, ok := o.UserID()
	assert.True(t, ok)
	assert.Equal(t, "alice", id)
}

func TestCategoryJSON(t *testing.T) {
	b, err := json.Marshal(Category{ID: "c1", Name: "Food", Active: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","name":"Food","isActive":true,"userId":null}`, string(b))

	b, err = json.Marshal(Category{ID: "c2", Name: "Books", Owner: OwnedBy("u1")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c2","name":"Books","isActive":false,"userId":"u1"}`, string(b))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", d.String())

	d, err = ParseDate("2024-06-01T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", d.String())

	_, err = ParseDate("01/06/2024")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	var in struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-02-29"}`), &in))
	assert.Equal(t, time.February, in.D.Month())
	assert.Equal(t, 29, in.D.Day())

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-02-29"}`, string(b))
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2024, time.December)
	assert.Equal(t, "2024-12-01", from.String())
	assert.Equal(t, "2025-01-01", to.String())
}

func TestCents(t *testing.T) {
	amount := decimal.RequireFromString("12.50")
	assert.Equal(t, int64(1250), Cents(amount))
	assert.True(t, FromCents(1250).Equal(amount))
}

func TestAmountJSON_TwoDecimals(t *testing.T) {
	exp := Expense{ID: "e1", Amount: FromCents(1250), ExpenseDate: NewDate(2024, 6, 1)}
	b, err := json.Marshal(exp)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"amount":12.50`)
	assert.Contains(t, string(b), `"expenseDate":"2024-06-01"`)

	report := MonthlyReport{
		Month: 6,
		Year:  2024,
		Total: decimal.RequireFromString("12.5"),
		ByCategory: []CategorySummary{
			{CategoryName: "Food", TotalAmount: decimal.NewFromInt(12)},
		},
	}
	b, err = json.Marshal(NewPage([]MonthlyReport{report}, 1, 5, 1))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"total":12.50`)
	assert.Contains(t, string(b), `"byCategory":[{"categoryName":"Food","totalAmount":12.00}]`)
	assert.Contains(t, string(b), `"month":6`)
}

func TestExpenseInputAcceptsNumberOrString(t *testing.T) {
	var in ExpenseInput
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.50}`), &in))
	assert.True(t, in.Amount.Equal(FromCents(1250)))

	require.NoError(t, json.Unmarshal([]byte(`{"amount":"7.25"}`), &in))
	assert.True(t, in.Amount.Equal(FromCents(725)))
}

func TestRefreshTokenActive(t *testing.T) {
	now := time.Now()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, tok.Active(now))

	tok.Used = true
	assert.False(t, tok.Active(now))

	tok = &RefreshToken{ExpiresAt: now}
	assert.False(t, tok.Active(now), "a token is expired at its expiry instant")
}
