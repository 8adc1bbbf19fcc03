package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// amountJSON renders a money value as a JSON number with exactly two
// fractional digits, e.g. 12.50.
func amountJSON(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.StringFixed(2))
}

func (e Expense) MarshalJSON() ([]byte, error) {
	type expense Expense
	return json.Marshal(struct {
		expense
		Amount json.RawMessage `json:"amount"`
	}{expense(e), amountJSON(e.Amount)})
}

func (c CategorySummary) MarshalJSON() ([]byte, error) {
	type summary CategorySummary
	return json.Marshal(struct {
		summary
		TotalAmount json.RawMessage `json:"totalAmount"`
	}{summary(c), amountJSON(c.TotalAmount)})
}

func (r MonthlyReport) MarshalJSON() ([]byte, error) {
	type report MonthlyReport
	return json.Marshal(struct {
		report
		Total json.RawMessage `json:"total"`
	}{report(r), amountJSON(r.Total)})
}
