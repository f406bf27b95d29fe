package viewmodel

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"spendview/internal/core"
)

// Totals summarizes a working set.
type Totals struct {
	Total   core.Money      `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"-"`
}

// Summarize sums the amounts of expenses. Average is Total/Count, zero for an
// empty set; it is not rounded here.
func Summarize(expenses []core.Expense) Totals {
	var t Totals
	for _, e := range expenses {
		t.Total = t.Total.Add(e.Amount)
	}
	t.Count = len(expenses)
	if t.Count > 0 {
		t.Average = t.Total.Decimal().Div(decimal.NewFromInt(int64(t.Count)))
	}
	return t
}

// AverageString formats the average with two decimal places.
func (t Totals) AverageString() string {
	return t.Average.StringFixed(2)
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Total   core.Money  `json:"total"`
		Count   int         `json:"count"`
		Average json.Number `json:"average"`
	}{t.Total, t.Count, json.Number(t.AverageString())})
}
