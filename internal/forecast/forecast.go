// Package forecast predicts upcoming monthly spending per category for the
// local backends, which have no prediction service of their own.
package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"spendview/internal/core"
	"spendview/internal/viewmodel"
)

const (
	DefaultWindow  = 3
	DefaultHorizon = 3
)

// Predictor is a rolling simple moving average: each predicted month is the
// mean of the previous Window months, earlier predictions included.
type Predictor struct {
	Window  int
	Horizon int
}

func New() Predictor {
	return Predictor{Window: DefaultWindow, Horizon: DefaultHorizon}
}

// Predict forecasts the Horizon months after now's month from the Window
// complete months before it. Months without expenses count as zero.
// Categories with nothing spent in the window are left out. Category order
// follows first appearance in expenses.
func (p Predictor) Predict(expenses []core.Expense, now time.Time) []core.CategoryForecast {
	window, horizon := p.Window, p.Horizon
	if window < 1 {
		window = DefaultWindow
	}
	if horizon < 1 {
		horizon = DefaultHorizon
	}

	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	first := current.AddDate(0, -window, 0)

	var order []string
	history := make(map[string][]int64)
	for _, e := range expenses {
		if _, ok := history[e.Category]; !ok {
			order = append(order, e.Category)
			history[e.Category] = make([]int64, window)
		}
		idx := monthIndex(first, e.Date)
		if idx < 0 || idx >= window {
			continue
		}
		history[e.Category][idx] += e.Amount.Cents
	}

	out := make([]core.CategoryForecast, 0, len(order))
	for _, category := range order {
		points, ok := roll(history[category], horizon)
		if !ok {
			continue
		}
		f := core.CategoryForecast{Category: category}
		for i, cents := range points {
			f.Points = append(f.Points, core.ForecastPoint{
				Month:  current.AddDate(0, i+1, 0).Format(viewmodel.MonthLabelLayout),
				Amount: core.Money{Cents: cents},
			})
		}
		out = append(out, f)
	}
	return out
}

// monthIndex counts calendar months from first to d's month.
func monthIndex(first time.Time, d core.Date) int {
	return (d.Year()-first.Year())*12 + d.Month() - int(first.Month())
}

// roll extends the series by horizon moving-average steps, rounding each
// step to whole cents.
func roll(series []int64, horizon int) ([]int64, bool) {
	window := len(series)
	values := append([]int64(nil), series...)
	nonZero := false
	for _, v := range series {
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return nil, false
	}
	n := decimal.NewFromInt(int64(window))
	for i := 0; i < horizon; i++ {
		sum := decimal.Zero
		for _, v := range values[len(values)-window:] {
			sum = sum.Add(decimal.NewFromInt(v))
		}
		values = append(values, sum.Div(n).Round(0).IntPart())
	}
	return values[window:], true
}
