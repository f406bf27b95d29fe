package viewmodel

import "spendview/internal/core"

// RecentCount is how many of the latest expenses the dashboard lists.
const RecentCount = 5

// DashboardView holds the dashboard figures for one period.
type DashboardView struct {
	Period     Period                   `json:"period"`
	Years      []int                    `json:"years"`
	Totals     Totals                   `json:"totals"`
	ByCategory []core.CategoryAggregate `json:"by_category"`
	ByMonth    []core.MonthlyAggregate  `json:"by_month"`
	Recent     []core.Expense           `json:"recent"`
}

// BuildDashboard applies the period filter and derives totals, aggregates
// and the most recent expenses from the resulting working set.
func BuildDashboard(expenses []core.Expense, p Period) DashboardView {
	working := ApplyPeriod(expenses, p)
	recent := SortExpenses(working, SortByDate, Desc)
	if len(recent) > RecentCount {
		recent = recent[:RecentCount]
	}
	return DashboardView{
		Period:     p,
		Years:      Years(expenses),
		Totals:     Summarize(working),
		ByCategory: AggregateByCategory(working),
		ByMonth:    AggregateByMonth(working),
		Recent:     recent,
	}
}
