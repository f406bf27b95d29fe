package core

import "strings"

// Budget is a monthly spending limit for a category. Spent, TotalSpent,
// Percentage and Remaining are computed by the backend.
type Budget struct {
	ID           string  `json:"id"`
	CategoryID   string  `json:"category"`
	CategoryName string  `json:"category_name"`
	Limit        Money   `json:"limit"`
	Spent        Money   `json:"spent"`       // current month
	TotalSpent   Money   `json:"total_spent"` // all time
	Percentage   float64 `json:"percentage"`
	Remaining    Money   `json:"remaining"` // Limit - Spent, may be negative
}

// BudgetInput creates or replaces the budget of a category.
type BudgetInput struct {
	CategoryID string
	Limit      Money
}

const (
	UsageOK       = "ok"
	UsageWarning  = "warning"
	UsageCritical = "critical"
)

func (b BudgetInput) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return b.Limit.Validate()
}

// OverBudget reports whether this month's spending exceeded the limit.
func (b Budget) OverBudget() bool {
	return b.Remaining.Cents < 0
}

// UsageLevel buckets the used percentage: above 90 is critical, above 70 a warning.
func (b Budget) UsageLevel() string {
	switch {
	case b.Percentage > 90:
		return UsageCritical
	case b.Percentage > 70:
		return UsageWarning
	default:
		return UsageOK
	}
}

// ShareOfTotal is the monthly limit as a percentage of all-time spending in
// the category. Zero when nothing was spent.
func (b Budget) ShareOfTotal() float64 {
	if b.TotalSpent.Cents <= 0 {
		return 0
	}
	v, _ := b.Limit.Decimal().Div(b.TotalSpent.Decimal()).Shift(2).Float64()
	return v
}
