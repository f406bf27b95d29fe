package viewmodel

import (
	"errors"
	"strings"

	"spendview/internal/core"
)

// Criteria is the history view's filter set. Nil or empty fields are inactive.
// Date bounds are inclusive calendar days; End includes the whole day.
type Criteria struct {
	Category string      `json:"category,omitempty"`
	Start    *core.Date  `json:"start,omitempty"`
	End      *core.Date  `json:"end,omitempty"`
	Min      *core.Money `json:"min,omitempty"`
	Max      *core.Money `json:"max,omitempty"`
	Search   string      `json:"search,omitempty"`
}

// Active reports whether any predicate is set.
func (c Criteria) Active() bool {
	return c.Category != "" || c.Start != nil || c.End != nil ||
		c.Min != nil || c.Max != nil || c.Search != ""
}

// Match reports whether e satisfies every active predicate.
func (c Criteria) Match(e core.Expense) bool {
	if c.Category != "" && e.Category != c.Category {
		return false
	}
	if c.Start != nil && e.Date.DayKey() < c.Start.DayKey() {
		return false
	}
	if c.End != nil && e.Date.DayKey() > c.End.DayKey() {
		return false
	}
	if c.Min != nil && e.Amount.Cents < c.Min.Cents {
		return false
	}
	if c.Max != nil && e.Amount.Cents > c.Max.Cents {
		return false
	}
	if c.Search != "" {
		q := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(e.Description), q) &&
			!strings.Contains(strings.ToLower(e.Category), q) {
			return false
		}
	}
	return true
}

// FilterExpenses keeps the expenses matching c, preserving input order.
func FilterExpenses(expenses []core.Expense, c Criteria) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if c.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

var ErrInvalidPeriod = errors.New("invalid period")

// Period restricts the dashboard to a month and/or year. Zero fields mean
// "all months" and "all years"; the zero Period keeps everything.
type Period struct {
	Month int `json:"month"` // 1-12, 0 = all
	Year  int `json:"year"`  // 0 = all
}

func (p Period) Validate() error {
	if p.Month < 0 || p.Month > 12 || p.Year < 0 {
		return ErrInvalidPeriod
	}
	return nil
}

// IsAll reports whether p is the identity filter.
func (p Period) IsAll() bool {
	return p.Month == 0 && p.Year == 0
}

func (p Period) Match(d core.Date) bool {
	if p.Month != 0 && d.Month() != p.Month {
		return false
	}
	if p.Year != 0 && d.Year() != p.Year {
		return false
	}
	return true
}

// ApplyPeriod keeps the expenses dated inside p.
func ApplyPeriod(expenses []core.Expense, p Period) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if p.Match(e.Date) {
			out = append(out, e)
		}
	}
	return out
}
