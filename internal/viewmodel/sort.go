package viewmodel

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"spendview/internal/core"
)

type SortField string

const (
	SortByDate     SortField = "date"
	SortByCategory SortField = "category"
	SortByAmount   SortField = "amount"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseSortField accepts date, category or amount.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case SortByDate, SortByCategory, SortByAmount:
		return f, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseDirection accepts asc or desc.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

func (d Direction) Flip() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Sorter orders expenses. Category names are compared with the collation
// rules of its language.
type Sorter struct {
	Lang language.Tag
}

// DefaultSorter collates category names by English rules.
var DefaultSorter = Sorter{Lang: language.English}

// Sort returns a stably sorted copy of expenses; ties keep their input order
// in both directions. Dates carry no time of day, so expenses on the same
// calendar day tie and stay in fetch order.
func (s Sorter) Sort(expenses []core.Expense, field SortField, dir Direction) []core.Expense {
	out := slices.Clone(expenses)
	if out == nil {
		out = []core.Expense{}
	}
	var less func(a, b core.Expense) int
	switch field {
	case SortByCategory:
		// A Collator keeps internal buffers, so each sort gets its own.
		c := collate.New(s.Lang)
		less = func(a, b core.Expense) int { return c.CompareString(a.Category, b.Category) }
	case SortByAmount:
		less = func(a, b core.Expense) int { return cmp.Compare(a.Amount.Cents, b.Amount.Cents) }
	default:
		less = func(a, b core.Expense) int { return a.Date.Compare(b.Date.Time) }
	}
	if dir == Desc {
		asc := less
		less = func(a, b core.Expense) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, less)
	return out
}

// SortExpenses sorts with DefaultSorter.
func SortExpenses(expenses []core.Expense, field SortField, dir Direction) []core.Expense {
	return DefaultSorter.Sort(expenses, field, dir)
}
