package viewmodel

import (
	"slices"
	"time"

	"spendview/internal/core"
)

// MonthLabelLayout formats monthly aggregate labels, e.g. "Jan 2024".
const MonthLabelLayout = "Jan 2006"

// AggregateByCategory sums amounts per exact category name. Groups appear in
// the order their category is first seen.
func AggregateByCategory(expenses []core.Expense) []core.CategoryAggregate {
	index := make(map[string]int)
	out := make([]core.CategoryAggregate, 0)
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, core.CategoryAggregate{Category: e.Category})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	return out
}

type monthKey struct {
	year  int
	month time.Month
}

// AggregateByMonth sums amounts per calendar month, ordered chronologically
// by month start. Labels are for display only and never used for ordering.
func AggregateByMonth(expenses []core.Expense) []core.MonthlyAggregate {
	index := make(map[monthKey]int)
	out := make([]core.MonthlyAggregate, 0)
	for _, e := range expenses {
		start := e.Date.MonthStart()
		k := monthKey{year: start.Year(), month: start.Month()}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, core.MonthlyAggregate{Month: start.Format(MonthLabelLayout), Start: start})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	slices.SortStableFunc(out, func(a, b core.MonthlyAggregate) int {
		return compareMonth(a.Start, b.Start)
	})
	return out
}

// compareMonth orders by calendar (year, month) so that month starts in
// different locations still compare by the month they name.
func compareMonth(a, b time.Time) int {
	ka := a.Year()*12 + int(a.Month())
	kb := b.Year()*12 + int(b.Month())
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	}
	return 0
}

// UniqueCategories lists the distinct category names in first-seen order.
func UniqueCategories(expenses []core.Expense) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range expenses {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}

// Years lists the distinct years present, ascending.
func Years(expenses []core.Expense) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, e := range expenses {
		y := e.Date.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	slices.Sort(out)
	return out
}
