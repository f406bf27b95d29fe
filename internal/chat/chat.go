// Package chat answers simple spending questions from the expense list. It
// backs the chat box when the data lives in a local store.
package chat

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"spendview/internal/core"
	"spendview/internal/viewmodel"
)

// Bullet starts each line of a list answer.
const Bullet = "• "

const topCategories = 3

var suggestions = []string{
	"What is my total spending?",
	"How much did I spend on Food this month?",
	"What was my highest expense?",
	"What are my top categories?",
	"What is my average expense?",
}

type Responder struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

func (r Responder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Answer matches the query against a fixed set of intents, first match wins.
// A category named in the query narrows totals and averages to it.
func (r Responder) Answer(query string, expenses []core.Expense) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return fallback()
	}
	category := mentionedCategory(q, expenses)
	scope := expenses
	if category != "" {
		scope = viewmodel.FilterExpenses(expenses, viewmodel.Criteria{Category: category})
	}

	// "this month" narrows every intent; on its own it asks for the month total.
	thisMonth := hasAny(q, "this month")
	when := ""
	if thisMonth {
		now := r.now()
		scope = viewmodel.ApplyPeriod(scope, viewmodel.Period{Month: int(now.Month()), Year: now.Year()})
		when = " this month"
	}

	switch {
	case hasAny(q, "highest", "biggest", "largest", "most expensive"):
		return highest(scope, category)
	case hasAny(q, "top", "categories", "breakdown"):
		return top(expenses)
	case hasAny(q, "average", "mean"):
		t := viewmodel.Summarize(scope)
		if t.Count == 0 {
			return "You have no expenses" + on(category) + when + " yet."
		}
		return fmt.Sprintf("Your average expense%s%s is %s.", on(category), when, t.AverageString())
	case hasAny(q, "how many", "number of") || hasWord(q, "count"):
		return fmt.Sprintf("You have recorded %d expenses%s%s.", len(scope), on(category), when)
	case thisMonth:
		t := viewmodel.Summarize(scope)
		return fmt.Sprintf("You spent %s%s this month across %d expenses.", t.Total, on(category), t.Count)
	case hasAny(q, "total", "spent", "spending", "how much"):
		t := viewmodel.Summarize(scope)
		return fmt.Sprintf("Your total spending%s is %s.", on(category), t.Total)
	}
	return fallback()
}

func on(category string) string {
	if category == "" {
		return ""
	}
	return " on " + category
}

// hasWord matches whole words only, so "count" does not hit "discount".
func hasWord(q string, words ...string) bool {
	fields := strings.FieldsFunc(q, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	for _, w := range words {
		if slices.Contains(fields, w) {
			return true
		}
	}
	return false
}

func hasAny(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// mentionedCategory returns the longest category name found in q.
func mentionedCategory(q string, expenses []core.Expense) string {
	best := ""
	for _, c := range viewmodel.UniqueCategories(expenses) {
		if c == "" || len(c) <= len(best) {
			continue
		}
		if strings.Contains(q, strings.ToLower(c)) {
			best = c
		}
	}
	return best
}

func highest(expenses []core.Expense, category string) string {
	if len(expenses) == 0 {
		return "You have no expenses" + on(category) + " yet."
	}
	top := viewmodel.SortExpenses(expenses, viewmodel.SortByAmount, viewmodel.Desc)[0]
	return fmt.Sprintf("Your highest expense%s was %s for %q (%s) on %s.",
		on(category), top.Amount, top.Description, top.Category, top.Date)
}

func top(expenses []core.Expense) string {
	aggs := viewmodel.AggregateByCategory(expenses)
	if len(aggs) == 0 {
		return "You have no expenses yet."
	}
	slices.SortStableFunc(aggs, func(a, b core.CategoryAggregate) int {
		switch {
		case a.Total.Cents > b.Total.Cents:
			return -1
		case a.Total.Cents < b.Total.Cents:
			return 1
		}
		return 0
	})
	if len(aggs) > topCategories {
		aggs = aggs[:topCategories]
	}
	var b strings.Builder
	b.WriteString("Your top spending categories are:")
	for _, a := range aggs {
		fmt.Fprintf(&b, "\n%s%s: %s", Bullet, a.Category, a.Total)
	}
	return b.String()
}

func fallback() string {
	var b strings.Builder
	b.WriteString("I can answer questions like:")
	for _, s := range suggestions {
		b.WriteString("\n" + Bullet + s)
	}
	return b.String()
}

// Lines splits a response into display lines, stripping list bullets.
func Lines(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), strings.TrimSpace(Bullet)))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
