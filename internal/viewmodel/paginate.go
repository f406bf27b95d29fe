package viewmodel

import "spendview/internal/core"

// DefaultPageSize is the number of expenses per history page.
const DefaultPageSize = 10

// Paginate returns the 1-based page of expenses. Pages outside the available
// range yield an empty slice.
func Paginate(expenses []core.Expense, page, pageSize int) []core.Expense {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		return []core.Expense{}
	}
	// Checked before multiplying so huge pages cannot overflow start.
	if page-1 >= PageCount(len(expenses), pageSize) {
		return []core.Expense{}
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(expenses))
	out := make([]core.Expense, end-start)
	copy(out, expenses[start:end])
	return out
}

// PageCount is ceil(n/pageSize).
func PageCount(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return (n + pageSize - 1) / pageSize
}
