package viewmodel

import "spendview/internal/core"

// HistoryState is the history screen's filter, sort and page selection.
// Transitions return a new state and never modify the receiver.
type HistoryState struct {
	Criteria  Criteria  `json:"criteria"`
	Field     SortField `json:"sort"`
	Direction Direction `json:"direction"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
}

// NewHistoryState is the initial selection: newest first, no filters, page 1.
func NewHistoryState() HistoryState {
	return HistoryState{
		Field:     SortByDate,
		Direction: Desc,
		Page:      1,
		PageSize:  DefaultPageSize,
	}
}

// WithCriteria replaces the filters and goes back to page 1.
func (s HistoryState) WithCriteria(c Criteria) HistoryState {
	s.Criteria = c
	s.Page = 1
	return s
}

// WithSort sets an explicit sort key and direction and goes back to page 1.
func (s HistoryState) WithSort(field SortField, dir Direction) HistoryState {
	s.Field = field
	s.Direction = dir
	s.Page = 1
	return s
}

// ToggleSort selects field: the current key flips direction, a new key
// starts ascending. Either way the page goes back to 1.
func (s HistoryState) ToggleSort(field SortField) HistoryState {
	if s.Field == field {
		return s.WithSort(field, s.Direction.Flip())
	}
	return s.WithSort(field, Asc)
}

func (s HistoryState) WithPage(page int) HistoryState {
	s.Page = page
	return s
}

func (s HistoryState) WithPageSize(size int) HistoryState {
	if size > 0 {
		s.PageSize = size
	}
	s.Page = 1
	return s
}

// Reset clears filters and restores the initial sort, keeping the page size.
func (s HistoryState) Reset() HistoryState {
	n := NewHistoryState()
	n.PageSize = s.PageSize
	return n
}

// HistoryView is everything the history screen renders for one state.
type HistoryView struct {
	Items      []core.Expense `json:"items"`
	Page       int            `json:"page"`
	PageCount  int            `json:"page_count"`
	TotalCount int            `json:"total_count"`
	Total      core.Money     `json:"total"`
	Categories []string       `json:"categories"`
	State      HistoryState   `json:"state"`
}

// History pairs an immutable dataset snapshot with the current selection.
type History struct {
	Dataset []core.Expense
	State   HistoryState
	Sorter  Sorter
}

// NewHistory starts a history over dataset in the initial state.
func NewHistory(dataset []core.Expense) History {
	return History{Dataset: dataset, State: NewHistoryState(), Sorter: DefaultSorter}
}

// Refresh swaps in a newly fetched dataset and goes back to page 1.
func (h History) Refresh(dataset []core.Expense) History {
	h.Dataset = dataset
	h.State = h.State.WithPage(1)
	return h
}

// Apply replaces the selection.
func (h History) Apply(s HistoryState) History {
	h.State = s
	return h
}

// View filters, sorts and paginates the dataset for the current state.
func (h History) View() HistoryView {
	filtered := FilterExpenses(h.Dataset, h.State.Criteria)
	sorted := h.Sorter.Sort(filtered, h.State.Field, h.State.Direction)
	size := h.State.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return HistoryView{
		Items:      Paginate(sorted, h.State.Page, size),
		Page:       h.State.Page,
		PageCount:  PageCount(len(sorted), size),
		TotalCount: len(sorted),
		Total:      Summarize(sorted).Total,
		Categories: UniqueCategories(h.Dataset),
		State:      h.State,
	}
}
