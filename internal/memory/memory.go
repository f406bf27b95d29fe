// Package memory is an in-process store for development and tests. Nothing
// survives a restart.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"spendview/internal/core"
)

var (
	ErrNotFound  = core.ErrNotFound
	ErrDuplicate = core.ErrConflict
)

var defaultCategories = []string{"Food", "Rent", "Transport", "Utilities", "Entertainment", "Health", "Shopping", "Other"}

type Store struct {
	mu      sync.Mutex
	nextID  int64
	cats    []core.Category
	items   []core.Expense
	budgets []core.Budget
	goals   []core.Goal
}

func New(cats []string) *Store {
	s := &Store{}
	for _, name := range dedupe(cats) {
		s.cats = append(s.cats, core.Category{ID: s.newID(), Name: name})
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, falling back
// to a default set when the file is missing or empty.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = defaultCategories
	}
	return New(cats)
}

// newID must be called with mu held (or before the store is shared).
func (s *Store) newID() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

func (s *Store) CreateExpense(_ context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	e.Description = strings.TrimSpace(e.Description)
	s.mu.Lock()
	defer s.mu.Unlock()
	created := e.Expense(s.newID())
	s.items = append(s.items, created)
	return created, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.items, id, func(e core.Expense) string { return e.ID })
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (core.Category, error) {
	if err := core.ValidateCategoryName(name); err != nil {
		return core.Category{}, fmt.Errorf("validation failed: %w", err)
	}
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.Name == name {
			return core.Category{}, fmt.Errorf("category %q: %w", name, ErrDuplicate)
		}
	}
	c := core.Category{ID: s.newID(), Name: name}
	s.cats = append(s.cats, c)
	return c, nil
}

// DeleteCategory drops the category and its budget; expenses are untouched.
func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.cats, id, func(c core.Category) string { return c.ID })
	if i < 0 {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	s.cats = append(s.cats[:i:i], s.cats[i+1:]...)
	if j := indexOf(s.budgets, id, func(b core.Budget) string { return b.CategoryID }); j >= 0 {
		s.budgets = append(s.budgets[:j:j], s.budgets[j+1:]...)
	}
	return nil
}

func (s *Store) ListBudgetLimits(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) SaveBudgetLimit(_ context.Context, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := indexOf(s.cats, in.CategoryID, func(c core.Category) string { return c.ID })
	if ci < 0 {
		return core.Budget{}, fmt.Errorf("category %s: %w", in.CategoryID, ErrNotFound)
	}
	if j := indexOf(s.budgets, in.CategoryID, func(b core.Budget) string { return b.CategoryID }); j >= 0 {
		s.budgets[j].Limit = in.Limit
		s.budgets[j].CategoryName = s.cats[ci].Name
		return s.budgets[j], nil
	}
	b := core.Budget{ID: s.newID(), CategoryID: in.CategoryID, CategoryName: s.cats[ci].Name, Limit: in.Limit}
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.budgets, id, func(b core.Budget) string { return b.ID })
	if i < 0 {
		return fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	s.budgets = append(s.budgets[:i:i], s.budgets[i+1:]...)
	return nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.goals...), nil
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	g.Name = strings.TrimSpace(g.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.newID()
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	g.Name = strings.TrimSpace(g.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.goals, g.ID, func(g core.Goal) string { return g.ID })
	if i < 0 {
		return core.Goal{}, fmt.Errorf("goal %s: %w", g.ID, ErrNotFound)
	}
	s.goals[i] = g
	return g, nil
}

func (s *Store) Contribute(_ context.Context, id string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.goals, id, func(g core.Goal) string { return g.ID })
	if i < 0 {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	s.goals[i] = s.goals[i].Contribute(amount)
	return s.goals[i], nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.goals, id, func(g core.Goal) string { return g.ID })
	if i < 0 {
		return fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	s.goals = append(s.goals[:i:i], s.goals[i+1:]...)
	return nil
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, it := range items {
		if key(it) == id {
			return i
		}
	}
	return -1
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
