// Package adapters turns a local record store into the full set of ports the
// HTTP layer needs, deriving what a remote service would otherwise compute.
package adapters

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"spendview/internal/chat"
	"spendview/internal/core"
	"spendview/internal/forecast"
	"spendview/internal/log"
	"spendview/internal/ports"
	"spendview/internal/viewmodel"
)

// Store is the record keeping shared by the memory and sqlite backends.
// Budget limits come back without spending figures.
type Store interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListBudgetLimits(ctx context.Context) ([]core.Budget, error)
	SaveBudgetLimit(ctx context.Context, in core.BudgetInput) (core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error

	ListGoals(ctx context.Context) ([]core.Goal, error)
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
	Contribute(ctx context.Context, id string, amount core.Money) (core.Goal, error)
}

// Local serves every backend port except authentication from a Store.
type Local struct {
	Store
	loc       *time.Location
	now       func() time.Time
	predictor forecast.Predictor
	responder chat.Responder
	logger    *log.Logger
}

type Option func(*Local)

// WithClock fixes "today" for budgets, forecasts and chat answers.
func WithClock(now func() time.Time) Option {
	return func(l *Local) { l.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Local) { l.logger = logger.WithComponent(log.ComponentBackend) }
}

func NewLocal(store Store, loc *time.Location, opts ...Option) *Local {
	if loc == nil {
		loc = time.Local
	}
	l := &Local{
		Store:     store,
		loc:       loc,
		now:       time.Now,
		predictor: forecast.New(),
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.responder = chat.Responder{Now: l.today}
	return l
}

func (l *Local) today() time.Time {
	return l.now().In(l.loc)
}

// ListBudgets fills in spending: Spent covers the current month, TotalSpent
// all time, both matched on the category name.
func (l *Local) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	limits, err := l.ListBudgetLimits(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := l.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	now := l.today()
	thisMonth := viewmodel.ApplyPeriod(expenses, viewmodel.Period{Month: int(now.Month()), Year: now.Year()})
	monthly := totalsByCategory(thisMonth)
	total := totalsByCategory(expenses)

	out := make([]core.Budget, 0, len(limits))
	for _, b := range limits {
		out = append(out, withSpending(b, monthly[b.CategoryName], total[b.CategoryName]))
	}
	return out, nil
}

func (l *Local) SaveBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	b, err := l.SaveBudgetLimit(ctx, in)
	if err != nil {
		return core.Budget{}, err
	}
	all, err := l.ListBudgets(ctx)
	if err != nil {
		return b, nil
	}
	for _, full := range all {
		if full.ID == b.ID {
			return full, nil
		}
	}
	return withSpending(b, core.Money{}, core.Money{}), nil
}

func totalsByCategory(expenses []core.Expense) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, a := range viewmodel.AggregateByCategory(expenses) {
		out[a.Category] = a.Total
	}
	return out
}

func withSpending(b core.Budget, spent, total core.Money) core.Budget {
	b.Spent = spent
	b.TotalSpent = total
	b.Remaining = b.Limit.Sub(spent)
	if b.Limit.Cents > 0 {
		b.Percentage, _ = spent.Decimal().Div(b.Limit.Decimal()).Shift(2).Round(2).Float64()
	}
	return b
}

func (l *Local) Forecasts(ctx context.Context) ([]core.CategoryForecast, error) {
	expenses, err := l.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return l.predictor.Predict(expenses, l.today()), nil
}

func (l *Local) Ask(ctx context.Context, query string) (string, error) {
	expenses, err := l.ListExpenses(ctx)
	if err != nil {
		return "", err
	}
	return l.responder.Answer(query, expenses), nil
}

// CSVContentType is the media type of local exports.
const CSVContentType = "text/csv; charset=utf-8"

// Export writes the period's expenses as CSV ordered by date.
func (l *Local) Export(ctx context.Context, format string, month, year int) (ports.Download, error) {
	req := viewmodel.ExportRequest{Format: strings.ToLower(format), Period: viewmodel.Period{Month: month, Year: year}}
	if err := req.Validate(); err != nil {
		return ports.Download{}, err
	}
	expenses, err := l.ListExpenses(ctx)
	if err != nil {
		return ports.Download{}, err
	}
	selected := viewmodel.SortExpenses(viewmodel.ApplyPeriod(expenses, req.Period), viewmodel.SortByDate, viewmodel.Asc)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "description", "category", "amount"}); err != nil {
		return ports.Download{}, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range selected {
		if err := w.Write([]string{e.Date.String(), e.Description, e.Category, e.Amount.String()}); err != nil {
			return ports.Download{}, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return ports.Download{}, fmt.Errorf("flush csv: %w", err)
	}

	l.logger.InfoContext(ctx, "Export generated",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(selected),
		log.FieldMonth, month,
		log.FieldYear, year)

	return ports.Download{Body: io.NopCloser(&buf), ContentType: CSVContentType}, nil
}

var (
	_ ports.ExpenseLister  = (*Local)(nil)
	_ ports.ExpenseWriter  = (*Local)(nil)
	_ ports.ExpenseDeleter = (*Local)(nil)
	_ ports.CategoryStore  = (*Local)(nil)
	_ ports.BudgetStore    = (*Local)(nil)
	_ ports.GoalStore      = (*Local)(nil)
	_ ports.ForecastReader = (*Local)(nil)
	_ ports.Assistant      = (*Local)(nil)
	_ ports.Exporter       = (*Local)(nil)
)
