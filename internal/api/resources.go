package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"spendview/internal/core"
	"spendview/internal/log"
	"spendview/internal/ports"
)

var (
	_ ports.ExpenseLister  = (*Client)(nil)
	_ ports.ExpenseWriter  = (*Client)(nil)
	_ ports.ExpenseDeleter = (*Client)(nil)
	_ ports.CategoryStore  = (*Client)(nil)
	_ ports.BudgetStore    = (*Client)(nil)
	_ ports.GoalStore      = (*Client)(nil)
	_ ports.ForecastReader = (*Client)(nil)
	_ ports.Assistant      = (*Client)(nil)
	_ ports.Exporter       = (*Client)(nil)
	_ ports.Authenticator  = (*Client)(nil)
)

// ListExpenses fetches every expense. Records with a malformed amount or
// date are dropped and counted in a warning.
func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var raw []wireExpense
	if err := c.do(ctx, http.MethodGet, "/expenses/", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(raw))
	dropped := 0
	for _, w := range raw {
		e, err := w.expense(c.loc)
		if err != nil {
			dropped++
			c.logger.DebugContext(ctx, "Dropping malformed expense", log.FieldError, err)
			continue
		}
		out = append(out, e)
	}
	if dropped > 0 {
		c.logger.WarnContext(ctx, "Dropped malformed expense records",
			log.FieldOperation, log.OpDecode, log.FieldDropped, dropped, log.FieldCount, len(out))
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	var w wireExpense
	if err := c.do(ctx, http.MethodPost, "/expenses/", nil, toNewExpenseBody(e), &w); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	created, err := w.expense(c.loc)
	if err != nil {
		// Stored upstream but echoed back oddly; the input is authoritative.
		c.logger.WarnContext(ctx, "Unreadable create response", log.FieldError, err)
		return e.Expense(string(w.ID)), nil
	}
	return created, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id)+"/", nil, nil, nil); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var raw []wireCategory
	if err := c.do(ctx, http.MethodGet, "/categories/", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(raw))
	for _, w := range raw {
		out = append(out, w.category())
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	if err := core.ValidateCategoryName(name); err != nil {
		return core.Category{}, fmt.Errorf("validation failed: %w", err)
	}
	var w wireCategory
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/categories/", nil, body, &w); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return w.category(), nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id)+"/", nil, nil, nil); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var raw []wireBudget
	if err := c.do(ctx, http.MethodGet, "/budgets/", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(raw))
	for _, w := range raw {
		b, err := w.budget()
		if err != nil {
			c.logger.WarnContext(ctx, "Dropping malformed budget", log.FieldError, err)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *Client) SaveBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("validation failed: %w", err)
	}
	var w wireBudget
	body := budgetBody{Category: in.CategoryID, Limit: in.Limit.String()}
	if err := c.do(ctx, http.MethodPost, "/budgets/", nil, body, &w); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	b, err := w.budget()
	if err != nil {
		return core.Budget{ID: string(w.ID), CategoryID: in.CategoryID, Limit: in.Limit}, nil
	}
	return b, nil
}

func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/budgets/"+url.PathEscape(id)+"/", nil, nil, nil); err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListGoals(ctx context.Context) ([]core.Goal, error) {
	var raw []wireGoal
	if err := c.do(ctx, http.MethodGet, "/goals/", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, 0, len(raw))
	for _, w := range raw {
		g, err := w.goal(c.loc)
		if err != nil {
			c.logger.WarnContext(ctx, "Dropping malformed goal", log.FieldError, err)
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (c *Client) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	return c.writeGoal(ctx, http.MethodPost, "/goals/", toGoalBody(g))
}

func (c *Client) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	return c.writeGoal(ctx, http.MethodPut, "/goals/"+url.PathEscape(g.ID)+"/", toGoalBody(g))
}

// Contribute adds amount to the goal's savings on the server.
func (c *Client) Contribute(ctx context.Context, id string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validation failed: %w", err)
	}
	body := map[string]string{"amount": amount.String()}
	return c.writeGoal(ctx, http.MethodPost, "/goals/"+url.PathEscape(id)+"/update_contribution/", body)
}

func (c *Client) writeGoal(ctx context.Context, method, path string, body any) (core.Goal, error) {
	var w wireGoal
	if err := c.do(ctx, method, path, nil, body, &w); err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	g, err := w.goal(c.loc)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	return g, nil
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/goals/"+url.PathEscape(id)+"/", nil, nil, nil); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	return nil
}

// Forecasts fetches per-category predictions. A category with a malformed
// point is dropped entirely rather than charted with holes.
func (c *Client) Forecasts(ctx context.Context) ([]core.CategoryForecast, error) {
	var raw []wirePrediction
	if err := c.do(ctx, http.MethodGet, "/predictions/", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	out := make([]core.CategoryForecast, 0, len(raw))
	for _, w := range raw {
		f, err := w.forecast()
		if err != nil {
			c.logger.WarnContext(ctx, "Dropping malformed prediction", log.FieldError, err)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Ask sends a question to the remote assistant.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/chatbot/", nil, map[string]string{"query": query}, &out); err != nil {
		return "", fmt.Errorf("ask assistant: %w", err)
	}
	return out.Response, nil
}

// Export streams /export/{format}/. The per-call deadline stays active until
// the body is closed.
func (c *Client) Export(ctx context.Context, format string, month, year int) (ports.Download, error) {
	q := url.Values{}
	if month != 0 {
		q.Set("month", strconv.Itoa(month))
	}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	ctx, cancel := c.withDeadline(ctx)
	resp, err := c.send(ctx, http.MethodGet, "/export/"+url.PathEscape(format)+"/", q, nil)
	if err != nil {
		cancel()
		return ports.Download{}, fmt.Errorf("export %s: %w", format, err)
	}
	return ports.Download{
		Body:        cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r cancelOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
