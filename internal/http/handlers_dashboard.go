package http

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"spendview/internal/core"
	"spendview/internal/log"
	"spendview/internal/viewmodel"
)

// handleDashboard serves totals, aggregates and the latest expenses for the
// selected month and year.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	expenses, err := s.expenses(ctx, r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(viewmodel.BuildDashboard(expenses, period)).Write(w)
}

// handleHistory filters, sorts and paginates the expenses for the state
// carried in the query.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	state, err := ParseHistoryState(r.URL.Query(), s.loc, s.pageSize)
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	expenses, err := s.expenses(ctx, r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	h := viewmodel.NewHistory(expenses)
	h.Sorter = s.sorter
	NewJSONResponse().Body(h.Apply(state).View()).Write(w)
}

type budgetView struct {
	core.Budget
	OverBudget   bool    `json:"over_budget"`
	UsageLevel   string  `json:"usage_level"`
	ShareOfTotal float64 `json:"share_of_total"`
}

type budgetsPage struct {
	Budgets []budgetView `json:"budgets"`
	// Categories lists every category; Unbudgeted those still without a limit.
	Categories []core.Category `json:"categories"`
	Unbudgeted []core.Category `json:"unbudgeted"`
}

func newBudgetView(b core.Budget) budgetView {
	return budgetView{
		Budget:       b,
		OverBudget:   b.OverBudget(),
		UsageLevel:   b.UsageLevel(),
		ShareOfTotal: b.ShareOfTotal(),
	}
}

// handleBudgetsView fetches budgets and categories in parallel.
func (s *Server) handleBudgetsView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()

	var (
		budgets []core.Budget
		cats    []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		budgets, err = s.backend.ListBudgets(gctx)
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.backend.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	page := budgetsPage{
		Budgets:    make([]budgetView, 0, len(budgets)),
		Categories: cats,
		Unbudgeted: []core.Category{},
	}
	if page.Categories == nil {
		page.Categories = []core.Category{}
	}
	budgeted := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		page.Budgets = append(page.Budgets, newBudgetView(b))
		budgeted[b.CategoryID] = true
	}
	for _, c := range cats {
		if !budgeted[c.ID] {
			page.Unbudgeted = append(page.Unbudgeted, c)
		}
	}
	NewJSONResponse().Body(page).Write(w)
}

type goalView struct {
	core.Goal
	Progress      float64 `json:"progress"`
	DaysRemaining int     `json:"days_remaining"`
	Completed     bool    `json:"completed"`
	Status        string  `json:"status"`
}

func (s *Server) newGoalView(g core.Goal) goalView {
	today := s.now().In(s.loc)
	return goalView{
		Goal:          g,
		Progress:      g.Progress(),
		DaysRemaining: g.DaysRemaining(today),
		Completed:     g.Completed(),
		Status:        g.Status(today),
	}
}

func (s *Server) handleGoalsView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	goals, err := s.backend.ListGoals(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, s.newGoalView(g))
	}
	NewJSONResponse().Body(map[string]any{"goals": views}).Write(w)
}

type predictionsView struct {
	Category       string                  `json:"category"`
	Categories     []string                `json:"categories"`
	Chart          viewmodel.ForecastChart `json:"chart"`
	NextMonthTotal core.Money              `json:"next_month_total"`
}

// handlePredictions charts the forecasts for ?category= (all by default).
// The next-month total always covers every category.
func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(r.URL.Query().Get("category"))
	if category == "" || strings.EqualFold(category, viewmodel.AllCategories) {
		category = viewmodel.AllCategories
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	forecasts, err := s.backend.Forecasts(ctx)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	names := make([]string, 0, len(forecasts))
	for _, f := range forecasts {
		names = append(names, f.Category)
	}
	NewJSONResponse().Body(predictionsView{
		Category:       category,
		Categories:     names,
		Chart:          viewmodel.BuildForecastChart(forecasts, category),
		NextMonthTotal: viewmodel.NextMonthTotal(forecasts),
	}).Write(w)
}
