package http

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"spendview/internal/chat"
	"spendview/internal/core"
	"spendview/internal/log"
	"spendview/internal/viewmodel"
)

// maxQueryLength bounds chat questions.
const maxQueryLength = 500

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	expenses, err := s.expenses(ctx, r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	NewJSONResponse().Body(map[string]any{"expenses": expenses}).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	amount, err := p.Money("amount")
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	date, err := p.Date("date", s.loc)
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	in := core.NewExpense{
		Amount:      amount,
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Date:        date,
	}
	if err := in.Validate(); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	created, err := s.backend.CreateExpense(ctx, in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidate(r)
	s.events.LogExpenseWritten(ctx, log.OpCreate, log.ExpenseFields{
		ID: created.ID, AmountCents: created.Amount.Cents, Category: created.Category,
	})
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

// remove runs a confirmed delete of the {id} path value and drops the
// caller's snapshot. Without confirmation nothing reaches the backend.
func (s *Server) remove(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id string) error) {
	if !confirmed(r) {
		PreconditionRequiredError().Write(w)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		NotFoundError("Not found").Write(w)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	if err := del(ctx, id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(r)
	log.FromContext(ctx).InfoContext(ctx, "Deleted",
		log.FieldOperation, log.OpDelete, log.FieldPath, r.URL.Path)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.backend.DeleteExpense)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	cats, err := s.backend.ListCategories(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewJSONResponse().Body(map[string]any{"categories": cats}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	name := p.Get("name")
	if err := core.ValidateCategoryName(name); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	cat, err := s.backend.CreateCategory(ctx, name)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(cat).Write(w)
}

// handleDeleteCategory leaves expenses filed under the category as they are.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.backend.DeleteCategory)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	budgets, err := s.backend.ListBudgets(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	views := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, newBudgetView(b))
	}
	NewJSONResponse().Body(map[string]any{"budgets": views}).Write(w)
}

// handleSaveBudget creates the category's budget or replaces its limit.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	limit, err := p.Money("limit")
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	in := core.BudgetInput{CategoryID: p.Get("category"), Limit: limit}
	if err := in.Validate(); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	saved, err := s.backend.SaveBudget(ctx, in)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newBudgetView(saved)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.backend.DeleteBudget)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	goals, err := s.backend.ListGoals(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	NewJSONResponse().Body(map[string]any{"goals": goals}).Write(w)
}

// goalInput reads a goal body. The current amount defaults to zero.
func (s *Server) goalInput(p *RequestBodyParser, id string) (core.Goal, error) {
	target, err := p.Money("targetAmount")
	if err != nil {
		return core.Goal{}, fmt.Errorf("targetAmount: %w", err)
	}
	var current core.Money
	if p.Has("currentAmount") && p.Get("currentAmount") != "" {
		if current, err = p.Money("currentAmount"); err != nil {
			return core.Goal{}, fmt.Errorf("currentAmount: %w", err)
		}
	}
	deadline, err := p.Date("deadline", s.loc)
	if err != nil {
		return core.Goal{}, err
	}
	g := core.Goal{
		ID:       id,
		Name:     p.Get("name"),
		Target:   target,
		Current:  current,
		Deadline: deadline,
	}
	return g, g.Validate()
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	g, err := s.goalInput(p, "")
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	created, err := s.backend.CreateGoal(ctx, g)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.newGoalView(created)).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	g, err := s.goalInput(p, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	updated, err := s.backend.UpdateGoal(ctx, g)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(s.newGoalView(updated)).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.backend.DeleteGoal)
}

// handleContribute adds a positive amount to a goal's savings.
func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	amount, err := p.Money("amount")
	if err == nil {
		err = amount.Validate()
	}
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	g, err := s.backend.Contribute(ctx, r.PathValue("id"), amount)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(s.newGoalView(g)).Write(w)
}

type chatResponse struct {
	Response string   `json:"response"`
	Lines    []string `json:"lines"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	query := p.Get("query")
	switch {
	case query == "":
		s.fail(w, r, log.OpValidate, fmt.Errorf("%w: query is required", errInvalidParam))
		return
	case len(query) > maxQueryLength:
		s.fail(w, r, log.OpValidate, fmt.Errorf("%w: query (max %d characters)", core.ErrTooLong, maxQueryLength))
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	answer, err := s.backend.Ask(ctx, query)
	if err != nil {
		s.fail(w, r, "chat", err)
		return
	}
	lines := chat.Lines(answer)
	if lines == nil {
		lines = []string{}
	}
	NewJSONResponse().Body(chatResponse{Response: answer, Lines: lines}).Write(w)
}

// handleExport streams the backend's export of the selected period as an
// attachment named after format and period.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	req := viewmodel.ExportRequest{Format: strings.ToLower(r.PathValue("format")), Period: period}
	if err := req.Validate(); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	dl, err := s.backend.Export(ctx, req.Format, period.Month, period.Year)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension("." + req.Format)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": req.Filename()}))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, dl.Body)
	if err != nil {
		s.events.LogError(ctx, "Export stream interrupted", err, log.ComponentExport, log.OpExport,
			log.NewFields().WithClientIP(s.detector.ExtractClientIP(r)))
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Export served",
		log.FieldOperation, log.OpExport, "bytes", n, "filename", req.Filename())
}
