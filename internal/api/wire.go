package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"spendview/internal/core"
)

// id accepts both numeric and string primary keys.
type id string

func (i *id) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		*i = ""
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*i = id(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*i = id(n.String())
	return nil
}

type wireExpense struct {
	ID          id              `json:"id"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
}

func (w wireExpense) expense(loc *time.Location) (core.Expense, error) {
	amount, err := core.ParseMoneyJSON(w.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s amount %s: %w", w.ID, w.Amount, err)
	}
	date, err := core.ParseDate(w.Date, loc)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: %w", w.ID, err)
	}
	return core.Expense{
		ID:          string(w.ID),
		Amount:      amount,
		Description: w.Description,
		Category:    w.Category,
		Date:        date,
	}, nil
}

type newExpenseBody struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func toNewExpenseBody(e core.NewExpense) newExpenseBody {
	return newExpenseBody{
		Amount:      e.Amount.String(),
		Description: strings.TrimSpace(e.Description),
		Category:    e.Category,
		Date:        e.Date.Format(core.DateLayout),
	}
}

type wireCategory struct {
	ID   id     `json:"id"`
	Name string `json:"name"`
}

func (w wireCategory) category() core.Category {
	return core.Category{ID: string(w.ID), Name: w.Name}
}

type wireBudget struct {
	ID           id              `json:"id"`
	Category     id              `json:"category"`
	CategoryName string          `json:"category_name"`
	Limit        json.RawMessage `json:"limit"`
	Spent        json.RawMessage `json:"spent"`
	TotalSpent   json.RawMessage `json:"total_spent"`
	Percentage   json.RawMessage `json:"percentage"`
	Remaining    json.RawMessage `json:"remaining"`
}

// budget converts the record. The limit must be valid; derived figures the
// server omitted default to zero.
func (w wireBudget) budget() (core.Budget, error) {
	limit, err := core.ParseMoneyJSON(w.Limit)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s limit: %w", w.ID, err)
	}
	b := core.Budget{
		ID:           string(w.ID),
		CategoryID:   string(w.Category),
		CategoryName: w.CategoryName,
		Limit:        limit,
	}
	optional := func(raw json.RawMessage, signed bool) (core.Money, error) {
		if len(raw) == 0 || string(raw) == "null" {
			return core.Money{}, nil
		}
		if signed {
			return core.ParseSignedMoneyJSON(raw)
		}
		return core.ParseMoneyJSON(raw)
	}
	if b.Spent, err = optional(w.Spent, false); err != nil {
		return core.Budget{}, fmt.Errorf("budget %s spent: %w", w.ID, err)
	}
	if b.TotalSpent, err = optional(w.TotalSpent, false); err != nil {
		return core.Budget{}, fmt.Errorf("budget %s total_spent: %w", w.ID, err)
	}
	if b.Remaining, err = optional(w.Remaining, true); err != nil {
		return core.Budget{}, fmt.Errorf("budget %s remaining: %w", w.ID, err)
	}
	if len(w.Percentage) > 0 && string(w.Percentage) != "null" {
		d, err := core.ParseDecimalJSON(w.Percentage)
		if err != nil {
			return core.Budget{}, fmt.Errorf("budget %s percentage: %w", w.ID, err)
		}
		b.Percentage, _ = d.Float64()
	}
	return b, nil
}

type budgetBody struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
}

type wireGoal struct {
	ID            id              `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  json.RawMessage `json:"targetAmount"`
	CurrentAmount json.RawMessage `json:"currentAmount"`
	Deadline      string          `json:"deadline"`
}

func (w wireGoal) goal(loc *time.Location) (core.Goal, error) {
	target, err := core.ParseMoneyJSON(w.TargetAmount)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s target: %w", w.ID, err)
	}
	current := core.Money{}
	if len(w.CurrentAmount) > 0 && string(w.CurrentAmount) != "null" {
		if current, err = core.ParseMoneyJSON(w.CurrentAmount); err != nil {
			return core.Goal{}, fmt.Errorf("goal %s current: %w", w.ID, err)
		}
	}
	deadline, err := core.ParseDate(w.Deadline, loc)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s: %w", w.ID, err)
	}
	return core.Goal{
		ID:       string(w.ID),
		Name:     w.Name,
		Target:   target,
		Current:  current,
		Deadline: deadline,
	}, nil
}

type goalBody struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"targetAmount"`
	CurrentAmount string `json:"currentAmount"`
	Deadline      string `json:"deadline"`
}

func toGoalBody(g core.Goal) goalBody {
	return goalBody{
		Name:          strings.TrimSpace(g.Name),
		TargetAmount:  g.Target.String(),
		CurrentAmount: g.Current.String(),
		Deadline:      g.Deadline.Format(core.DateLayout),
	}
}

type wirePrediction struct {
	Category    string `json:"category"`
	Predictions []struct {
		Month           string          `json:"month"`
		PredictedAmount json.RawMessage `json:"predicted_amount"`
	} `json:"predictions"`
}

func (w wirePrediction) forecast() (core.CategoryForecast, error) {
	f := core.CategoryForecast{Category: w.Category, Points: make([]core.ForecastPoint, 0, len(w.Predictions))}
	for _, p := range w.Predictions {
		amount, err := core.ParseMoneyJSON(p.PredictedAmount)
		if err != nil {
			return core.CategoryForecast{}, fmt.Errorf("prediction %s/%s: %w", w.Category, p.Month, err)
		}
		f.Points = append(f.Points, core.ForecastPoint{Month: p.Month, Amount: amount})
	}
	return f, nil
}

type wireProfile struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	DateJoined string `json:"date_joined"`
}

type tokenResponse struct {
	Token string `json:"token"`
}
