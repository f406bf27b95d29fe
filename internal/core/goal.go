package core

import (
	"errors"
	"strings"
	"time"
)

// Goal is a savings target with a deadline.
type Goal struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Target   Money  `json:"targetAmount"`
	Current  Money  `json:"currentAmount"`
	Deadline Date   `json:"deadline"`
}

const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalOverdue   = "overdue"
)

var ErrInvalidTarget = errors.New("target amount must be positive")

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidTarget
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	return g.Deadline.Validate()
}

// Progress returns current/target as a percentage. It is not capped at 100.
func (g Goal) Progress() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	v, _ := g.Current.Decimal().Div(g.Target.Decimal()).Shift(2).Float64()
	return v
}

// DaysRemaining counts whole calendar days from today until the deadline;
// negative once the deadline has passed.
func (g Goal) DaysRemaining(today time.Time) int {
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(g.Deadline.Year(), g.Deadline.Time.Month(), g.Deadline.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

func (g Goal) Completed() bool {
	return g.Current.Cents >= g.Target.Cents
}

// Status is completed when the target is reached, overdue once the deadline
// passed without reaching it, active otherwise.
func (g Goal) Status(today time.Time) string {
	switch {
	case g.Completed():
		return GoalCompleted
	case g.DaysRemaining(today) < 0:
		return GoalOverdue
	default:
		return GoalActive
	}
}

// Contribute returns the goal with amount added to the current savings.
func (g Goal) Contribute(amount Money) Goal {
	g.Current = g.Current.Add(amount)
	return g
}
