package core

import (
	"math"
	"testing"
	"time"
)

func TestGoalDerivedFields(t *testing.T) {
	today := time.Date(2024, 3, 1, 15, 0, 0, 0, time.Local)
	cases := []struct {
		name     string
		goal     Goal
		progress float64
		days     int
		status   string
	}{
		{
			name:     "halfway",
			goal:     Goal{Name: "Bike", Target: Money{Cents: 100000}, Current: Money{Cents: 50000}, Deadline: NewDate(2024, 3, 31)},
			progress: 50,
			days:     30,
			status:   GoalActive,
		},
		{
			name:     "completed past deadline",
			goal:     Goal{Name: "Trip", Target: Money{Cents: 1000}, Current: Money{Cents: 1500}, Deadline: NewDate(2024, 2, 1)},
			progress: 150,
			days:     -29,
			status:   GoalCompleted,
		},
		{
			name:     "overdue",
			goal:     Goal{Name: "Car", Target: Money{Cents: 1000}, Current: Money{Cents: 100}, Deadline: NewDate(2024, 2, 28)},
			progress: 10,
			days:     -2,
			status:   GoalOverdue,
		},
		{
			name:     "zero target",
			goal:     Goal{Name: "Empty", Deadline: NewDate(2024, 3, 1)},
			progress: 0,
			days:     0,
			status:   GoalCompleted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.goal.Progress(); math.Abs(got-tc.progress) > 1e-9 {
				t.Fatalf("progress=%v want %v", got, tc.progress)
			}
			if got := tc.goal.DaysRemaining(today); got != tc.days {
				t.Fatalf("days=%d want %d", got, tc.days)
			}
			if got := tc.goal.Status(today); got != tc.status {
				t.Fatalf("status=%s want %s", got, tc.status)
			}
		})
	}
}

func TestGoalValidateAndContribute(t *testing.T) {
	g := Goal{Name: "Fund", Target: Money{Cents: 1000}, Deadline: NewDate(2030, 1, 1)}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Goal{Name: "x", Deadline: NewDate(2030, 1, 1)}).Validate(); err != ErrInvalidTarget {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	g = g.Contribute(Money{Cents: 250})
	if g.Current.Cents != 250 {
		t.Fatalf("unexpected current %d", g.Current.Cents)
	}
}

func TestBudgetDisplayHelpers(t *testing.T) {
	b := Budget{Limit: Money{Cents: 10000}, Spent: Money{Cents: 9500}, TotalSpent: Money{Cents: 40000}, Percentage: 95, Remaining: Money{Cents: 500}}
	if b.UsageLevel() != UsageCritical || b.OverBudget() {
		t.Fatalf("unexpected level=%s over=%v", b.UsageLevel(), b.OverBudget())
	}
	if got := b.ShareOfTotal(); math.Abs(got-25) > 1e-9 {
		t.Fatalf("share=%v want 25", got)
	}
	b.Percentage, b.Remaining = 75, Money{Cents: -100}
	if b.UsageLevel() != UsageWarning || !b.OverBudget() {
		t.Fatalf("unexpected level=%s over=%v", b.UsageLevel(), b.OverBudget())
	}
	if (Budget{}).ShareOfTotal() != 0 {
		t.Fatalf("share of empty budget should be 0")
	}
	if err := (BudgetInput{CategoryID: "1", Limit: Money{Cents: 1}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (BudgetInput{Limit: Money{Cents: 1}}).Validate(); err == nil {
		t.Fatalf("expected error for missing category")
	}
}
