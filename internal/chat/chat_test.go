package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"spendview/internal/core"
)

func exp(cents int64, desc, category string, y, m, d int) core.Expense {
	return core.Expense{
		Amount: core.Money{Cents: cents}, Description: desc, Category: category,
		Date: core.NewDateIn(y, m, d, time.UTC),
	}
}

var sample = []core.Expense{
	exp(1000, "Groceries", "Food", 2024, 3, 2),
	exp(20000, "Rent March", "Rent", 2024, 3, 1),
	exp(500, "Bus", "Transport", 2024, 2, 10),
	exp(3000, "Dinner", "Food", 2024, 2, 14),
}

func responder() Responder {
	return Responder{Now: func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }}
}

func TestAnswerIntents(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"What is my total spending?", "Your total spending is 245.00."},
		{"total for FOOD", "Your total spending on Food is 40.00."},
		{"How much did I spend on food this month?", "You spent 10.00 on Food this month across 1 expenses."},
		{"this month", "You spent 210.00 this month across 2 expenses."},
		{"average expense", "Your average expense is 61.25."},
		{"how many expenses", "You have recorded 4 expenses."},
		{"highest expense", `Your highest expense was 200.00 for "Rent March" (Rent) on 2024-03-01.`},
		{"What is my average expense this month?", "Your average expense this month is 105.00."},
		{"average food expense this month", "Your average expense on Food this month is 10.00."},
		{"count my expenses", "You have recorded 4 expenses."},
		{"how many expenses this month", "You have recorded 2 expenses this month."},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, responder().Answer(tc.query, sample))
		})
	}
}

func TestAnswerTopCategories(t *testing.T) {
	got := responder().Answer("top categories", sample)
	assert.Equal(t, []string{
		"Your top spending categories are:",
		"Rent: 200.00",
		"Food: 40.00",
		"Transport: 5.00",
	}, Lines(got))
	assert.Equal(t, 3, strings.Count(got, Bullet))
}

func TestAnswerFallbackAndEmpty(t *testing.T) {
	got := responder().Answer("tell me a joke", sample)
	assert.True(t, strings.HasPrefix(got, "I can answer questions like:"))
	assert.Len(t, Lines(got), len(suggestions)+1)

	assert.Equal(t, responder().Answer("", sample), got)
	assert.Equal(t, got, responder().Answer("any discount on my account?", sample))
	assert.Equal(t, "You have no expenses yet.", responder().Answer("highest", nil))
	assert.Equal(t, "You have no expenses yet.", responder().Answer("average", nil))
}
