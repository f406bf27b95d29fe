// Package ports declares the outbound interfaces the HTTP layer and the
// worker depend on. The REST client and the local stores implement them.
package ports

import (
	"context"
	"io"

	"spendview/internal/core"
)

type (
	// ExpenseLister returns the user's full expense set.
	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
	}

	ExpenseDeleter interface {
		DeleteExpense(ctx context.Context, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, name string) (core.Category, error)
		DeleteCategory(ctx context.Context, id string) error
	}

	// BudgetStore lists budgets with their spending figures already computed.
	// SaveBudget replaces the existing budget of the same category.
	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		SaveBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error)
		DeleteBudget(ctx context.Context, id string) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context) ([]core.Goal, error)
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		DeleteGoal(ctx context.Context, id string) error
		Contribute(ctx context.Context, id string, amount core.Money) (core.Goal, error)
	}

	ForecastReader interface {
		Forecasts(ctx context.Context) ([]core.CategoryForecast, error)
	}

	// Assistant answers free-text questions about the user's spending.
	Assistant interface {
		Ask(ctx context.Context, query string) (string, error)
	}

	// Exporter streams the expenses of a period. Month and year are 0 for
	// "all". The caller closes Body.
	Exporter interface {
		Export(ctx context.Context, format string, month, year int) (Download, error)
	}

	// Authenticator is only implemented by backends with user accounts.
	// Account changes return a fresh token that replaces the old one.
	Authenticator interface {
		Login(ctx context.Context, username, password string) (token string, err error)
		Register(ctx context.Context, r core.Registration) (token string, err error)
		Profile(ctx context.Context) (core.Profile, error)
		ChangePassword(ctx context.Context, current, next string) (token string, err error)
		UpdateUsername(ctx context.Context, username string) (token string, err error)
		UpdateEmail(ctx context.Context, email string) (token string, err error)
		RequestPasswordReset(ctx context.Context, email string) error
		ValidateResetToken(ctx context.Context, uid, token string) (bool, error)
		ResetPassword(ctx context.Context, r core.PasswordReset) (token string, err error)
	}
)

// Download is an export body with its media type.
type Download struct {
	Body        io.ReadCloser
	ContentType string
}
