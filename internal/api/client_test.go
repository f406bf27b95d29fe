package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendview/internal/core"
)

// fakeAPI records the last request and answers from a route table.
type fakeAPI struct {
	t       *testing.T
	routes  map[string]func(w http.ResponseWriter, r *http.Request)
	lastReq *http.Request
	body    map[string]any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastReq = r
		f.body = nil
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				assert.NoError(t, json.Unmarshal(raw, &f.body))
			}
		}
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", WithLocation(time.UTC), WithTimeout(2*time.Second))
	require.NoError(t, err)
	return f, c
}

func (f *fakeAPI) json(route string, status int, body string) {
	f.routes[route] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func userCtx() context.Context {
	return WithToken(context.Background(), "abc123")
}

func TestListExpensesNormalizesAndDrops(t *testing.T) {
	f, c := newFakeAPI(t)
	f.json("GET /api/expenses/", 200, `[
		{"id": 1, "amount": "100.00", "description": "groceries", "category": "Food", "date": "2024-01-05"},
		{"id": 2, "amount": 50, "description": "lunch", "category": "Food", "date": "2024-02-10T12:00:00Z"},
		{"id": 3, "amount": "abc", "description": "broken", "category": "Food", "date": "2024-02-10"},
		{"id": 4, "amount": "10", "description": "no date", "category": "Food", "date": "yesterday"},
		{"id": "x5", "amount": null, "description": "null amount", "category": "Food", "date": "2024-02-10"}
	]`)

	got, err := c.ListExpenses(userCtx())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, int64(10000), got[0].Amount.Cents)
	assert.Equal(t, int64(5000), got[1].Amount.Cents)
	assert.Equal(t, 10, got[1].Date.Day())
	assert.Equal(t, "Token abc123", f.lastReq.Header.Get("Authorization"))
}

func TestStaticTokenFallback(t *testing.T) {
	f, c := newFakeAPI(t)
	WithStaticToken("worker")(c)
	f.json("GET /api/categories/", 200, `[]`)

	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Token worker", f.lastReq.Header.Get("Authorization"))

	_, err = c.ListCategories(userCtx())
	require.NoError(t, err)
	assert.Equal(t, "Token abc123", f.lastReq.Header.Get("Authorization"))
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		target error
		msg    string
	}{
		{401, `{"detail": "Invalid token."}`, ErrUnauthorized, "Invalid token."},
		{403, ``, ErrUnauthorized, ""},
		{404, `{"error": "missing"}`, ErrNotFound, "missing"},
		{400, `{"name": ["This field is required."], "amount": ["Bad."]}`, ErrValidation, "amount: Bad.; name: This field is required."},
		{503, `upstream down`, ErrUnavailable, "upstream down"},
	}
	for _, tc := range cases {
		f, c := newFakeAPI(t)
		f.json("GET /api/goals/", tc.status, tc.body)
		_, err := c.ListGoals(userCtx())
		require.Error(t, err)
		assert.ErrorIs(t, err, tc.target, "status %d", tc.status)
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, tc.status, apiErr.Status)
		assert.Equal(t, tc.msg, apiErr.Message)
	}
}

func TestNetworkFailureIsUnavailable(t *testing.T) {
	c, err := New("http://127.0.0.1:1/api", WithTimeout(time.Second))
	require.NoError(t, err)
	_, err = c.ListExpenses(userCtx())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateExpenseSendsWireBody(t *testing.T) {
	f, c := newFakeAPI(t)
	f.json("POST /api/expenses/", 201, `{"id": 9, "amount": "12.30", "description": "taxi", "category": "Travel", "date": "2024-03-01"}`)

	got, err := c.CreateExpense(userCtx(), core.NewExpense{
		Amount:      core.Money{Cents: 1230},
		Description: " taxi ",
		Category:    "Travel",
		Date:        core.NewDateIn(2024, 3, 1, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "9", got.ID)
	assert.Equal(t, map[string]any{
		"amount": "12.30", "description": "taxi", "category": "Travel", "date": "2024-03-01",
	}, f.body)
	assert.Equal(t, "application/json", f.lastReq.Header.Get("Content-Type"))
}

func TestCreateExpenseValidatesLocally(t *testing.T) {
	f, c := newFakeAPI(t)
	_, err := c.CreateExpense(userCtx(), core.NewExpense{Description: "x", Category: "A"})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Nil(t, f.lastReq, "no upstream call for invalid input")
}

func TestDeleteUsesTrailingSlash(t *testing.T) {
	f, c := newFakeAPI(t)
	f.routes["DELETE /api/expenses/7/"] = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
	require.NoError(t, c.DeleteExpense(userCtx(), "7"))
	assert.ErrorIs(t, c.DeleteBudget(userCtx(), "7"), ErrNotFound)
}

func TestListBudgets(t *testing.T) {
	f, c := newFakeAPI(t)
	f.json("GET /api/budgets/", 200, `[
		{"id": 1, "category": 3, "category_name": "Food", "limit": "200.00", "spent": 250, "total_spent": "900.50", "percentage": 125.0, "remaining": "-50.00"},
		{"id": 2, "category": 4, "category_name": "Rent", "limit": "nope"}
	]`)
	got, err := c.ListBudgets(userCtx())
	require.NoError(t, err)
	require.Len(t, got, 1)
	b := got[0]
	assert.Equal(t, "3", b.CategoryID)
	assert.Equal(t, int64(-5000), b.Remaining.Cents)
	assert.Equal(t, int64(90050), b.TotalSpent.Cents)
	assert.InDelta(t, 125.0, b.Percentage, 0.001)
	assert.True(t, b.OverBudget())
	assert.Equal(t, core.UsageCritical, b.UsageLevel())
}

func TestGoalsRoundTrip(t *testing.T) {
	f, c := newFakeAPI(t)
	f.json("POST /api/goals/4/update_contribution/", 200,
		`{"id": 4, "name": "Bike", "targetAmount": "500.00", "currentAmount": "150.00", "deadline": "2025-06-01"}`)

	g, err := c.Contribute(userCtx(), "4", core.Money{Cents: 5000})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": "50.00"}, f.body)
	assert.Equal(t, int64(15000), g.Current.Cents)
	assert.InDelta(t, 30.0, g.Progress(), 0.001)

	f.json("PUT /api/goals/4/", 200,
		`{"id": 4, "name": "Bike", "targetAmount": "600.00", "currentAmount": "150.00", "deadline": "2025-06-01"}`)
	g.Target = core.Money{Cents: 60000}
	g, err = c.UpdateGoal(userCtx(), g)
	require.NoError(t, err)
	assert.Equal(t, "600.00", f.body["targetAmount"])
	assert.Equal(t, "2025-06-01", f.body["deadline"])
	assert.Equal(t, int64(60000), g.Target.Cents)
}

func TestForecasts(t *testing.T) {
	f, c := newFakeAPI(t)
	f.json("GET /api/predictions/", 200, `[
		{"category": "Food", "predictions": [{"month": "2025-01", "predicted_amount": 120.5}]},
		{"category": "Bad", "predictions": [{"month": "2025-01", "predicted_amount": "?"}]}
	]`)
	got, err := c.Forecasts(userCtx())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(12050), got[0].Points[0].Amount.Cents)
}

func TestAskAndExport(t *testing.T) {
	f, c := newFakeAPI(t)
	f.json("POST /api/chatbot/", 200, `{"response": "• Food: 150.00"}`)
	answer, err := c.Ask(userCtx(), "top categories?")
	require.NoError(t, err)
	assert.Equal(t, "• Food: 150.00", answer)
	assert.Equal(t, "top categories?", f.body["query"])

	f.routes["GET /api/export/csv/"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("month"))
		assert.Equal(t, "2024", r.URL.Query().Get("year"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "date,amount\n")
	}
	dl, err := c.Export(userCtx(), "csv", 3, 2024)
	require.NoError(t, err)
	defer dl.Body.Close()
	raw, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "date,amount\n", string(raw))
	assert.Equal(t, "text/csv", dl.ContentType)
}

func TestAuthFlows(t *testing.T) {
	f, c := newFakeAPI(t)
	f.json("POST /api/auth/login/", 200, `{"token": "t1"}`)
	tok, err := c.Login(context.Background(), "ann", "secret")
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.Empty(t, f.lastReq.Header.Get("Authorization"))

	f.json("POST /api/auth/update-email/", 200, `{"token": "t2"}`)
	tok, err = c.UpdateEmail(userCtx(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "t2", tok)
	assert.Equal(t, "ann@example.com", f.body["new_email"])

	f.json("POST /api/password-reset/validate-token/", 400, `{"error": "expired"}`)
	ok, err := c.ValidateResetToken(context.Background(), "u", "t")
	require.NoError(t, err)
	assert.False(t, ok)

	f.json("POST /api/auth/register/", 201, `{}`)
	_, err = c.Register(context.Background(), core.Registration{Username: "ann", Email: "ann@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, errNoToken)
}
