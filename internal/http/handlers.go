package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"spendview/internal/api"
	"spendview/internal/core"
	"spendview/internal/log"
	"spendview/internal/viewmodel"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady probes the backend with a category list. An authentication
// failure still proves the remote API answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.backend == nil {
		checks["backend"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if _, err := s.backend.ListCategories(ctx); err != nil && !errors.Is(err, api.ErrUnauthorized) {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	checks["cache"] = map[string]any{
		"snapshot_entries": s.snapshots.Size(),
		"status":           "ok",
	}
	checks["rate_limiter"] = s.rateLimiter.GetMetrics()
	checks["security"] = s.detector.GetMetrics()
	checks["requests"] = s.tracer.GetMetrics()

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

type tokenResponse struct {
	Token string `json:"token"`
}

// accounts answers 501 and returns false when the backend has no accounts.
func (s *Server) accounts(w http.ResponseWriter) bool {
	if s.auth == nil {
		NotImplementedError("Accounts are not available with this backend").Write(w)
		return false
	}
	return true
}

var errPasswordRequired = fmt.Errorf("%w: password is required", errInvalidParam)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	username, password := p.Get("username"), p.Raw("password")
	switch {
	case username == "":
		s.fail(w, r, log.OpValidate, core.ErrEmptyUsername)
		return
	case password == "":
		s.fail(w, r, log.OpValidate, errPasswordRequired)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	token, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.fail(w, r, "login", err)
		return
	}
	NewJSONResponse().Body(tokenResponse{Token: token}).Write(w)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	reg := core.Registration{
		Username: p.Get("username"),
		Email:    p.Get("email"),
		Password: p.Raw("password"),
	}
	if err := reg.Validate(); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	token, err := s.auth.Register(ctx, reg)
	if err != nil {
		s.fail(w, r, "register", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(tokenResponse{Token: token}).Write(w)
}

type profileView struct {
	Profile       core.Profile `json:"profile"`
	ExpenseCount  int          `json:"expense_count"`
	CategoryCount int          `json:"category_count"`
	TotalSpent    core.Money   `json:"total_spent"`
}

// handleProfile fetches the profile, the expenses and the categories in
// parallel; the first failure cancels the rest.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	ctx, cancel := s.upstream(r)
	defer cancel()

	var (
		profile  core.Profile
		expenses []core.Expense
		cats     []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = s.auth.Profile(gctx)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.expenses(gctx, r)
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.backend.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	NewJSONResponse().Body(profileView{
		Profile:       profile,
		ExpenseCount:  len(expenses),
		CategoryCount: len(cats),
		TotalSpent:    viewmodel.Summarize(expenses).Total,
	}).Write(w)
}

// accountChange runs an account update that hands back a fresh token. The
// old token's snapshot is dropped.
func (s *Server) accountChange(w http.ResponseWriter, r *http.Request, op string, call func(ctx context.Context) (string, error)) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	token, err := call(ctx)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.invalidate(r)
	NewJSONResponse().Body(tokenResponse{Token: token}).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	current, next := p.Raw("current_password"), p.Raw("new_password")
	if current == "" {
		s.fail(w, r, log.OpValidate, errPasswordRequired)
		return
	}
	if err := core.ValidatePassword(next); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	s.accountChange(w, r, "change_password", func(ctx context.Context) (string, error) {
		return s.auth.ChangePassword(ctx, current, next)
	})
}

func (s *Server) handleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	username := p.Get("username")
	if username == "" {
		s.fail(w, r, log.OpValidate, core.ErrEmptyUsername)
		return
	}
	s.accountChange(w, r, "update_username", func(ctx context.Context) (string, error) {
		return s.auth.UpdateUsername(ctx, username)
	})
}

func (s *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	email := p.Get("email")
	if err := core.ValidateEmail(email); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	s.accountChange(w, r, "update_email", func(ctx context.Context) (string, error) {
		return s.auth.UpdateEmail(ctx, email)
	})
}

func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	email := p.Get("email")
	if err := core.ValidateEmail(email); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	if err := s.auth.RequestPasswordReset(ctx, email); err != nil {
		s.fail(w, r, "password_reset", err)
		return
	}
	NewJSONResponse().Status(http.StatusAccepted).Body(map[string]string{"status": "sent"}).Write(w)
}

func (s *Server) handlePasswordResetValidate(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	uid, token := p.Get("uid"), p.Get("token")
	if uid == "" || token == "" {
		s.fail(w, r, log.OpValidate, fmt.Errorf("%w: uid and token are required", errInvalidParam))
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	valid, err := s.auth.ValidateResetToken(ctx, uid, token)
	if err != nil {
		s.fail(w, r, "password_reset", err)
		return
	}
	NewJSONResponse().Body(map[string]bool{"valid": valid}).Write(w)
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	if !s.accounts(w) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	reset := core.PasswordReset{
		UID:         p.Get("uid"),
		Token:       p.Get("token"),
		NewPassword: p.Raw("new_password"),
	}
	if reset.UID == "" || reset.Token == "" {
		s.fail(w, r, log.OpValidate, fmt.Errorf("%w: uid and token are required", errInvalidParam))
		return
	}
	if err := core.ValidatePassword(reset.NewPassword); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := s.upstream(r)
	defer cancel()
	token, err := s.auth.ResetPassword(ctx, reset)
	if err != nil {
		s.fail(w, r, "password_reset", err)
		return
	}
	NewJSONResponse().Body(tokenResponse{Token: token}).Write(w)
}
