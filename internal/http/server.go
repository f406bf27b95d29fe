package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"spendview/internal/api"
	"spendview/internal/backend"
	"spendview/internal/cache"
	"spendview/internal/core"
	"spendview/internal/log"
	"spendview/internal/middleware/ratelimit"
	"spendview/internal/middleware/security"
	"spendview/internal/middleware/trace"
	"spendview/internal/ports"
	"spendview/internal/viewmodel"
)

// Options configures a Server. Zero values fall back to the defaults below.
type Options struct {
	Addr    string
	Backend backend.Backend
	// Auth is nil for backends without accounts; account routes answer 501.
	Auth ports.Authenticator

	Location           *time.Location
	Sorter             viewmodel.Sorter
	PageSize           int
	UpstreamTimeout    time.Duration
	SnapshotTTL        time.Duration
	SnapshotCacheSize  int
	RateLimitPerMinute int

	Logger *log.Logger
	Now    func() time.Time
}

const (
	defaultUpstreamTimeout = 7 * time.Second
	defaultSnapshotTTL     = 30 * time.Second
	defaultSnapshotSize    = 256
	cacheCleanupInterval   = time.Minute
)

// Server serves the JSON views and the passthrough CRUD endpoints.
type Server struct {
	http.Server

	backend backend.Backend
	auth    ports.Authenticator

	snapshots    *cache.Snapshots[core.Expense]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware

	logger *log.Logger
	events *log.StructuredLogger

	loc             *time.Location
	sorter          viewmodel.Sorter
	pageSize        int
	upstreamTimeout time.Duration
	now             func() time.Time
	started         time.Time

	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Sorter.Lang.IsRoot() {
		opts.Sorter = viewmodel.DefaultSorter
	}
	if opts.PageSize <= 0 {
		opts.PageSize = viewmodel.DefaultPageSize
	}
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = defaultUpstreamTimeout
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.SnapshotCacheSize <= 0 {
		opts.SnapshotCacheSize = defaultSnapshotSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		backend:         opts.Backend,
		auth:            opts.Auth,
		snapshots:       cache.NewSnapshots[core.Expense](opts.SnapshotCacheSize, opts.SnapshotTTL),
		cacheManager:    cache.NewManager(opts.Logger),
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:        security.NewDetector(),
		logger:          logger,
		events:          log.NewStructuredLogger(opts.Logger),
		loc:             opts.Location,
		sorter:          opts.Sorter,
		pageSize:        opts.PageSize,
		upstreamTimeout: opts.UpstreamTimeout,
		now:             opts.Now,
		started:         opts.Now(),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	s.cacheManager.Register(s.snapshots)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("GET /auth/profile", s.handleProfile)
	mux.HandleFunc("POST /auth/password", s.handleChangePassword)
	mux.HandleFunc("POST /auth/username", s.handleUpdateUsername)
	mux.HandleFunc("POST /auth/email", s.handleUpdateEmail)
	mux.HandleFunc("POST /auth/password-reset", s.handlePasswordResetRequest)
	mux.HandleFunc("POST /auth/password-reset/validate", s.handlePasswordResetValidate)
	mux.HandleFunc("POST /auth/password-reset/confirm", s.handlePasswordResetConfirm)

	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/history", s.handleHistory)
	mux.HandleFunc("GET /ui/budgets", s.handleBudgetsView)
	mux.HandleFunc("GET /ui/goals", s.handleGoalsView)
	mux.HandleFunc("GET /ui/predictions", s.handlePredictions)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /budgets", s.handleListBudgets)
	mux.HandleFunc("POST /budgets", s.handleSaveBudget)
	mux.HandleFunc("DELETE /budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /goals", s.handleListGoals)
	mux.HandleFunc("POST /goals", s.handleCreateGoal)
	mux.HandleFunc("PUT /goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("POST /goals/{id}/contribution", s.handleContribute)

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /export/{format}", s.handleExport)
}

// middleware wraps the mux, outermost first: tracing, security headers,
// probe detection, then the write rate limit.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, isWrite,
		func(w http.ResponseWriter, r *http.Request, retryAfter int) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path)
			TooManyRequestsError(retryAfter).Write(w)
		})(next)

	h := s.detector.Middleware(limited)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

func isWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// upstream returns the context every backend call of r runs under: the
// caller's token and the upstream deadline.
func (s *Server) upstream(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := r.Context()
	if token := requestToken(r); token != "" {
		ctx = api.WithToken(ctx, token)
	}
	return context.WithTimeout(ctx, s.upstreamTimeout)
}

// snapshotKey scopes cached datasets to the caller's token. Backends
// without accounts hold one dataset and share one snapshot.
func (s *Server) snapshotKey(r *http.Request) string {
	if s.auth == nil {
		return ""
	}
	return requestToken(r)
}

// expenses returns the caller's dataset, loading it at most once across
// concurrent requests.
func (s *Server) expenses(ctx context.Context, r *http.Request) ([]core.Expense, error) {
	items, hit, err := s.snapshots.Get(ctx, s.snapshotKey(r), s.backend.ListExpenses)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).DebugContext(ctx, "Expense snapshot",
		log.FieldCacheHit, hit, log.FieldCount, len(items))
	return items, nil
}

// invalidate drops the caller's snapshot after a write.
func (s *Server) invalidate(r *http.Request) {
	s.snapshots.Invalidate(s.snapshotKey(r))
}

// fail logs err and answers with its single user-visible message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := classify(err)
	fields := log.NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, "", "").
		WithClientIP(s.detector.ExtractClientIP(r))
	fields[log.FieldStatusCode] = status
	if status >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, fields)
	} else {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
			fields.WithError(err).WithOperation(op).ToSlice()...)
	}
	ErrorResponse(status, msg).Write(w)
}

// parseBody reads the request body, answering 422 itself on failure.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
			return nil, false
		}
		UnprocessableEntityError(err.Error()).Write(w)
		return nil, false
	}
	return p, true
}

// Shutdown stops background work and drains the server. Safe to call more
// than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.cacheManager.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
