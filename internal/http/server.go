// Package http exposes the ledger, dashboard analytics and reports as a JSON
// API under /api.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"society/internal/backend"
	"society/internal/core"
	"society/internal/log"
	"society/internal/middleware/ratelimit"
	"society/internal/middleware/security"
	"society/internal/middleware/trace"
	"society/internal/report"
)

const defaultRequestTimeout = 7 * time.Second

// Pinger reports whether the ledger store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API is served from. PDF may be nil when no
// printer is configured; PDF requests then fail with 503.
type Deps struct {
	Services       *backend.Services
	Store          Pinger
	HTML           *report.HTMLRenderer
	PDF            *report.PDFRenderer
	XLSX           *report.XLSXRenderer
	Logger         *log.Logger
	RequestTimeout time.Duration
	RateLimit      ratelimit.Config
	Now            func() time.Time
}

type Server struct {
	http.Server
	svc            *backend.Services
	store          Pinger
	html           *report.HTMLRenderer
	pdf            *report.PDFRenderer
	xlsx           *report.XLSXRenderer
	logger         *log.Logger
	validate       *validator.Validate
	requestTimeout time.Duration
	now            func() time.Time
	started        time.Time

	tracer      *trace.Middleware
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = defaultRequestTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	if deps.XLSX == nil {
		deps.XLSX = report.NewXLSXRenderer()
	}
	if deps.HTML == nil {
		html, err := report.NewHTMLRenderer()
		if err != nil {
			deps.Logger.Warn("Failed parsing templates", log.FieldError, err)
		}
		deps.HTML = html
	}

	s := &Server{
		svc:            deps.Services,
		store:          deps.Store,
		html:           deps.HTML,
		pdf:            deps.PDF,
		xlsx:           deps.XLSX,
		logger:         deps.Logger.WithComponent(log.ComponentHTTP),
		validate:       newValidator(),
		requestTimeout: deps.RequestTimeout,
		now:            deps.Now,
		started:        deps.Now(),
		detector:       security.NewDetector(),
		rateLimiter:    ratelimit.NewLimiter(deps.RateLimit),
	}
	s.tracer = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, isReadOnly, s.handleRateLimited)

	var h http.Handler = mux
	h = limit(h)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/login", s.handle(s.handleLogin))

	mux.HandleFunc("GET /api/flats", s.authed(s.handleListFlats))
	mux.HandleFunc("GET /api/flats/{id}", s.authed(s.handleGetFlat))
	mux.HandleFunc("POST /api/flats", s.writer(s.handleCreateFlat))
	mux.HandleFunc("PUT /api/flats/{id}", s.writer(s.handleUpdateFlat))
	mux.HandleFunc("DELETE /api/flats/{id}", s.admin(s.handleDeleteFlat))

	mux.HandleFunc("GET /api/payments", s.authed(s.handleListPayments))
	mux.HandleFunc("GET /api/payments/monthly-totals", s.authed(s.handleMonthlyPaymentTotals))
	mux.HandleFunc("GET /api/payments/flat/{flatID}", s.authed(s.handleListPaymentsByFlat))
	mux.HandleFunc("GET /api/payments/{id}", s.authed(s.handleGetPayment))
	mux.HandleFunc("POST /api/payments", s.writer(s.handleCreatePayment))
	mux.HandleFunc("POST /api/payments/invoice", s.authed(s.handleInvoice))
	mux.HandleFunc("PUT /api/payments/{id}", s.writer(s.handleUpdatePayment))
	mux.HandleFunc("DELETE /api/payments/{id}", s.writer(s.handleDeletePayment))

	mux.HandleFunc("GET /api/expenses", s.authed(s.handleListExpenses))
	mux.HandleFunc("GET /api/expenses/monthly-total", s.authed(s.handleMonthlyExpenseTotal))
	mux.HandleFunc("GET /api/expenses/{id}", s.authed(s.handleGetExpense))
	mux.HandleFunc("POST /api/expenses", s.writer(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.writer(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.writer(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/users/me", s.authed(s.handleMe))
	mux.HandleFunc("PUT /api/users/me/password", s.authed(s.handleChangePassword))
	mux.HandleFunc("GET /api/users", s.admin(s.handleListUsers))
	mux.HandleFunc("GET /api/users/{id}", s.admin(s.handleGetUser))
	mux.HandleFunc("POST /api/users", s.admin(s.handleCreateUser))
	mux.HandleFunc("PUT /api/users/{id}", s.admin(s.handleUpdateUser))
	mux.HandleFunc("DELETE /api/users/{id}", s.admin(s.handleDeleteUser))

	mux.HandleFunc("GET /api/config/delete-enabled", s.authed(s.handleGetDeleteEnabled))
	mux.HandleFunc("PUT /api/config/delete-enabled", s.admin(s.handleSetDeleteEnabled))

	mux.HandleFunc("GET /api/dashboard/analytics", s.authed(s.handleAnalytics))
	mux.HandleFunc("GET /api/dashboard/summary", s.authed(s.handleDashboardSummary))
	mux.HandleFunc("GET /api/dashboard/pending", s.authed(s.handlePending))

	mux.HandleFunc("GET /api/reports/summary/{year}/{month}", s.authed(s.handleMonthlySummary))
	mux.HandleFunc("GET /api/reports/monthly", s.authed(s.handleMonthlyReport))
	mux.HandleFunc("GET /api/reports/yearly", s.authed(s.handleYearlyReport))
	mux.HandleFunc("GET /api/reports/flats", s.authed(s.handleFlatReport))
	mux.HandleFunc("GET /api/reports/expenses", s.authed(s.handleExpenseTrend))
	mux.HandleFunc("GET /api/reports/users", s.authed(s.handleUserActivity))

	mux.HandleFunc("/api/", s.handle(func(_ http.ResponseWriter, r *http.Request) error {
		return fmt.Errorf("route %s %s: %w", r.Method, r.URL.Path, core.ErrNotFound)
	}))
}

// apiHandler is a handler whose error is written by writeError.
type apiHandler func(w http.ResponseWriter, r *http.Request) error

// handle bounds the request with the read timeout and maps a returned error
// to its JSON response.
func (s *Server) handle(h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		r = r.WithContext(ctx)
		if err := h(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func isReadOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:     "rate limit exceeded, please try again later",
		Code:      "rate_limited",
		RequestID: trace.GetRequestID(r.Context()),
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": s.now().Sub(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status := http.StatusOK
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			checks["store"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if s.pdf == nil {
		checks["pdf"] = "disabled"
	} else {
		checks["pdf"] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": checks})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"http":       s.tracer.GetMetrics(),
		"rate_limit": s.rateLimiter.GetMetrics(),
		"security":   s.detector.GetMetrics(),
	})
}
