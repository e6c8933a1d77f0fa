// Package http exposes the expense API over JSON.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"xpense/internal/auth"
	"xpense/internal/core"
	applog "xpense/internal/log"
	"xpense/internal/middleware/ratelimit"
	"xpense/internal/middleware/security"
	"xpense/internal/middleware/trace"
)

// ExpenseAPI is the query and create surface the handlers call.
type ExpenseAPI interface {
	ListExpenses(ctx context.Context, userID string, q core.Query) ([]core.Expense, error)
	Summary(ctx context.Context, userID string, q core.Query) (core.Summary, error)
	Dashboard(ctx context.Context, userID string, q core.Query) (core.Dashboard, error)
	AddExpense(ctx context.Context, userID string, in core.ExpenseInput) (core.Expense, error)
}

// Pinger reports store reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	api         ExpenseAPI
	store       Pinger
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a ready-to-run server.
func NewServer(addr string, api ExpenseAPI, verifier auth.Verifier, store Pinger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}

	s := &Server{
		api:   api,
		store: store,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/health", s.handleAPIHealth)

	protected := auth.Middleware(verifier, func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, r, "Authentication required", err)
	})
	mux.Handle("GET /api/expenses/get-expenses", protected(http.HandlerFunc(s.handleListExpenses)))
	mux.Handle("GET /api/expenses/get-expense-summary", protected(http.HandlerFunc(s.handleSummary)))
	mux.Handle("GET /api/expenses/dashboard", protected(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("POST /api/expenses/add-expense", protected(http.HandlerFunc(s.handleAddExpense)))

	ips := security.NewClientIPResolver()
	tracer := trace.NewMiddleware(ips.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().
			Status(http.StatusTooManyRequests).
			Body(errorBody{Message: "Rate limit exceeded. Please try again later.", Error: "rate limited"}).
			Write(w)
	}, http.MethodPost)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = headers.Middleware(handler)
	handler = applog.Middleware(logger.WithComponent(applog.ComponentHTTP), trace.GetRequestID)(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
