package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kharcha/internal/auth"
	"kharcha/internal/core"
	"kharcha/internal/middleware/ratelimit"
	"kharcha/internal/middleware/security"
	"kharcha/internal/middleware/trace"
	"kharcha/internal/services"
)

// Server serves the expense API, the OAuth flow, and the live SSE stream.
type Server struct {
	http.Server

	expenses *services.ExpenseService
	auth     *auth.Service
	sessions *auth.SessionManager
	pageSize int

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, expenses *services.ExpenseService, authSvc *auth.Service, sessions *auth.SessionManager, pageSize int) *Server {
	if pageSize <= 0 {
		pageSize = core.DefaultPageSize
	}

	s := &Server{
		expenses: expenses,
		auth:     authSvc,
		sessions: sessions,
		pageSize: pageSize,
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /auth/{provider}", s.handleAuthStart)
	mux.HandleFunc("GET /auth/callback/{provider}", s.handleAuthCallback)
	mux.HandleFunc("POST /logout", s.handleLogout)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/me", s.handleMe)
	api.HandleFunc("GET /api/expenses", s.handleListExpenses)
	api.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	api.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	api.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	api.HandleFunc("GET /api/expenses/stream", s.handleStream)
	api.HandleFunc("GET /api/report", s.handleReport)
	mux.Handle("/api/", sessions.RequireSession(api))

	traceMW := trace.NewMiddleware(trace.ClientIP)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	rateMW := s.limiter.Middleware(trace.ClientIP)

	// Only writes are rate limited; reads include the long-lived SSE
	// stream and health probes, which must never burn the budget.
	limited := rateMW(mux)
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			mux.ServeHTTP(w, r)
		}
	})

	handler := headersMW.Middleware(traceMW.Middleware(root))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: the SSE stream stays open indefinitely.
	}
	return s
}

// Shutdown stops the listener and the limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
