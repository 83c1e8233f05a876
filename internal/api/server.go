package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/BTreeMap/CareSignal/internal/alert"
	"github.com/BTreeMap/CareSignal/internal/chat"
	"github.com/BTreeMap/CareSignal/internal/metrics"
	"github.com/BTreeMap/CareSignal/internal/store"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store    store.Store
	sessions *chat.Manager
	alerts   *alert.Orchestrator
	limiter  *limiter.Limiter
}

// ServerOption configures a Server.
type ServerOption func(*Server) error

// WithLimiter rate limits every route except /health and /metrics, keyed by client IP.
func WithLimiter(s limiter.Store, rate string) ServerOption {
	return func(srv *Server) error {
		r, err := limiter.NewRateFromFormatted(rate)
		if err != nil {
			return fmt.Errorf("invalid rate limit %q: %w", rate, err)
		}
		srv.limiter = limiter.New(s, r)
		return nil
	}
}

// NewServer creates a Server.
func NewServer(st store.Store, sessions *chat.Manager, alerts *alert.Orchestrator, opts ...ServerOption) (*Server, error) {
	s := &Server{store: st, sessions: sessions, alerts: alerts}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler returns the routed and instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /sessions/{id}/messages", s.sendMessageHandler)
	api.HandleFunc("GET /sessions/{id}/messages", s.historyHandler)
	api.HandleFunc("DELETE /sessions/{id}/messages", s.clearHistoryHandler)
	api.HandleFunc("PUT /sessions/{id}/profile", s.saveProfileHandler)
	api.HandleFunc("GET /sessions/{id}/profile", s.getProfileHandler)
	api.HandleFunc("GET /sessions/{id}/alerts/{alertID}", s.getAlertHandler)
	api.HandleFunc("DELETE /sessions/{id}/alerts/{alertID}", s.dismissAlertHandler)
	api.HandleFunc("GET /alerts/{alertID}/receipts", s.receiptsHandler)

	var limited http.Handler = api
	if s.limiter != nil {
		limited = stdlib.NewMiddleware(s.limiter,
			stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
				metrics.RateLimited.Inc()
				slog.Warn("Server.Handler: rate limit reached", "remote", r.RemoteAddr, "path", r.URL.Path)
				writeError(w, http.StatusTooManyRequests, "Too many requests")
			}),
		).Handler(api)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.healthHandler)
	root.Handle("GET /metrics", metrics.Handler())
	root.Handle("/", limited)
	return instrument(root)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route pattern and status.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}
