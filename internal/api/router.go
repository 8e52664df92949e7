// Package api assembles the HTTP surface: routes, middleware and metrics.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/handlers"
	"github.com/dvloznov/statement-insights/internal/api/middleware"
)

// Handlers groups the endpoint handlers. Nil handlers leave their routes unregistered.
type Handlers struct {
	Events     *handlers.EventsHandler
	Dashboards *handlers.DashboardsHandler
	Chat       *handlers.ChatHandler
	Statements *handlers.StatementsHandler
	Users      *handlers.UsersHandler
	Jobs       *handlers.JobsHandler
}

// NewRouter registers every route and wraps the mux in the middleware chain.
// limiter may be nil to disable rate limiting.
func NewRouter(h Handlers, limiter *middleware.RateLimiter, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, method string, fn http.HandlerFunc) {
		mux.Handle(pattern, middleware.Instrument(pattern, allow(method, fn)))
	}

	if h.Events != nil {
		route("/api/events/upload", http.MethodPost, h.Events.Upload)
		route("/api/events/dashboard", http.MethodPost, h.Events.Dashboard)
	}
	if h.Dashboards != nil {
		route("/api/dashboards/{user_id}", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			h.Dashboards.List(w, r, r.PathValue("user_id"))
		})
	}
	if h.Chat != nil {
		route("/api/chat", http.MethodPost, h.Chat.Chat)
	}
	if h.Statements != nil {
		route("/api/statements", http.MethodPost, h.Statements.Upload)
	}
	if h.Users != nil {
		route("/api/users", http.MethodPost, h.Users.Register)
	}
	if h.Jobs != nil {
		route("/api/jobs", http.MethodGet, h.Jobs.ListJobs)
		route("/api/jobs/{id}", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			h.Jobs.GetJob(w, r, r.PathValue("id"))
		})
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.Handler())

	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	}
	if limiter != nil {
		mws = append(mws, limiter.Middleware)
	}
	return middleware.Chain(mux, mws...)
}

func allow(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		fn(w, r)
	}
}
