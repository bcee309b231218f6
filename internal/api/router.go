// Package api assembles the HTTP surface: middleware chain, domain routes and operational endpoints.
package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/config"
	apperrors "gig-marketplace/internal/common/errors"
	httpx "gig-marketplace/internal/common/http"
	"gig-marketplace/internal/common/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readyTimeout = 2 * time.Second

// RouteRegistrar is implemented by every domain handler.
type RouteRegistrar interface {
	RegisterRoutes(r *mux.Router)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Deps struct {
	Sessions    *auth.SessionStore // nil skips session resolution
	CookieName  string
	RateLimiter *RateLimiter // nil disables limiting
	Checks      map[string]Pinger
	Routes      []RouteRegistrar
}

// NewRouter builds the full handler tree.
func NewRouter(cfg config.HTTPConfig, deps Deps, log logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(w, req, log, apperrors.NewNotFoundError("route", req.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
			"error": map[string]string{"code": "METHOD_NOT_ALLOWED", "message": req.Method + " is not supported here"},
		})
	})

	ops := r.NewRoute().Subrouter()
	ops.HandleFunc("/health", health).Methods(http.MethodGet)
	ops.HandleFunc("/ready", ready(deps.Checks, log)).Methods(http.MethodGet)
	ops.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	apiRouter := r.NewRoute().Subrouter()
	apiRouter.Use(
		RequestID(log),
		Recovery(log),
		Logging(log),
		Metrics,
		Timeout(time.Duration(cfg.RequestTimeout)*time.Millisecond),
	)
	if deps.Sessions != nil {
		apiRouter.Use(auth.Middleware(deps.Sessions, deps.CookieName, log))
	}
	if deps.RateLimiter != nil {
		apiRouter.Use(deps.RateLimiter.Middleware)
	}
	for _, h := range deps.Routes {
		h.RegisterRoutes(apiRouter)
	}

	if len(cfg.AllowedOrigins) > 0 {
		return CORS(cfg.AllowedOrigins, r)
	}
	return r
}

// NewServer wraps handler with the configured timeouts.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Millisecond,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func ready(checks map[string]Pinger, log logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		results := make(map[string]string, len(names))
		status, code := "ready", http.StatusOK
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				log.Warn("readiness check failed", map[string]interface{}{"dependency": name, "error": err})
				results[name] = err.Error()
				status, code = "not_ready", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		httpx.WriteJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": results,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
