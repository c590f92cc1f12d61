// Package httpapi serves the admin login API and the gated admin area.
package httpapi

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Deps holds what the router needs.
type Deps struct {
	Engine *adminkit.Engine
	Logger logrus.FieldLogger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Ready backs /healthz. Nil means always ready.
	Ready func(ctx context.Context) error
	// LoginPath is where page requests without a session are sent.
	LoginPath string
	// TrustedProxies lists the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty means the TCP peer is the client.
	TrustedProxies []netip.Prefix
}

// NewRouter builds the HTTP handler.
//
// Middleware order: RequestID → request log → Recoverer → client context.
// /admin routes add the session guard.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	loginPath := deps.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	h := &handler{engine: deps.Engine, logger: logger, ready: deps.Ready}
	guard := middleware.New(deps.Engine, middleware.Options{LoginPath: loginPath})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(clientResolver{trusted: deps.TrustedProxies}.middleware)

	r.Get("/healthz", h.health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Post("/login", h.login)
		r.Get("/logout", h.logout)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Use(guard.RequireSession())
		r.Get("/", h.dashboard)
		r.With(guard.RequireResourceFunc(func(r *http.Request) string {
			return chi.URLParam(r, "resource")
		})).Get("/{resource}", h.resource)
	})

	return r
}

func requestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  chimw.GetReqID(r.Context()),
			})
			switch {
			case status >= 500:
				entry.Error("request")
			case status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
		})
	}
}
