package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
)

const (
	msgAuthRequired     = "Authentication required"
	msgInsufficient     = "Insufficient permissions"
	msgInsufficientRole = "Insufficient role permissions"
)

// Validator validates the session carried by a request.
type Validator interface {
	ValidateRequest(r *http.Request) (adminkit.Session, bool)
}

// DenialRecorder receives refused authorization checks.
type DenialRecorder interface {
	RecordDenied(ctx context.Context, sess adminkit.Session, resource string)
}

// Options tunes guard responses.
type Options struct {
	// LoginPath, when set, makes RequireSession redirect with 302 instead of
	// answering 401. The original path is passed as the "next" query value.
	LoginPath string
}

// Guard builds session and permission middleware around a Validator.
type Guard struct {
	validator Validator
	recorder  DenialRecorder
	opts      Options
}

// New returns a Guard. If v also implements DenialRecorder, denials are
// reported to it.
func New(v Validator, opts Options) *Guard {
	g := &Guard{validator: v, opts: opts}
	if rec, ok := v.(DenialRecorder); ok {
		g.recorder = rec
	}
	return g
}

// WithOptions returns a copy of g using opts.
func (g *Guard) WithOptions(opts Options) *Guard {
	out := *g
	out.opts = opts
	return &out
}

// RequireSession is shorthand for New(v, opts).RequireSession().
func RequireSession(v Validator, opts Options) func(http.Handler) http.Handler {
	return New(v, opts).RequireSession()
}

// RequireSession rejects requests without a valid session cookie and stores
// the session in the context for the wrapped handler.
func (g *Guard) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil || g.validator == nil {
				g.unauthenticated(w, r)
				return
			}

			sess, ok := g.validator.ValidateRequest(r)
			if !ok {
				g.unauthenticated(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(adminkit.WithSession(r.Context(), sess)))
		})
	}
}

func (g *Guard) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if g != nil && g.opts.LoginPath != "" {
		target := g.opts.LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	writeError(w, http.StatusUnauthorized, msgAuthRequired)
}

func (g *Guard) denied(w http.ResponseWriter, r *http.Request, sess adminkit.Session, resource, msg string) {
	if g != nil && g.recorder != nil {
		g.recorder.RecordDenied(r.Context(), sess, resource)
	}
	writeError(w, http.StatusForbidden, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
