package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const maxLoginBody = 4 << 10

type handler struct {
	engine *adminkit.Engine
	logger logrus.FieldLogger
	ready  func(ctx context.Context) error
}

type loginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type userView struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email,omitempty"`
	Role        string         `json:"role"`
	Permissions permission.Set `json:"permissions"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

func newUserView(s adminkit.Session) userView {
	return userView{
		ID:          s.Subject,
		Username:    s.Username,
		Email:       s.Email,
		Role:        string(s.Role),
		Permissions: s.Permissions,
		ExpiresAt:   s.ExpiresAt.UTC(),
	}
}

// POST /api/login
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	body := http.MaxBytesReader(w, r.Body, maxLoginBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil || req.Username == nil || req.Password == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request"))
		return
	}

	res, err := h.engine.Login(r.Context(), *req.Username, *req.Password)
	switch {
	case err == nil:
	case errors.Is(err, adminkit.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request"))
		return
	case errors.Is(err, adminkit.ErrLoginFailed):
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid credentials"))
		return
	case errors.Is(err, adminkit.ErrLoginRateLimited):
		cooldown := h.engine.Config().Login.Cooldown
		w.Header().Set("Retry-After", strconv.Itoa(int(cooldown/time.Second)))
		writeJSON(w, http.StatusTooManyRequests, errorBody("Too many login attempts"))
		return
	default:
		h.logger.WithError(err).Error("login failed")
		writeJSON(w, http.StatusServiceUnavailable, errorBody("Login temporarily unavailable"))
		return
	}

	http.SetCookie(w, h.engine.SessionCookie(res.Token))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET|POST /api/logout
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := h.engine.ValidateRequest(r); ok {
		h.engine.Logout(r.Context(), sess)
	}
	http.SetCookie(w, h.engine.ClearedCookie())

	status := http.StatusTemporaryRedirect
	if r.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, "/", status)
}

// GET /api/me
func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.engine.ValidateRequest(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          newUserView(sess),
	})
}

// GET /admin
func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := adminkit.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      newUserView(sess),
		"resources": permission.Accessible(sess.Permissions),
	})
}

// GET /admin/{resource}
func (h *handler) resource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	c, _ := permission.CapabilityFor(name)
	writeJSON(w, http.StatusOK, map[string]string{
		"resource":   name,
		"capability": c.Name(),
	})
}

// GET /healthz
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.logger.WithError(err).Warn("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
