package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
)

type fakeValidator struct {
	sessions map[string]adminkit.Session
	denied   []string
}

func (f *fakeValidator) ValidateRequest(r *http.Request) (adminkit.Session, bool) {
	token := adminkit.TokenFromRequest(r, adminkit.SessionCookieName)
	s, ok := f.sessions[token]
	return s, ok
}

func (f *fakeValidator) RecordDenied(_ context.Context, _ adminkit.Session, resource string) {
	f.denied = append(f.denied, resource)
}

func sessionFor(role permission.Role) adminkit.Session {
	perms, _ := permission.PermissionsFor(role)
	return adminkit.Session{ID: "sid-" + string(role), Username: string(role), Role: role, Permissions: perms}
}

func newFakeValidator() *fakeValidator {
	return &fakeValidator{sessions: map[string]adminkit.Session{
		"super": sessionFor(permission.RoleSuperAdmin),
		"mod":   sessionFor(permission.RoleModerator),
		"view":  sessionFor(permission.RoleViewer),
	}}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	sess, _ := adminkit.SessionFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sess.Username))
})

func request(path, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: adminkit.SessionCookieName, Value: token})
	}
	return r
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestRequireSession(t *testing.T) {
	h := RequireSession(newFakeValidator(), Options{})(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin", "mod"))
	if rec.Code != http.StatusOK || rec.Body.String() != "moderator" {
		t.Fatalf("expected 200 moderator, got %d %q", rec.Code, rec.Body.String())
	}

	for _, token := range []string{"", "not-a-token"} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, request("/admin", token))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
		if got := errorBody(t, rec); got != "Authentication required" {
			t.Fatalf("unexpected error message %q", got)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
	}
}

func TestRequireSessionRedirect(t *testing.T) {
	h := RequireSession(newFakeValidator(), Options{LoginPath: "/login"})(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin/users?page=2", ""))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?next=") || !strings.Contains(loc, "%2Fadmin%2Fusers") {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestRequireSessionNilValidator(t *testing.T) {
	var g *Guard
	rec := httptest.NewRecorder()
	g.RequireSession()(okHandler).ServeHTTP(rec, request("/admin", "super"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	v := newFakeValidator()
	g := New(v, Options{})
	h := g.RequireSession()(g.RequirePermission(permission.ManageTreasury)(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin/treasury", "super"))
	if rec.Code != http.StatusOK {
		t.Fatalf("super admin: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin/treasury", "mod"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("moderator: expected 403, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Insufficient permissions" {
		t.Fatalf("unexpected error message %q", got)
	}
	if len(v.denied) != 1 || v.denied[0] != "can_manage_treasury" {
		t.Fatalf("expected denial recorded, got %v", v.denied)
	}
}

func TestRequireResource(t *testing.T) {
	g := New(newFakeValidator(), Options{})

	tests := []struct {
		resource string
		token    string
		want     int
	}{
		{"announcements", "mod", http.StatusOK},
		{"leaderboard", "mod", http.StatusOK},
		{"treasury", "mod", http.StatusForbidden},
		{"analytics", "view", http.StatusOK},
		{"users", "view", http.StatusForbidden},
		{"users", "super", http.StatusOK},
		{"nonexistent", "super", http.StatusForbidden},
	}
	for _, tt := range tests {
		h := g.RequireSession()(g.RequireResource(tt.resource)(okHandler))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("/admin/"+tt.resource, tt.token))
		if rec.Code != tt.want {
			t.Fatalf("%s as %s: expected %d, got %d", tt.resource, tt.token, tt.want, rec.Code)
		}
	}
}

func TestRequireResourceFunc(t *testing.T) {
	g := New(newFakeValidator(), Options{})
	h := g.RequireSession()(g.RequireResourceFunc(func(r *http.Request) string {
		return strings.TrimPrefix(r.URL.Path, "/admin/")
	})(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin/announcements", "mod"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin/settings", "mod"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	g := New(newFakeValidator(), Options{})
	h := g.RequireSession()(g.RequireRole(permission.RoleSuperAdmin, permission.RoleAdmin)(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin/settings", "super"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("/admin/settings", "view"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Insufficient role permissions" {
		t.Fatalf("unexpected error message %q", got)
	}
}

func TestAuthorizeWithoutSession(t *testing.T) {
	g := New(newFakeValidator(), Options{})
	rec := httptest.NewRecorder()
	g.RequirePermission(permission.ViewAnalytics)(okHandler).ServeHTTP(rec, request("/admin", "super"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without RequireSession, got %d", rec.Code)
	}
}
