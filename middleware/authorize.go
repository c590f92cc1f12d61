package middleware

import (
	"net/http"
	"slices"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
)

// RequirePermission admits sessions holding c.
func (g *Guard) RequirePermission(c permission.Capability) func(http.Handler) http.Handler {
	return g.authorize(msgInsufficient, func(_ *http.Request, s adminkit.Session) (string, bool) {
		return c.Name(), s.HasPermission(c)
	})
}

// RequireResource admits sessions that may open the named admin section.
// Unknown sections are refused.
func (g *Guard) RequireResource(resource string) func(http.Handler) http.Handler {
	return g.RequireResourceFunc(func(*http.Request) string { return resource })
}

// RequireResourceFunc is RequireResource with the section name taken from the
// request, for example from a router path parameter.
func (g *Guard) RequireResourceFunc(resourceOf func(*http.Request) string) func(http.Handler) http.Handler {
	return g.authorize(msgInsufficient, func(r *http.Request, s adminkit.Session) (string, bool) {
		resource := resourceOf(r)
		return resource, s.CanAccessResource(resource)
	})
}

// RequireRole admits sessions whose role is one of roles.
func (g *Guard) RequireRole(roles ...permission.Role) func(http.Handler) http.Handler {
	return g.authorize(msgInsufficientRole, func(_ *http.Request, s adminkit.Session) (string, bool) {
		return "role:" + string(s.Role), slices.Contains(roles, s.Role)
	})
}

func (g *Guard) authorize(msg string, allow func(*http.Request, adminkit.Session) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := adminkit.SessionFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, msgAuthRequired)
				return
			}
			if resource, ok := allow(r, sess); !ok {
				g.denied(w, r, sess, resource, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
