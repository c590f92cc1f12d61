package adminkit

import (
	"net/http"
	"time"
)

// SessionCookie builds the cookie that stores token for maxAge.
func (c CookieConfig) SessionCookie(token string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// ClearedCookie builds a cookie that makes the browser drop the session.
func (c CookieConfig) ClearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// TokenFromRequest returns the value of the named cookie, or "" when absent.
func TokenFromRequest(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
