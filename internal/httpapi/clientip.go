package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
)

// clientResolver picks the caller address used for throttling and audit.
// Forwarding headers are honoured only when the direct peer is a trusted proxy.
type clientResolver struct {
	trusted []netip.Prefix
}

func (c clientResolver) isTrusted(addr netip.Addr) bool {
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address, or for a trusted peer the right-most
// untrusted X-Forwarded-For hop, falling back to X-Real-IP.
func (c clientResolver) clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !c.isTrusted(peer.Unmap()) {
		return host
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !c.isTrusted(addr.Unmap()) {
				return addr.Unmap().String()
			}
		}
	}
	if xrip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xrip.Unmap().String()
	}
	return host
}

// middleware copies the client address and user agent into the request context.
func (c clientResolver) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := adminkit.WithClientIP(r.Context(), c.clientIP(r))
		ctx = adminkit.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
