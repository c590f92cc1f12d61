// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements adminkit.MetricsRecorder on Prometheus counters.
type Collector struct {
	logins       *prometheus.CounterVec
	issued       *prometheus.CounterVec
	verified     *prometheus.CounterVec
	logouts      prometheus.Counter
	accessDenied *prometheus.CounterVec
}

// NewCollector creates the counters and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminkit_login_total",
			Help: "Admin login attempts by outcome.",
		}, []string{"outcome"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminkit_session_issued_total",
			Help: "Session tokens issued by role.",
		}, []string{"role"}),
		verified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminkit_session_verify_total",
			Help: "Session token verifications by result.",
		}, []string{"result"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminkit_logout_total",
			Help: "Logouts of a valid session.",
		}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminkit_access_denied_total",
			Help: "Authorization refusals by resource.",
		}, []string{"resource"}),
	}

	reg.MustRegister(c.logins, c.issued, c.verified, c.logouts, c.accessDenied)
	return c
}

// LoginAttempt counts a login by outcome.
func (c *Collector) LoginAttempt(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// SessionIssued counts an issued token.
func (c *Collector) SessionIssued(role permission.Role) {
	c.issued.WithLabelValues(string(role)).Inc()
}

// SessionVerified counts a verification as "valid" or "invalid".
func (c *Collector) SessionVerified(ok bool) {
	result := "invalid"
	if ok {
		result = "valid"
	}
	c.verified.WithLabelValues(result).Inc()
}

// Logout counts a logout.
func (c *Collector) Logout() {
	c.logouts.Inc()
}

// AccessDenied counts a refusal. Only known resources, capabilities and roles
// are used as label values; anything else is folded into "other" to bound
// cardinality.
func (c *Collector) AccessDenied(resource string) {
	c.accessDenied.WithLabelValues(ResourceLabel(resource)).Inc()
}

// ResourceLabel bounds a denied resource name to a known label value.
func ResourceLabel(resource string) string {
	return permission.Label(resource)
}

// DroppedSource reports dropped audit events. *adminkit.Engine implements it.
type DroppedSource interface {
	AuditDropped() uint64
}

// RegisterAuditDropped exposes src as adminkit_audit_dropped_total.
func RegisterAuditDropped(reg prometheus.Registerer, src DroppedSource) error {
	return reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "adminkit_audit_dropped_total",
		Help: "Audit events dropped because the dispatch buffer was full.",
	}, func() float64 {
		return float64(src.AuditDropped())
	}))
}

// Handler serves the metrics in gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
