package adminkit

import "github.com/Adrijan-Petek/miniapp-admin-kit/permission"

// MetricsRecorder receives engine counters. The metrics package provides a
// Prometheus implementation.
type MetricsRecorder interface {
	LoginAttempt(outcome string)
	SessionIssued(role permission.Role)
	SessionVerified(ok bool)
	Logout()
	AccessDenied(resource string)
}

type noopMetrics struct{}

func (noopMetrics) LoginAttempt(string)           {}
func (noopMetrics) SessionIssued(permission.Role) {}
func (noopMetrics) SessionVerified(bool)          {}
func (noopMetrics) Logout()                       {}
func (noopMetrics) AccessDenied(string)           {}
