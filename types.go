package adminkit

import (
	"time"

	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
)

// Identity is an administrator whose credentials were already checked.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     permission.Role
}

func (i Identity) subject() string {
	if i.UserID != "" {
		return i.UserID
	}
	return i.Username
}

// Session is the decoded, validated content of a session token.
type Session struct {
	ID          string
	Subject     string
	Username    string
	Email       string
	Role        permission.Role
	Permissions permission.Set
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Valid reports whether the session is populated and unexpired at now.
func (s Session) Valid(now time.Time) bool {
	return s.ID != "" && s.Role.Valid() && now.Before(s.ExpiresAt)
}

// HasPermission reports whether the session grants c.
func (s Session) HasPermission(c permission.Capability) bool {
	return s.Permissions.Has(c)
}

// CanAccessResource reports whether the session unlocks the named admin section.
func (s Session) CanAccessResource(resource string) bool {
	return permission.CanAccess(s.Permissions, resource)
}

// LoginResult is returned by a successful Engine.Login.
type LoginResult struct {
	Token   string
	Session Session
}

// Login outcomes reported to MetricsRecorder.
const (
	OutcomeSuccess        = "success"
	OutcomeFailure        = "failure"
	OutcomeRateLimited    = "rate_limited"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeError          = "error"
)
