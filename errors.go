package adminkit

import "errors"

var (
	// ErrInvalidCredential is returned when issuance is refused, for example for
	// an unknown role or an empty identity.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrLoginFailed is returned for a wrong username or password.
	ErrLoginFailed = errors.New("invalid username or password")
	// ErrInvalidRequest is returned for a malformed login request.
	ErrInvalidRequest = errors.New("invalid login request")
	// ErrLoginRateLimited is returned when too many failed logins were recorded.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrLoginUnavailable is returned when a login dependency is down.
	ErrLoginUnavailable = errors.New("login backend unavailable")
	// ErrPermissionDenied marks an authenticated session lacking a capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrEngineNotReady is returned by methods of a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
