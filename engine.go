package adminkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/audit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/rate"
	"github.com/sirupsen/logrus"
)

// maxPasswordBytes bounds the work a single login can cause in the hasher.
const maxPasswordBytes = 1024

// CredentialChecker resolves a username and password to an Identity. It must
// return an error wrapping ErrLoginFailed for wrong credentials. Any other
// error is treated as a backend failure.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context, username, password string) (Identity, error)
}

// CredentialCheckerFunc adapts a function to CredentialChecker.
type CredentialCheckerFunc func(ctx context.Context, username, password string) (Identity, error)

// CheckCredentials calls f.
func (f CredentialCheckerFunc) CheckCredentials(ctx context.Context, username, password string) (Identity, error) {
	return f(ctx, username, password)
}

// Engine runs admin logins and session validation. Build one with New().
// An Engine is safe for concurrent use.
type Engine struct {
	config    Config
	authority *Authority
	checker   CredentialChecker
	limiter   rate.LoginLimiter
	stopper   func()
	audit     *audit.Dispatcher
	metrics   MetricsRecorder
	logger    logrus.FieldLogger
}

// Close drains pending audit events and stops background work.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.stopper != nil {
		e.stopper()
	}
}

// Authority returns the token authority used by the engine.
func (e *Engine) Authority() *Authority {
	if e == nil {
		return nil
	}
	return e.authority
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Login checks credentials and issues a session token.
//
// Errors: ErrInvalidRequest for a malformed request, ErrLoginRateLimited when
// the username or client IP exhausted its failed-login budget, ErrLoginFailed
// for wrong credentials and ErrLoginUnavailable when a dependency failed. The
// client IP and user agent are read from ctx (see WithClientIP).
func (e *Engine) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if e == nil || e.authority == nil || e.checker == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !e.validLoginRequest(username, password) {
		e.metrics.LoginAttempt(OutcomeInvalidRequest)
		return LoginResult{}, ErrInvalidRequest
	}

	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, username, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metrics.LoginAttempt(OutcomeRateLimited)
				e.emitAudit(ctx, AuditLoginRateLimited, false, Session{}, username, ErrLoginRateLimited, nil)
				return LoginResult{}, ErrLoginRateLimited
			}
			e.logger.WithError(err).WithField("username", username).Error("login limiter check failed")
			e.metrics.LoginAttempt(OutcomeError)
			return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
		}
	}

	id, err := e.checker.CheckCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrLoginFailed) {
			e.recordFailure(ctx, username, ip)
			return LoginResult{}, ErrLoginFailed
		}
		e.logger.WithError(err).WithField("username", username).Error("credential check failed")
		e.metrics.LoginAttempt(OutcomeError)
		e.emitAudit(ctx, AuditLoginFailure, false, Session{}, username, ErrLoginUnavailable, nil)
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}

	token, sess, err := e.authority.Issue(id)
	if err != nil {
		// The checker accepted a user the role table does not know.
		e.logger.WithError(err).WithFields(logrus.Fields{
			"username": username,
			"role":     string(id.Role),
		}).Warn("refusing to issue session")
		e.recordFailure(ctx, username, ip)
		return LoginResult{}, ErrLoginFailed
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, username, ip); err != nil {
			e.logger.WithError(err).WithField("username", username).Warn("failed to reset login counter")
		}
	}

	e.metrics.LoginAttempt(OutcomeSuccess)
	e.metrics.SessionIssued(sess.Role)
	e.emitAudit(ctx, AuditLoginSuccess, true, sess, "", nil, nil)
	e.logger.WithFields(logrus.Fields{
		"username":   sess.Username,
		"role":       string(sess.Role),
		"session_id": sess.ID,
	}).Info("admin login")

	return LoginResult{Token: token, Session: sess}, nil
}

func (e *Engine) validLoginRequest(username, password string) bool {
	if strings.TrimSpace(username) == "" || len(username) > e.config.Login.MaxUsernameLength {
		return false
	}
	return password != "" && len(password) <= maxPasswordBytes
}

func (e *Engine) recordFailure(ctx context.Context, username, ip string) {
	e.metrics.LoginAttempt(OutcomeFailure)
	e.emitAudit(ctx, AuditLoginFailure, false, Session{}, username, ErrLoginFailed, nil)

	if e.limiter == nil {
		return
	}
	err := e.limiter.IncrementLogin(ctx, username, ip)
	switch {
	case err == nil:
	case errors.Is(err, rate.ErrRateLimited):
		e.logger.WithFields(logrus.Fields{"username": username, "ip": ip}).Warn("login budget exhausted")
	default:
		e.logger.WithError(err).WithField("username", username).Warn("failed to record login failure")
	}
}

// Validate verifies token. It never returns an error: every failure is
// reported as ok == false.
func (e *Engine) Validate(ctx context.Context, token string) (Session, bool) {
	if e == nil || e.authority == nil {
		return Session{}, false
	}
	sess, ok := e.authority.Verify(token)
	e.metrics.SessionVerified(ok)
	return sess, ok
}

// ValidateRequest verifies the session cookie of r. A request without the
// cookie is treated exactly like one carrying a malformed token.
func (e *Engine) ValidateRequest(r *http.Request) (Session, bool) {
	if e == nil || r == nil {
		return Session{}, false
	}
	return e.Validate(r.Context(), TokenFromRequest(r, e.config.Cookie.Name))
}

// Logout records the end of sess. Tokens are not revoked server side; the
// caller clears the cookie with ClearedCookie.
func (e *Engine) Logout(ctx context.Context, sess Session) {
	if e == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	e.metrics.Logout()
	e.emitAudit(ctx, AuditLogout, true, sess, "", nil, nil)
}

// RecordDenied records that sess was refused access to resource.
func (e *Engine) RecordDenied(ctx context.Context, sess Session, resource string) {
	if e == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	e.metrics.AccessDenied(resource)
	e.emitAudit(ctx, AuditAccessDenied, false, sess, "", ErrPermissionDenied, map[string]string{"resource": resource})
}

// SessionCookie returns the cookie carrying token, valid for the session TTL.
func (e *Engine) SessionCookie(token string) *http.Cookie {
	return e.config.Cookie.SessionCookie(token, e.authority.TTL())
}

// ClearedCookie returns the cookie that removes the session from the browser.
func (e *Engine) ClearedCookie() *http.Cookie {
	return e.config.Cookie.ClearedCookie()
}
