package adminkit

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	// SessionCookieName is the cookie that carries the session token.
	SessionCookieName = "admin_session"
	// DefaultSessionTTL is the validity window of an issued token.
	DefaultSessionTTL = 2 * time.Hour

	defaultIssuer          = "miniapp-admin-kit"
	defaultAudience        = "admin"
	minSecretLength        = 16
	defaultMaxUsernameSize = 50
)

// Config is the full engine configuration. It is copied by Builder.WithConfig
// and treated as immutable after Build.
type Config struct {
	Session        SessionConfig
	Cookie         CookieConfig
	Login          LoginConfig
	Audit          AuditConfig
	ProductionMode bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token signing and validation.
type SessionConfig struct {
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience string
	Leeway   time.Duration
	// Now overrides the clock. Intended for tests.
	Now func() time.Time
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig holds the attributes written on the session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig controls request validation and failed-login throttling.
type LoginConfig struct {
	MaxUsernameLength int
	MaxAttempts       int
	Cooldown          time.Duration
	EnableIPThrottle  bool
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns development defaults. Session.Secret is left empty and
// must be supplied before Build.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:      DefaultSessionTTL,
			Issuer:   defaultIssuer,
			Audience: defaultAudience,
		},
		Cookie: CookieConfig{
			Name:     SessionCookieName,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
		Login: LoginConfig{
			MaxUsernameLength: defaultMaxUsernameSize,
			MaxAttempts:       5,
			Cooldown:          15 * time.Minute,
			EnableIPThrottle:  true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if len(c.Session.Secret) < minSecretLength {
		return errors.New("session secret must be at least 16 bytes")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be > 0")
	}
	if c.Session.Leeway < 0 || c.Session.Leeway > 2*time.Minute {
		return errors.New("session leeway must be within [0, 2m]")
	}
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("cookie name must not be empty")
	}
	if c.Cookie.Path == "" || !strings.HasPrefix(c.Cookie.Path, "/") {
		return errors.New("cookie path must start with /")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("SameSite=None requires a secure cookie")
	}
	if c.ProductionMode && !c.Cookie.Secure {
		return errors.New("production mode requires secure cookies")
	}
	if c.Login.MaxUsernameLength <= 0 {
		return errors.New("login max username length must be > 0")
	}
	if c.Login.MaxAttempts <= 0 {
		return errors.New("login max attempts must be > 0")
	}
	if c.Login.Cooldown <= 0 {
		return errors.New("login cooldown must be > 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must be >= 0")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	if c.Session.Secret != nil {
		out.Session.Secret = append([]byte(nil), c.Session.Secret...)
	}
	return out
}
