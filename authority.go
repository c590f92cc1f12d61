package adminkit

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adrijan-Petek/miniapp-admin-kit/jwt"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
)

// Authority issues and verifies session tokens. It holds no mutable state and is
// safe for concurrent use.
type Authority struct {
	tokens *jwt.Manager
}

// NewAuthority builds an Authority from cfg. Zero TTL, issuer and audience fall
// back to the defaults of DefaultConfig.
func NewAuthority(cfg SessionConfig) (*Authority, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = defaultAudience
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:   cfg.Secret,
		TTL:      cfg.TTL,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Leeway:   cfg.Leeway,
		Now:      cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("session authority: %w", err)
	}
	return &Authority{tokens: tokens}, nil
}

// TTL returns the validity window of issued tokens.
func (a *Authority) TTL() time.Duration {
	return a.tokens.TTL()
}

// Issue signs a token for id. An unknown role or an identity without a username
// is refused with ErrInvalidCredential.
func (a *Authority) Issue(id Identity) (string, Session, error) {
	if a == nil || a.tokens == nil {
		return "", Session{}, ErrEngineNotReady
	}
	if strings.TrimSpace(id.Username) == "" {
		return "", Session{}, ErrInvalidCredential
	}
	perms, ok := permission.PermissionsFor(id.Role)
	if !ok {
		return "", Session{}, ErrInvalidCredential
	}

	var opts []jwt.SignOption
	if id.Email != "" {
		opts = append(opts, jwt.WithEmail(id.Email))
	}
	token, claims, err := a.tokens.Sign(id.subject(), id.Username, id.Role, perms, opts...)
	if err != nil {
		return "", Session{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return token, sessionFromClaims(claims), nil
}

// Verify decodes token. Any failure, including an empty token, returns
// ok == false and a zero Session.
func (a *Authority) Verify(token string) (Session, bool) {
	if a == nil || a.tokens == nil || token == "" {
		return Session{}, false
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return Session{}, false
	}
	return sessionFromClaims(claims), true
}

func sessionFromClaims(c *jwt.Claims) Session {
	s := Session{
		ID:          c.ID,
		Subject:     c.Subject,
		Username:    c.Username,
		Email:       c.Email,
		Role:        c.Role,
		Permissions: c.Permissions,
	}
	if c.IssuedAt != nil {
		s.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}
