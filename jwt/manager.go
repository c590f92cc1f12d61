package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
)

const (
	minSecretLength     = 16
	maxLeeway           = 2 * time.Minute
	defaultMaxFutureIAT = time.Minute
)

var (
	errInvalidTTL       = errors.New("invalid TTL configuration")
	errShortSecret      = errors.New("hs256 secret must be at least 16 bytes")
	errInvalidLeeway    = errors.New("invalid leeway configuration")
	errInvalidFutureIAT = errors.New("invalid MaxFutureIAT configuration")
	errIATInFuture      = errors.New("token iat too far in the future")
	errMissingSubject   = errors.New("token subject missing")
	errMissingUsername  = errors.New("token username missing")
	errUnknownRole      = errors.New("token role unknown")
	errPermissionDrift  = errors.New("token permissions do not match role")
	errMissingTokenID   = errors.New("token id missing")
)

// Config holds the signing secret and validation policy. It is read once by
// NewManager and treated as immutable afterwards.
type Config struct {
	Secret       []byte
	TTL          time.Duration
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
	// Now overrides the clock for signing and validation. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the typed payload of an admin session token.
type Claims struct {
	Username    string          `json:"username"`
	Email       string          `json:"email,omitempty"`
	Role        permission.Role `json:"role"`
	Permissions permission.Set  `json:"permissions"`
	jwt.RegisteredClaims
}

// Manager creates and parses session tokens.
type Manager struct {
	config Config
	secret []byte
}

// NewManager validates cfg and returns a Manager holding a private copy of the
// secret.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errInvalidTTL
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, errShortSecret
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errInvalidLeeway
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = defaultMaxFutureIAT
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errInvalidFutureIAT
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = nil

	return &Manager{config: cfg, secret: secret}, nil
}

// TTL returns the configured validity window.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// SignOption sets optional claims in Sign.
type SignOption func(*Claims)

// WithEmail adds the administrator's email address to the token.
func WithEmail(email string) SignOption {
	return func(c *Claims) { c.Email = email }
}

// Sign issues a token for subject. Issued-at, expiry, issuer, audience and a
// fresh token id are filled in here; callers supply identity and role data only.
func (m *Manager) Sign(subject, username string, role permission.Role, perms permission.Set, opts ...SignOption) (string, *Claims, error) {
	now := m.config.Now().Truncate(time.Second)

	claims := &Claims{
		Username:    username,
		Role:        role,
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			ID:        uuid.NewString(),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	for _, opt := range opts {
		opt(claims)
	}
	if err := validateClaims(claims); err != nil {
		return "", nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, algorithm, time claims, issuer and audience, then
// checks that every application claim is present and consistent with the role
// table.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil {
		maxAllowed := m.config.Now().Add(m.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, errIATInFuture
		}
	}
	if err := validateClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func validateClaims(c *Claims) error {
	if c.Subject == "" {
		return errMissingSubject
	}
	if c.Username == "" {
		return errMissingUsername
	}
	if c.ID == "" {
		return errMissingTokenID
	}
	want, ok := permission.PermissionsFor(c.Role)
	if !ok {
		return errUnknownRole
	}
	if c.Permissions != want {
		return errPermissionDrift
	}
	return nil
}
