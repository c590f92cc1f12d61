package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/password"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"github.com/sirupsen/logrus"
)

// ErrUserNotFound is returned by a UserFinder for an unknown username.
var ErrUserNotFound = errors.New("user not found")

// UserRecord is an administrator row as stored.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	LastLogin    *time.Time
}

// UserFinder loads administrators by username.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (UserRecord, error)
}

// LastLoginRecorder is implemented by finders that track login time.
type LastLoginRecorder interface {
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

// PasswordUpgrader is implemented by finders that can replace a stored hash.
type PasswordUpgrader interface {
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// StoreChecker verifies credentials against stored users.
type StoreChecker struct {
	finder UserFinder
	hasher *password.Hasher
	logger logrus.FieldLogger
	now    func() time.Time
	dummy  string
}

// StoreOption configures a StoreChecker.
type StoreOption func(*StoreChecker)

// WithHasher enables rehashing of outdated hashes after a successful login.
// It has effect only when the finder implements PasswordUpgrader.
func WithHasher(h *password.Hasher) StoreOption {
	return func(c *StoreChecker) { c.hasher = h }
}

// WithLogger sets the logger used for best-effort bookkeeping failures.
func WithLogger(logger logrus.FieldLogger) StoreOption {
	return func(c *StoreChecker) { c.logger = logger }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(c *StoreChecker) { c.now = now }
}

// NewStoreChecker returns a checker backed by finder.
func NewStoreChecker(finder UserFinder, opts ...StoreOption) (*StoreChecker, error) {
	if finder == nil {
		return nil, errors.New("credential: user finder required")
	}
	c := &StoreChecker{
		finder: finder,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Unknown usernames are verified against this hash so that they cost the
	// same as a wrong password.
	h := c.hasher
	if h == nil {
		var err error
		if h, err = password.NewHasher(password.DefaultParams()); err != nil {
			return nil, err
		}
	}
	dummy, err := h.Hash("unused-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}
	c.dummy = dummy
	return c, nil
}

// CheckCredentials looks up username, rejects inactive accounts and unknown
// roles, and verifies the password.
func (c *StoreChecker) CheckCredentials(ctx context.Context, username, plain string) (adminkit.Identity, error) {
	user, err := c.finder.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = password.Verify(plain, c.dummy)
			return adminkit.Identity{}, adminkit.ErrLoginFailed
		}
		return adminkit.Identity{}, fmt.Errorf("credential: find user: %w", err)
	}

	ok, err := password.Verify(plain, user.PasswordHash)
	if err != nil {
		c.logger.WithError(err).WithField("username", username).Error("stored password hash is unusable")
		return adminkit.Identity{}, adminkit.ErrLoginFailed
	}
	if !ok || !user.Active {
		return adminkit.Identity{}, adminkit.ErrLoginFailed
	}

	role, ok := permission.ParseRole(user.Role)
	if !ok {
		c.logger.WithFields(logrus.Fields{"username": username, "role": user.Role}).Warn("user has unknown role")
		return adminkit.Identity{}, adminkit.ErrLoginFailed
	}

	c.afterLogin(ctx, user, plain)

	return adminkit.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     role,
	}, nil
}

func (c *StoreChecker) afterLogin(ctx context.Context, user UserRecord, plain string) {
	if rec, ok := c.finder.(LastLoginRecorder); ok {
		if err := rec.UpdateLastLogin(ctx, user.ID, c.now().UTC()); err != nil {
			c.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
		}
	}

	up, ok := c.finder.(PasswordUpgrader)
	if !ok || c.hasher == nil {
		return
	}
	needs, err := c.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := c.hasher.Hash(plain)
	if err != nil {
		return
	}
	if err := up.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		c.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to upgrade password hash")
	}
}
