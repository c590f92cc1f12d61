package credential

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
)

// StaticChecker accepts a single username and password pair.
type StaticChecker struct {
	username [sha256.Size]byte
	password [sha256.Size]byte
	name     string
	role     permission.Role
}

// NewStaticChecker returns a checker granting role super_admin to username.
func NewStaticChecker(username, password string) *StaticChecker {
	return NewStaticCheckerWithRole(username, password, permission.RoleSuperAdmin)
}

// NewStaticCheckerWithRole is NewStaticChecker with an explicit role.
func NewStaticCheckerWithRole(username, password string, role permission.Role) *StaticChecker {
	return &StaticChecker{
		username: sha256.Sum256([]byte(username)),
		password: sha256.Sum256([]byte(password)),
		name:     username,
		role:     role,
	}
}

// CheckCredentials compares both values in constant time. Digests are compared
// so that input length does not affect timing.
func (c *StaticChecker) CheckCredentials(_ context.Context, username, password string) (adminkit.Identity, error) {
	u := sha256.Sum256([]byte(username))
	p := sha256.Sum256([]byte(password))

	userOK := subtle.ConstantTimeCompare(u[:], c.username[:])
	passOK := subtle.ConstantTimeCompare(p[:], c.password[:])
	if userOK&passOK != 1 {
		return adminkit.Identity{}, adminkit.ErrLoginFailed
	}

	return adminkit.Identity{
		Username: c.name,
		Role:     c.role,
	}, nil
}
