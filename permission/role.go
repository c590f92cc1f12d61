package permission

// Role is one of the closed set of admin privilege levels.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
	RoleViewer     Role = "viewer"
)

var roleOrder = [...]Role{RoleSuperAdmin, RoleAdmin, RoleModerator, RoleViewer}

// ParseRole resolves a role name. Matching is exact.
func ParseRole(name string) (Role, bool) {
	for _, r := range roleOrder {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Roles returns the defined roles from most to least privileged.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder[:])
	return out
}
