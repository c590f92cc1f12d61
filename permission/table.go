package permission

// table is the role to capability mapping. It is written once here and only
// read through PermissionsFor.
var table = map[Role]Set{
	RoleSuperAdmin: NewSet(Capabilities()...),
	RoleAdmin: NewSet(
		ManageAnnouncements,
		ManageLeaderboard,
		ManageMiniApps,
		ManageRewards,
		ManageTreasury,
		ViewAnalytics,
	),
	RoleModerator: NewSet(
		ManageAnnouncements,
		ManageLeaderboard,
		ViewAnalytics,
	),
	RoleViewer: NewSet(ViewAnalytics),
}

// PermissionsFor returns the capability set granted to role. Unknown roles get
// an empty set and false.
func PermissionsFor(role Role) (Set, bool) {
	set, ok := table[role]
	if !ok {
		return 0, false
	}
	return set, true
}

// RoleHas reports whether role grants c. Unknown roles grant nothing.
func RoleHas(role Role, c Capability) bool {
	set, _ := PermissionsFor(role)
	return set.Has(c)
}
