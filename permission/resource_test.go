package permission

import (
	"strings"
	"testing"
)

func TestCanAccessResource(t *testing.T) {
	moderator, _ := PermissionsFor(RoleModerator)
	viewer, _ := PermissionsFor(RoleViewer)
	super, _ := PermissionsFor(RoleSuperAdmin)

	tests := []struct {
		set      Set
		resource string
		want     bool
	}{
		{moderator, "announcements", true},
		{moderator, "leaderboard", true},
		{moderator, "treasury", false},
		{moderator, "contracts", false},
		{viewer, "analytics", true},
		{viewer, "users", false},
		{super, "logs", true},
		{super, "unknown", false},
		{super, "", false},
	}
	for _, tt := range tests {
		if got := CanAccess(tt.set, tt.resource); got != tt.want {
			t.Errorf("CanAccess(%v, %q) = %v, want %v", tt.set.Names(), tt.resource, got, tt.want)
		}
	}
}

func TestEveryResourceMapsToDefinedCapability(t *testing.T) {
	for _, name := range Resources() {
		c, ok := CapabilityFor(name)
		if !ok || !c.Valid() {
			t.Fatalf("resource %q maps to %v", name, c)
		}
	}
}

func TestSuperAdminReachesEveryResource(t *testing.T) {
	super, _ := PermissionsFor(RoleSuperAdmin)
	if got, want := len(Accessible(super)), len(Resources()); got != want {
		t.Fatalf("super admin reaches %d of %d resources", got, want)
	}
}

func TestLabelBoundsVocabulary(t *testing.T) {
	long := strings.Repeat("x", 300)
	tests := []struct {
		name string
		want string
	}{
		{"treasury", "treasury"},
		{"can_manage_users", "can_manage_users"},
		{"role:viewer", "role:viewer"},
		{"role:root", OtherLabel},
		{"nuclear-codes", OtherLabel},
		{long, OtherLabel},
		{"", OtherLabel},
	}
	for _, tt := range tests {
		if got := Label(tt.name); got != tt.want {
			t.Errorf("Label(%.20q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
