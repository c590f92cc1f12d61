package permission

import (
	"sort"
	"strings"
)

// resources maps admin area sections to the capability that gates them.
// Sections without a dedicated flag borrow the closest one.
var resources = map[string]Capability{
	"users":         ManageUsers,
	"logs":          ManageUsers,
	"announcements": ManageAnnouncements,
	"leaderboard":   ManageLeaderboard,
	"miniapps":      ManageMiniApps,
	"rewards":       ManageRewards,
	"games":         ManageRewards,
	"treasury":      ManageTreasury,
	"contracts":     ManageTreasury,
	"settings":      ManageSettings,
	"pages":         ManageSettings,
	"analytics":     ViewAnalytics,
}

// CapabilityFor returns the capability that gates resource.
func CapabilityFor(resource string) (Capability, bool) {
	c, ok := resources[resource]
	return c, ok
}

// CanAccess reports whether set unlocks resource. Unknown resources are denied.
func CanAccess(set Set, resource string) bool {
	c, ok := CapabilityFor(resource)
	if !ok {
		return false
	}
	return set.Has(c)
}

// Resources lists every known resource name in lexical order.
func Resources() []string {
	out := make([]string, 0, len(resources))
	for name := range resources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Accessible lists the resources set unlocks, in lexical order.
func Accessible(set Set) []string {
	var out []string
	for _, name := range Resources() {
		if CanAccess(set, name) {
			out = append(out, name)
		}
	}
	return out
}

// OtherLabel stands in for names that Label does not recognise.
const OtherLabel = "other"

// Label bounds a resource name taken from a request to a fixed vocabulary:
// known resources, capability names and "role:<role>" pass through, anything
// else becomes OtherLabel.
func Label(name string) string {
	if _, ok := CapabilityFor(name); ok {
		return name
	}
	if _, ok := ParseCapability(name); ok {
		return name
	}
	if role, ok := strings.CutPrefix(name, "role:"); ok {
		if _, ok := ParseRole(role); ok {
			return name
		}
	}
	return OtherLabel
}
