package permission

// Capability is a single boolean admin permission flag.
type Capability uint8

const (
	ManageUsers Capability = iota
	ManageAnnouncements
	ManageLeaderboard
	ManageMiniApps
	ManageRewards
	ManageTreasury
	ManageSettings
	ViewAnalytics
	capabilityCount
)

var capabilityNames = [capabilityCount]string{
	ManageUsers:         "can_manage_users",
	ManageAnnouncements: "can_manage_announcements",
	ManageLeaderboard:   "can_manage_leaderboard",
	ManageMiniApps:      "can_manage_miniapps",
	ManageRewards:       "can_manage_rewards",
	ManageTreasury:      "can_manage_treasury",
	ManageSettings:      "can_manage_settings",
	ViewAnalytics:       "can_view_analytics",
}

// Name returns the wire name of the capability, e.g. "can_manage_users".
// Unknown capabilities return the empty string.
func (c Capability) Name() string {
	if !c.Valid() {
		return ""
	}
	return capabilityNames[c]
}

func (c Capability) String() string {
	if name := c.Name(); name != "" {
		return name
	}
	return "capability(invalid)"
}

// Valid reports whether c is one of the defined capabilities.
func (c Capability) Valid() bool {
	return c < capabilityCount
}

// ParseCapability resolves a wire name to its Capability.
func ParseCapability(name string) (Capability, bool) {
	for i, n := range capabilityNames {
		if n == name {
			return Capability(i), true
		}
	}
	return 0, false
}

// Capabilities returns every defined capability in bit order.
func Capabilities() []Capability {
	out := make([]Capability, 0, capabilityCount)
	for c := Capability(0); c < capabilityCount; c++ {
		out = append(out, c)
	}
	return out
}
