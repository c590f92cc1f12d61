package permission

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Set is a bitmask of capabilities. The zero value grants nothing.
type Set uint64

const validBits = Set(1)<<capabilityCount - 1

var (
	errUnknownCapability = errors.New("unknown capability")
	errMissingCapability = errors.New("missing capability flag")
)

// NewSet returns a Set holding exactly the given capabilities. Invalid
// capabilities are ignored.
func NewSet(caps ...Capability) Set {
	var s Set
	for _, c := range caps {
		s = s.With(c)
	}
	return s
}

// Has reports whether c is granted. Invalid capabilities are never granted.
func (s Set) Has(c Capability) bool {
	if !c.Valid() {
		return false
	}
	return s&(1<<c) != 0
}

// With returns a copy of s with c granted.
func (s Set) With(c Capability) Set {
	if !c.Valid() {
		return s
	}
	return s | 1<<c
}

// Without returns a copy of s with c revoked.
func (s Set) Without(c Capability) Set {
	if !c.Valid() {
		return s
	}
	return s &^ (1 << c)
}

// Valid reports whether only defined capability bits are set.
func (s Set) Valid() bool {
	return s&^validBits == 0
}

func (s Set) Raw() uint64 {
	return uint64(s)
}

// Names lists the granted capabilities in bit order.
func (s Set) Names() []string {
	var out []string
	for _, c := range Capabilities() {
		if s.Has(c) {
			out = append(out, c.Name())
		}
	}
	return out
}

// Map returns every capability flag, granted or not.
func (s Set) Map() map[string]bool {
	out := make(map[string]bool, capabilityCount)
	for _, c := range Capabilities() {
		out[c.Name()] = s.Has(c)
	}
	return out
}

// MarshalJSON encodes the set as an object carrying all eight flags.
func (s Set) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("permission set has undefined bits: %#x", uint64(s))
	}
	return json.Marshal(s.Map())
}

// UnmarshalJSON accepts only an object with every defined flag present as a
// boolean and no other keys.
func (s *Set) UnmarshalJSON(data []byte) error {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	if flags == nil {
		return errMissingCapability
	}

	var out Set
	for name, granted := range flags {
		c, ok := ParseCapability(name)
		if !ok {
			return fmt.Errorf("%w: %q", errUnknownCapability, name)
		}
		if granted {
			out = out.With(c)
		}
	}
	for _, c := range Capabilities() {
		if _, ok := flags[c.Name()]; !ok {
			return fmt.Errorf("%w: %q", errMissingCapability, c.Name())
		}
	}

	*s = out
	return nil
}
