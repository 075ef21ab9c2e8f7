// ABOUTME: Enum types for entity records: Role, Rank, State, HitType, Categories
// ABOUTME: Zero members are the "unset" sentinels; text forms are used by JSON and the API

package store

import (
	"encoding/json"
	"fmt"
)

// Role is a user's side of the exchange. Set once at creation.
type Role uint8

const (
	RoleUndefined Role = iota
	RolePublisher
	RoleAdvertiser
)

var roleNames = []string{"undefined", "publisher", "advertiser"}

func (r Role) String() string { return enumName(roleNames, uint8(r)) }

// MarshalText implements encoding.TextMarshaler
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Role) UnmarshalText(b []byte) error {
	v, err := parseEnum("role", roleNames, string(b))
	*r = Role(v)
	return err
}

// Rank is the trust level assigned to a user
type Rank uint8

const (
	RankNotSet Rank = iota
	RankUntrusted
	RankKnown
	RankTrusted
	RankVerified
	RankCertified
	RankVip
)

var rankNames = []string{"not_set", "untrusted", "known", "trusted", "verified", "certified", "vip"}

func (r Rank) String() string { return enumName(rankNames, uint8(r)) }

// MarshalText implements encoding.TextMarshaler
func (r Rank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Rank) UnmarshalText(b []byte) error {
	v, err := parseEnum("rank", rankNames, string(b))
	*r = Rank(v)
	return err
}

// State is an entity's lifecycle state. StateUnknown means the record does
// not exist.
type State uint8

const (
	StateUnknown State = iota
	StateNew
	StateActive
	StateInProgress
	StateFinished
	StateRejected
)

var stateNames = []string{"unknown", "new", "active", "in_progress", "finished", "rejected"}

func (s State) String() string { return enumName(stateNames, uint8(s)) }

// Terminal reports whether no further state changes are allowed
func (s State) Terminal() bool {
	return s == StateFinished || s == StateRejected
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(b []byte) error {
	v, err := parseEnum("state", stateNames, string(b))
	*s = State(v)
	return err
}

// HitType distinguishes impressions from actions
type HitType uint8

const (
	HitTypeUndefined HitType = iota
	HitTypeDisplay
	HitTypeAction
)

var hitTypeNames = []string{"undefined", "display", "action"}

func (h HitType) String() string { return enumName(hitTypeNames, uint8(h)) }

// MarshalText implements encoding.TextMarshaler
func (h HitType) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (h *HitType) UnmarshalText(b []byte) error {
	v, err := parseEnum("hit type", hitTypeNames, string(b))
	*h = HitType(v)
	return err
}

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("invalid(%d)", v)
}

func parseEnum(what string, names []string, s string) (uint8, error) {
	if s == "" {
		return 0, nil
	}
	for i, n := range names {
		if n == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

// Categories is an ordered set of category codes
type Categories []uint8

// Normalize drops duplicate codes, keeping the first occurrence. Returns nil
// for an empty set.
func (c Categories) Normalize() Categories {
	if len(c) == 0 {
		return nil
	}
	var seen [256]bool
	out := make(Categories, 0, len(c))
	for _, code := range c {
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// MarshalJSON encodes as a number array rather than base64
func (c Categories) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(c))
	for i, code := range c {
		ints[i] = int(code)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON decodes a number array
func (c *Categories) UnmarshalJSON(b []byte) error {
	var ints []int
	if err := json.Unmarshal(b, &ints); err != nil {
		return err
	}
	out := make(Categories, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("category code %d out of range", v)
		}
		out[i] = uint8(v)
	}
	*c = out
	return nil
}
