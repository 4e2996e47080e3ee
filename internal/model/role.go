package model

import "strings"

// Role is the closed set of account types.  Tokens and documents carry the
// lower-case string form.
type Role string

const (
	RoleStudent Role = "student"
	RoleOwner   Role = "owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleOwner
}

func (r Role) String() string { return string(r) }

// ParseRole normalises s and returns the matching role.  Legacy spellings
// such as "Owner" are accepted.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}
