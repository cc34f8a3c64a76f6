package domain

import "strings"

// Role is the persisted authorization role of an identity.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleTenant Role = "tenant"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// ParseRole accepts "admin" or "tenant" in any case.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleTenant:
		return RoleTenant, true
	default:
		return "", false
	}
}
