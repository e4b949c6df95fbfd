// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package sec

// # User Roles

// UserRole represents the global authorization level granted to an account.
//
// Planet-level access is NOT expressed as a role: membership, ownership, and
// bans are evaluated per planet by the permission engine. Roles only carry
// the global operator split.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Default role for standard registered users
	RoleMember UserRole = "member"
)

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}
