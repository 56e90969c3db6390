package goPortal

import "strings"

// Role identifies the single role carried by an authenticated session.
//
// The set is closed. RoleUnknown is the zero value and is not a role: it is
// what a missing or unrecognised role degrades to, and it is always sent to
// the storefront home.
type Role uint8

const (
	// RoleUnknown is the degraded role of a malformed session.
	RoleUnknown Role = iota
	// RoleClient is a storefront customer.
	RoleClient
	// RoleAdmin manages portal users.
	RoleAdmin
	// RoleCoordinator manages submitted orders and the sales pipeline.
	RoleCoordinator

	roleCount
)

// Canonical landing and flow paths.
const (
	PathStorefrontHome    = "/"
	PathLogin             = "/login"
	PathRegister          = "/registro"
	PathForgotPassword    = "/recuperar-contrasena"
	PathNotFound          = "/404"
	PathAdminUsers        = "/admin/usuarios"
	PathCoordinatorOrders = "/coordinador/pedidos"
)

// ParseRole maps a backend role string to a Role. Matching is
// case-insensitive. Unrecognised values return (RoleUnknown, false).
func ParseRole(value string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "CLIENT":
		return RoleClient, true
	case "ADMIN":
		return RoleAdmin, true
	case "COORDINATOR":
		return RoleCoordinator, true
	default:
		return RoleUnknown, false
	}
}

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleAdmin:
		return "ADMIN"
	case RoleCoordinator:
		return "COORDINATOR"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	return r > RoleUnknown && r < roleCount
}

// ResolveHome returns the canonical landing path for role. It is total:
// clients and anything unrecognised land on the storefront home.
func ResolveHome(role Role) string {
	switch role {
	case RoleAdmin:
		return PathAdminUsers
	case RoleCoordinator:
		return PathCoordinatorOrders
	case RoleClient, RoleUnknown:
		return PathStorefrontHome
	default:
		return PathStorefrontHome
	}
}

// RoleSet is a bitmask of roles. The empty set means "any authenticated role".
type RoleSet uint8

// NewRoleSet builds a set from roles. Invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.With(r)
	}
	return s
}

// With returns a copy of s that also contains r.
func (s RoleSet) With(r Role) RoleSet {
	if !r.Valid() {
		return s
	}
	return s | 1<<r
}

// Has reports whether r is in s. RoleUnknown is never a member.
func (s RoleSet) Has(r Role) bool {
	if !r.Valid() {
		return false
	}
	return s&(1<<r) != 0
}

// Empty reports whether the set has no members.
func (s RoleSet) Empty() bool {
	return s == 0
}

// Roles lists the members in declaration order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, int(roleCount))
	for r := RoleClient; r < roleCount; r++ {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}
