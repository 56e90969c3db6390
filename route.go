package goPortal

import (
	"errors"
	"fmt"
	"strings"
)

// Partition groups routes by audience.
type Partition uint8

const (
	// PartitionPublic holds screens reachable without a session.
	PartitionPublic Partition = iota
	// PartitionStorefront holds role-inclusive screens.
	PartitionStorefront
	// PartitionAdmin holds admin-only screens.
	PartitionAdmin
	// PartitionCoordinator holds coordinator-only screens.
	PartitionCoordinator
)

func (p Partition) String() string {
	switch p {
	case PartitionPublic:
		return "public"
	case PartitionStorefront:
		return "storefront"
	case PartitionAdmin:
		return "admin"
	case PartitionCoordinator:
		return "coordinator"
	default:
		return "unknown"
	}
}

// RouteDescriptor declares who may see a screen.
//
// Public screens are reachable without a session and bounce authenticated
// visitors home. Non-public screens require a session whose role is in
// AllowedRoles; an empty AllowedRoles admits any role. Unguarded screens are
// rendered for everyone and skip the guard entirely.
type RouteDescriptor struct {
	Pattern      string
	AllowedRoles RoleSet
	Public       bool
	Unguarded    bool
	Partition    Partition
}

// DefaultRoutes returns the static route table of the portal.
func DefaultRoutes() []RouteDescriptor {
	admin := NewRoleSet(RoleAdmin)
	coordinator := NewRoleSet(RoleCoordinator)

	return []RouteDescriptor{
		{Pattern: PathLogin, Public: true, Partition: PartitionPublic},
		{Pattern: PathRegister, Public: true, Partition: PartitionPublic},
		{Pattern: PathForgotPassword, Public: true, Partition: PartitionPublic},
		{Pattern: PathNotFound, Unguarded: true, Partition: PartitionPublic},

		{Pattern: PathStorefrontHome, Partition: PartitionStorefront},
		{Pattern: "/productos", Partition: PartitionStorefront},
		{Pattern: "/productos/{id}", Partition: PartitionStorefront},
		{Pattern: "/carrito", Partition: PartitionStorefront},
		{Pattern: "/pedidos", Partition: PartitionStorefront},
		{Pattern: "/pedidos/{id}", Partition: PartitionStorefront},
		{Pattern: "/perfil", Partition: PartitionStorefront},

		{Pattern: PathAdminUsers, AllowedRoles: admin, Partition: PartitionAdmin},
		{Pattern: "/admin/usuarios/{id}", AllowedRoles: admin, Partition: PartitionAdmin},

		{Pattern: PathCoordinatorOrders, AllowedRoles: coordinator, Partition: PartitionCoordinator},
		{Pattern: "/coordinador/pedidos/{id}", AllowedRoles: coordinator, Partition: PartitionCoordinator},
		{Pattern: "/coordinador/leads", AllowedRoles: coordinator, Partition: PartitionCoordinator},
		{Pattern: "/coordinador/leads/{id}", AllowedRoles: coordinator, Partition: PartitionCoordinator},
	}
}

type compiledRoute struct {
	desc     RouteDescriptor
	segments []string
	params   int
}

// RouteTable matches request paths against route descriptors.
//
// RouteTable is immutable after construction and safe for concurrent use.
type RouteTable struct {
	routes []compiledRoute
}

// NewRouteTable validates and compiles routes. Patterns must be absolute and
// unique.
func NewRouteTable(routes []RouteDescriptor) (*RouteTable, error) {
	if len(routes) == 0 {
		return nil, errors.New("route table empty")
	}

	seen := make(map[string]struct{}, len(routes))
	t := &RouteTable{routes: make([]compiledRoute, 0, len(routes))}
	for _, r := range routes {
		pattern := normalizePath(r.Pattern)
		if pattern == "" || !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("invalid route pattern %q", r.Pattern)
		}
		if _, dup := seen[pattern]; dup {
			return nil, fmt.Errorf("duplicate route pattern %q", pattern)
		}
		seen[pattern] = struct{}{}

		r.Pattern = pattern
		segs := splitPath(pattern)
		params := 0
		for _, s := range segs {
			if isParam(s) {
				if len(s) < 3 {
					return nil, fmt.Errorf("empty route parameter in %q", pattern)
				}
				params++
			}
		}
		t.routes = append(t.routes, compiledRoute{desc: r, segments: segs, params: params})
	}

	return t, nil
}

// MustRouteTable is NewRouteTable for static tables; it panics on error.
func MustRouteTable(routes []RouteDescriptor) *RouteTable {
	t, err := NewRouteTable(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the descriptor for path. When several patterns match, the one
// with the fewest parameter segments wins.
func (t *RouteTable) Match(path string) (RouteDescriptor, bool) {
	if t == nil {
		return RouteDescriptor{}, false
	}
	segs := splitPath(normalizePath(path))

	best := -1
	for i := range t.routes {
		if !t.routes[i].matches(segs) {
			continue
		}
		if best < 0 || t.routes[i].params < t.routes[best].params {
			best = i
		}
	}
	if best < 0 {
		return RouteDescriptor{}, false
	}
	return t.routes[best].desc, true
}

// Routes returns a copy of the descriptors in declaration order.
func (t *RouteTable) Routes() []RouteDescriptor {
	if t == nil {
		return nil
	}
	out := make([]RouteDescriptor, len(t.routes))
	for i := range t.routes {
		out[i] = t.routes[i].desc
	}
	return out
}

func (c compiledRoute) matches(segs []string) bool {
	if len(segs) != len(c.segments) {
		return false
	}
	for i, s := range c.segments {
		if isParam(s) {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if s != segs[i] {
			return false
		}
	}
	return true
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// normalizePath strips the query, fragment and trailing slashes. The root
// path stays "/".
func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

func splitPath(path string) []string {
	if path == "/" || path == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
