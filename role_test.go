package goPortal

import "testing"

func TestResolveHome(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleAdmin, PathAdminUsers},
		{RoleCoordinator, PathCoordinatorOrders},
		{RoleClient, PathStorefrontHome},
		{RoleUnknown, PathStorefrontHome},
		{Role(200), PathStorefrontHome},
	}
	for _, tt := range tests {
		if got := ResolveHome(tt.role); got != tt.want {
			t.Fatalf("ResolveHome(%v) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"coordinator", RoleCoordinator, true},
		{" Client ", RoleClient, true},
		{"SUPERUSER", RoleUnknown, false},
		{"", RoleUnknown, false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("ParseRole(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRoleStringRoundTrip(t *testing.T) {
	for r := RoleClient; r < roleCount; r++ {
		got, ok := ParseRole(r.String())
		if !ok || got != r {
			t.Fatalf("round trip of %v gave (%v, %v)", r, got, ok)
		}
	}
	if RoleUnknown.Valid() {
		t.Fatal("RoleUnknown must not be valid")
	}
}

func TestRoleSet(t *testing.T) {
	s := NewRoleSet(RoleAdmin, RoleUnknown)
	if !s.Has(RoleAdmin) || s.Has(RoleCoordinator) || s.Has(RoleUnknown) {
		t.Fatalf("unexpected membership in %v", s.Roles())
	}
	if s.Empty() || !NewRoleSet().Empty() {
		t.Fatal("Empty mismatch")
	}
	s = s.With(RoleCoordinator)
	roles := s.Roles()
	if len(roles) != 2 || roles[0] != RoleAdmin || roles[1] != RoleCoordinator {
		t.Fatalf("Roles() = %v", roles)
	}
}
