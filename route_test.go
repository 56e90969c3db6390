package goPortal

import "testing"

func TestDefaultRouteTableMatch(t *testing.T) {
	table := MustRouteTable(DefaultRoutes())

	tests := []struct {
		path      string
		want      string
		partition Partition
		ok        bool
	}{
		{"/", "/", PartitionStorefront, true},
		{"/login", PathLogin, PartitionPublic, true},
		{"/login/", PathLogin, PartitionPublic, true},
		{"/login?redirect_uri=%2Fcarrito", PathLogin, PartitionPublic, true},
		{"/productos/42", "/productos/{id}", PartitionStorefront, true},
		{"/admin/usuarios", PathAdminUsers, PartitionAdmin, true},
		{"/coordinador/leads/7", "/coordinador/leads/{id}", PartitionCoordinator, true},
		{"/404", PathNotFound, PartitionPublic, true},
		{"/productos/42/extra", "", 0, false},
		{"/nowhere", "", 0, false},
	}
	for _, tt := range tests {
		got, ok := table.Match(tt.path)
		if ok != tt.ok {
			t.Fatalf("Match(%q) ok = %v, want %v", tt.path, ok, tt.ok)
		}
		if !ok {
			continue
		}
		if got.Pattern != tt.want || got.Partition != tt.partition {
			t.Fatalf("Match(%q) = %q/%v, want %q/%v", tt.path, got.Pattern, got.Partition, tt.want, tt.partition)
		}
	}
}

func TestRouteTableLiteralBeatsParam(t *testing.T) {
	table := MustRouteTable([]RouteDescriptor{
		{Pattern: "/pedidos/{id}"},
		{Pattern: "/pedidos/nuevo", Public: true},
	})
	got, ok := table.Match("/pedidos/nuevo")
	if !ok || got.Pattern != "/pedidos/nuevo" {
		t.Fatalf("Match = %q, %v", got.Pattern, ok)
	}
}

func TestNewRouteTableRejectsBadInput(t *testing.T) {
	cases := [][]RouteDescriptor{
		nil,
		{{Pattern: "login"}},
		{{Pattern: "/a"}, {Pattern: "/a/"}},
		{{Pattern: "/a/{}"}},
	}
	for i, routes := range cases {
		if _, err := NewRouteTable(routes); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestRoutesReturnsCopy(t *testing.T) {
	table := MustRouteTable(DefaultRoutes())
	routes := table.Routes()
	routes[0].Pattern = "/changed"
	if table.Routes()[0].Pattern == "/changed" {
		t.Fatal("Routes leaked internal slice")
	}
}
