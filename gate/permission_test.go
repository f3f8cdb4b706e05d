package gate_test

import (
	"testing"

	"github.com/naumangoraya/sos/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	perm := gate.NewPermission("customer", gate.ActionCreate)
	if perm != "customer:create" {
		t.Errorf("expected 'customer:create', got '%s'", perm)
	}
}

func TestPermission_Split(t *testing.T) {
	res, act := gate.Permission("sale_invoice:view").Split()
	if res != "sale_invoice" || act != gate.ActionView {
		t.Errorf("got %q %q", res, act)
	}
	for _, bad := range []gate.Permission{"invalid", ":view", "customer:"} {
		if bad.Valid() {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		granted   gate.Permission
		requested gate.Permission
		want      bool
	}{
		{"customer:create", "customer:create", true},
		{"customer:create", "customer:delete", false},
		{"customer:create", "supplier:create", false},
		{"customer:*", "customer:delete", true},
		{"customer:*", "item:delete", false},
		{"*:list", "item:list", true},
		{"*:list", "item:delete", false},
		{gate.PermissionSuperAdmin, "user:update", true},
		{gate.PermissionSuperAdmin, "garbage", false},
		{"garbage", "customer:list", false},
	}
	for _, tt := range tests {
		if got := tt.granted.Matches(tt.requested); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.granted, tt.requested, got, tt.want)
		}
	}
}
