package rbac

import "testing"

func TestParseRoleAuthoritativeNames(t *testing.T) {
	for _, role := range Roles() {
		parsed, ok := ParseRole(string(role))
		if !ok || parsed != role {
			t.Fatalf("expected %q to parse to itself, got %q ok=%v", role, parsed, ok)
		}
	}
}

func TestParseRoleLegacyAliases(t *testing.T) {
	cases := map[string]Role{
		"sales_director":         RoleManager,
		"regional_sales_manager": RoleManager,
		"sales_lead":             RoleSupervisor,
		"SALES_LEAD":             RoleSupervisor,
		"  Admin ":               RoleAdmin,
	}
	for name, want := range cases {
		got, ok := ParseRole(name)
		if !ok {
			t.Fatalf("expected %q to parse", name)
		}
		if got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestParseRoleUnknownFailsClosed(t *testing.T) {
	for _, name := range []string{"", "root", "superuser", "manager2"} {
		if _, ok := ParseRole(name); ok {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestRolePermissionsUnknownRoleEmpty(t *testing.T) {
	if perms := RolePermissions(Role("intern")); len(perms) != 0 {
		t.Fatalf("expected empty permission list for unknown role, got %v", perms)
	}
	if _, ok := RoleScope(Role("intern")); ok {
		t.Fatalf("expected no scope for unknown role")
	}
}

func TestEachRoleHasExactlyOneScope(t *testing.T) {
	want := map[Role]Scope{
		RoleAdmin:       ScopeGlobal,
		RoleManager:     ScopeOrganization,
		RoleSupervisor:  ScopeTeam,
		RoleSalesperson: ScopeOwn,
	}
	for role, scope := range want {
		got, ok := RoleScope(role)
		if !ok {
			t.Fatalf("missing scope for %q", role)
		}
		if got != scope {
			t.Fatalf("scope for %q = %v, want %v", role, got, scope)
		}
	}
}

func TestNarrowestScope(t *testing.T) {
	if got := Narrowest(ScopeGlobal, ScopeTeam, ScopeOrganization); got != ScopeTeam {
		t.Fatalf("narrowest = %v, want team", got)
	}
	if got := Narrowest(ScopeOwn, ScopeGlobal); got != ScopeOwn {
		t.Fatalf("narrowest = %v, want own", got)
	}
}
