package rbac

import "strings"

// Role is the authoritative role enumeration. The platform historically
// carried two parallel role vocabularies; ParseRole folds the legacy names
// into this one.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleSupervisor  Role = "supervisor"
	RoleSalesperson Role = "salesperson"
)

// legacyRoles maps the retired role vocabulary onto the authoritative one.
var legacyRoles = map[string]Role{
	"sales_director":         RoleManager,
	"regional_sales_manager": RoleManager,
	"sales_lead":             RoleSupervisor,
}

// ParseRole resolves a stored role name, accepting legacy aliases.
// The second return value is false for unrecognized names; callers must
// treat such users as having no permissions.
func ParseRole(name string) (Role, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	switch Role(normalized) {
	case RoleAdmin, RoleManager, RoleSupervisor, RoleSalesperson:
		return Role(normalized), true
	}
	if mapped, ok := legacyRoles[normalized]; ok {
		return mapped, true
	}
	return "", false
}

// Roles returns the authoritative role set.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleSupervisor, RoleSalesperson}
}

// Scope is the breadth of data a role may act on.
type Scope int

const (
	ScopeOwn Scope = iota
	ScopeTeam
	ScopeOrganization
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeOwn:
		return "own"
	case ScopeTeam:
		return "team"
	case ScopeOrganization:
		return "organization"
	case ScopeGlobal:
		return "global"
	}
	return "unknown"
}

// Narrowest returns the most restrictive of the given scopes. Each role has
// exactly one scope today, so this only matters if a role ever carries more.
func Narrowest(scopes ...Scope) Scope {
	narrowest := ScopeGlobal
	for _, s := range scopes {
		if s < narrowest {
			narrowest = s
		}
	}
	return narrowest
}
