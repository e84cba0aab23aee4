package rbac

// Permission is an atomic, named capability checked against a role's
// static list.
type Permission string

// Permission catalog. Permissions are declared per role below and never
// combined or derived at runtime.
const (
	PermUserCreate     Permission = "user.create"
	PermUserRead       Permission = "user.read"
	PermUserUpdate     Permission = "user.update"
	PermUserDelete     Permission = "user.delete"
	PermUserRoleChange Permission = "user.role_change"

	PermOrgCreate Permission = "org.create"
	PermOrgRead   Permission = "org.read"
	PermOrgUpdate Permission = "org.update"
	PermOrgDelete Permission = "org.delete"

	PermTeamCreate Permission = "team.create"
	PermTeamRead   Permission = "team.read"
	PermTeamUpdate Permission = "team.update"
	PermTeamDelete Permission = "team.delete"

	PermSalespersonCreate Permission = "salesperson.create"
	PermSalespersonRead   Permission = "salesperson.read"
	PermSalespersonUpdate Permission = "salesperson.update"
	PermSalespersonDelete Permission = "salesperson.delete"

	PermScorecardCreate   Permission = "scorecard.create"
	PermScorecardRead     Permission = "scorecard.read"
	PermScorecardUpdate   Permission = "scorecard.update"
	PermScorecardDelete   Permission = "scorecard.delete"
	PermScorecardActivate Permission = "scorecard.activate"

	PermEvaluationCreate  Permission = "evaluation.create"
	PermEvaluationRead    Permission = "evaluation.read"
	PermEvaluationUpdate  Permission = "evaluation.update"
	PermEvaluationDelete  Permission = "evaluation.delete"
	PermEvaluationSubmit  Permission = "evaluation.submit"
	PermEvaluationApprove Permission = "evaluation.approve"

	PermAnalyticsRead   Permission = "analytics.read"
	PermAnalyticsExport Permission = "analytics.export"

	PermAuditRead    Permission = "audit.read"
	PermAuditExport  Permission = "audit.export"
	PermAuditCleanup Permission = "audit.cleanup"

	PermGDPRAccess   Permission = "gdpr.access"
	PermGDPRExport   Permission = "gdpr.export"
	PermGDPRErase    Permission = "gdpr.erase"
	PermGDPRRectify  Permission = "gdpr.rectify"
	PermGDPRRestrict Permission = "gdpr.restrict"

	PermPermissionRead Permission = "permission.read"
)

// allPermissions lists the full catalog in declaration order.
var allPermissions = []Permission{
	PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete, PermUserRoleChange,
	PermOrgCreate, PermOrgRead, PermOrgUpdate, PermOrgDelete,
	PermTeamCreate, PermTeamRead, PermTeamUpdate, PermTeamDelete,
	PermSalespersonCreate, PermSalespersonRead, PermSalespersonUpdate, PermSalespersonDelete,
	PermScorecardCreate, PermScorecardRead, PermScorecardUpdate, PermScorecardDelete, PermScorecardActivate,
	PermEvaluationCreate, PermEvaluationRead, PermEvaluationUpdate, PermEvaluationDelete,
	PermEvaluationSubmit, PermEvaluationApprove,
	PermAnalyticsRead, PermAnalyticsExport,
	PermAuditRead, PermAuditExport, PermAuditCleanup,
	PermGDPRAccess, PermGDPRExport, PermGDPRErase, PermGDPRRectify, PermGDPRRestrict,
	PermPermissionRead,
}

// PermissionSet declares a role's permission list and its access scope.
type PermissionSet struct {
	Scope       Scope
	Permissions []Permission
}

// rolePermissionSets is the static, compiled-in catalog. There are no
// public mutators.
var rolePermissionSets = map[Role]PermissionSet{
	RoleAdmin: {
		Scope:       ScopeGlobal,
		Permissions: allPermissions,
	},
	RoleManager: {
		Scope: ScopeOrganization,
		Permissions: []Permission{
			PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete,
			PermOrgRead, PermOrgUpdate,
			PermTeamCreate, PermTeamRead, PermTeamUpdate, PermTeamDelete,
			PermSalespersonCreate, PermSalespersonRead, PermSalespersonUpdate, PermSalespersonDelete,
			PermScorecardCreate, PermScorecardRead, PermScorecardUpdate, PermScorecardActivate,
			PermEvaluationCreate, PermEvaluationRead, PermEvaluationUpdate,
			PermEvaluationSubmit, PermEvaluationApprove,
			PermAnalyticsRead, PermAnalyticsExport,
			PermAuditRead,
			PermPermissionRead,
		},
	},
	RoleSupervisor: {
		Scope: ScopeTeam,
		Permissions: []Permission{
			PermUserRead,
			PermTeamRead,
			PermSalespersonRead, PermSalespersonUpdate,
			PermScorecardRead,
			PermEvaluationCreate, PermEvaluationRead, PermEvaluationUpdate,
			PermEvaluationSubmit, PermEvaluationApprove,
			PermAnalyticsRead,
			PermPermissionRead,
		},
	},
	RoleSalesperson: {
		Scope: ScopeOwn,
		Permissions: []Permission{
			PermUserRead,
			PermSalespersonRead,
			PermScorecardRead,
			PermEvaluationRead,
			PermAnalyticsRead,
			PermPermissionRead,
		},
	},
}

// RolePermissions returns the permission list for a role. Unknown roles get
// an empty list, never an error.
func RolePermissions(role Role) []Permission {
	set, ok := rolePermissionSets[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, len(set.Permissions))
	copy(perms, set.Permissions)
	return perms
}

// RoleScope returns the scope for a role. The second value is false for
// unknown roles.
func RoleScope(role Role) (Scope, bool) {
	set, ok := rolePermissionSets[role]
	if !ok {
		return 0, false
	}
	return set.Scope, true
}

// roleHasPermission reports whether the role's static list contains perm.
func roleHasPermission(role Role, perm Permission) bool {
	set, ok := rolePermissionSets[role]
	if !ok {
		return false
	}
	for _, p := range set.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Catalog returns every permission in the catalog.
func Catalog() []Permission {
	perms := make([]Permission, len(allPermissions))
	copy(perms, allPermissions)
	return perms
}
