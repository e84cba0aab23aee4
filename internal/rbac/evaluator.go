package rbac

import (
	"context"
	"log/slog"
)

// Subject is the caller as the evaluator sees it: role plus the
// organizational associations scope checks run against.
type Subject struct {
	ID             int64
	Role           Role
	OrganizationID *int64
	TeamID         *int64
}

// Directory resolves a user id to an evaluation subject.
type Directory interface {
	Subject(ctx context.Context, userID int64) (Subject, error)
}

// ResourceType enumerates the resource kinds the evaluator can check.
// Using a closed enum keeps unhandled kinds a deliberate deny rather than
// a stringly-typed fallthrough.
type ResourceType int

const (
	ResourceUser ResourceType = iota
	ResourceOrganization
	ResourceTeam
	ResourceSalesperson
	ResourceEvaluation
)

func (t ResourceType) String() string {
	switch t {
	case ResourceUser:
		return "user"
	case ResourceOrganization:
		return "organization"
	case ResourceTeam:
		return "team"
	case ResourceSalesperson:
		return "salesperson"
	case ResourceEvaluation:
		return "evaluation"
	}
	return "unknown"
}

// Ownership carries the foreign keys of a resource that scope checks
// compare against the caller's associations. Nil fields mean the resource
// has no such association.
type Ownership struct {
	OwnerUserID    *int64
	TeamID         *int64
	OrganizationID *int64
}

// ResourceStore loads ownership information for a resource.
type ResourceStore interface {
	Ownership(ctx context.Context, resourceType ResourceType, resourceID int64) (Ownership, error)
}

// Evaluator decides allow/deny for (user, permission, resource) triples.
// Authorization failure is a false return, never an error: absence of
// evidence of permission is treated as absence of permission.
type Evaluator struct {
	directory Directory
	resources ResourceStore
	logger    *slog.Logger
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(directory Directory, resources ResourceStore, logger *slog.Logger) *Evaluator {
	return &Evaluator{directory: directory, resources: resources, logger: logger}
}

// HasPermission reports whether the user holds perm within the role's
// scope. resourceID narrows own-scoped checks; pass nil when the operation
// has no target resource.
func (e *Evaluator) HasPermission(ctx context.Context, userID int64, perm Permission, resourceID *int64) bool {
	subject, ok := e.subject(ctx, userID)
	if !ok {
		return false
	}
	if !roleHasPermission(subject.Role, perm) {
		return false
	}
	scope, ok := RoleScope(subject.Role)
	if !ok {
		return false
	}
	switch scope {
	case ScopeGlobal:
		return true
	case ScopeOrganization:
		return subject.OrganizationID != nil
	case ScopeTeam:
		return subject.TeamID != nil
	case ScopeOwn:
		return resourceID != nil && *resourceID == userID
	}
	return false
}

// CheckResourceAccess re-validates role and permission, then compares the
// target resource's foreign keys against the caller's associations.
func (e *Evaluator) CheckResourceAccess(ctx context.Context, userID int64, resourceType ResourceType, resourceID int64, perm Permission) bool {
	subject, ok := e.subject(ctx, userID)
	if !ok {
		return false
	}
	if !roleHasPermission(subject.Role, perm) {
		return false
	}
	scope, ok := RoleScope(subject.Role)
	if !ok {
		return false
	}
	if scope == ScopeGlobal {
		return true
	}

	switch resourceType {
	case ResourceUser, ResourceOrganization, ResourceTeam, ResourceSalesperson, ResourceEvaluation:
	default:
		return false
	}

	ownership, err := e.resources.Ownership(ctx, resourceType, resourceID)
	if err != nil {
		// Fail closed: a resource we cannot load is a resource we cannot grant.
		if e.logger != nil {
			e.logger.Warn("rbac resource lookup failed",
				slog.String("resource", resourceType.String()),
				slog.Int64("resource_id", resourceID),
				slog.Any("error", err))
		}
		return false
	}

	switch scope {
	case ScopeOwn:
		if resourceType == ResourceUser {
			return resourceID == userID
		}
		return ownership.OwnerUserID != nil && *ownership.OwnerUserID == userID
	case ScopeTeam:
		return matchAssociation(subject.TeamID, ownership.TeamID)
	case ScopeOrganization:
		return matchAssociation(subject.OrganizationID, ownership.OrganizationID)
	}
	return false
}

func (e *Evaluator) subject(ctx context.Context, userID int64) (Subject, bool) {
	if e.directory == nil {
		return Subject{}, false
	}
	subject, err := e.directory.Subject(ctx, userID)
	if err != nil {
		return Subject{}, false
	}
	if _, ok := rolePermissionSets[subject.Role]; !ok {
		return Subject{}, false
	}
	return subject, true
}

func matchAssociation(caller, resource *int64) bool {
	return caller != nil && resource != nil && *caller == *resource
}
