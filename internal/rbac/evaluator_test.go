package rbac

import (
	"context"
	"errors"
	"testing"
)

type stubDirectory struct {
	subjects map[int64]Subject
	err      error
}

func (s *stubDirectory) Subject(ctx context.Context, userID int64) (Subject, error) {
	if s.err != nil {
		return Subject{}, s.err
	}
	subject, ok := s.subjects[userID]
	if !ok {
		return Subject{}, errors.New("user not found")
	}
	return subject, nil
}

type stubResources struct {
	ownership map[int64]Ownership
	err       error
}

func (s *stubResources) Ownership(ctx context.Context, resourceType ResourceType, resourceID int64) (Ownership, error) {
	if s.err != nil {
		return Ownership{}, s.err
	}
	o, ok := s.ownership[resourceID]
	if !ok {
		return Ownership{}, errors.New("resource not found")
	}
	return o, nil
}

func ptr(v int64) *int64 { return &v }

func newTestEvaluator(subjects map[int64]Subject, ownership map[int64]Ownership) *Evaluator {
	return NewEvaluator(
		&stubDirectory{subjects: subjects},
		&stubResources{ownership: ownership},
		nil,
	)
}

func TestHasPermissionDeniesPermissionsOutsideRoleList(t *testing.T) {
	eval := newTestEvaluator(map[int64]Subject{
		1: {ID: 1, Role: RoleSalesperson, TeamID: ptr(5), OrganizationID: ptr(9)},
	}, nil)

	for _, perm := range []Permission{PermUserDelete, PermAuditRead, PermEvaluationApprove, PermGDPRErase} {
		if eval.HasPermission(context.Background(), 1, perm, ptr(int64(1))) {
			t.Fatalf("salesperson must not hold %q regardless of scope", perm)
		}
	}
}

func TestHasPermissionAdminGlobalScope(t *testing.T) {
	eval := newTestEvaluator(map[int64]Subject{
		7: {ID: 7, Role: RoleAdmin},
	}, nil)

	for _, perm := range Catalog() {
		if !eval.HasPermission(context.Background(), 7, perm, ptr(int64(999))) {
			t.Fatalf("admin should hold %q on any resource", perm)
		}
	}
}

func TestHasPermissionOwnScope(t *testing.T) {
	eval := newTestEvaluator(map[int64]Subject{
		3: {ID: 3, Role: RoleSalesperson, TeamID: ptr(5)},
	}, nil)

	if !eval.HasPermission(context.Background(), 3, PermEvaluationRead, ptr(int64(3))) {
		t.Fatalf("salesperson should read own resource")
	}
	if eval.HasPermission(context.Background(), 3, PermEvaluationRead, ptr(int64(4))) {
		t.Fatalf("salesperson must not read another user's resource")
	}
	if eval.HasPermission(context.Background(), 3, PermEvaluationRead, nil) {
		t.Fatalf("own scope without a resource id must deny")
	}
}

func TestHasPermissionRequiresAssociationForTeamAndOrgScopes(t *testing.T) {
	eval := newTestEvaluator(map[int64]Subject{
		10: {ID: 10, Role: RoleSupervisor},                          // no team link
		11: {ID: 11, Role: RoleSupervisor, TeamID: ptr(2)},          // linked
		12: {ID: 12, Role: RoleManager},                             // no org link
		13: {ID: 13, Role: RoleManager, OrganizationID: ptr(int64(4))}, // linked
	}, nil)

	ctx := context.Background()
	if eval.HasPermission(ctx, 10, PermEvaluationApprove, nil) {
		t.Fatalf("supervisor without a team must be denied")
	}
	if !eval.HasPermission(ctx, 11, PermEvaluationApprove, nil) {
		t.Fatalf("supervisor with a team should be allowed")
	}
	if eval.HasPermission(ctx, 12, PermTeamCreate, nil) {
		t.Fatalf("manager without an organization must be denied")
	}
	if !eval.HasPermission(ctx, 13, PermTeamCreate, nil) {
		t.Fatalf("manager with an organization should be allowed")
	}
}

func TestHasPermissionUnknownUserFailsClosed(t *testing.T) {
	eval := newTestEvaluator(map[int64]Subject{}, nil)
	if eval.HasPermission(context.Background(), 42, PermUserRead, nil) {
		t.Fatalf("unknown user must be denied")
	}
}

func TestHasPermissionDirectoryErrorFailsClosed(t *testing.T) {
	eval := NewEvaluator(&stubDirectory{err: errors.New("db down")}, &stubResources{}, nil)
	if eval.HasPermission(context.Background(), 1, PermUserRead, nil) {
		t.Fatalf("directory failure must deny, not error")
	}
}

func TestCheckResourceAccessTeamScope(t *testing.T) {
	eval := newTestEvaluator(
		map[int64]Subject{
			20: {ID: 20, Role: RoleSupervisor, TeamID: ptr(2), OrganizationID: ptr(9)},
		},
		map[int64]Ownership{
			100: {TeamID: ptr(2), OrganizationID: ptr(9)},
			101: {TeamID: ptr(3), OrganizationID: ptr(9)},
		},
	)

	ctx := context.Background()
	if !eval.CheckResourceAccess(ctx, 20, ResourceSalesperson, 100, PermSalespersonRead) {
		t.Fatalf("supervisor should access a salesperson on their team")
	}
	if eval.CheckResourceAccess(ctx, 20, ResourceSalesperson, 101, PermSalespersonRead) {
		t.Fatalf("supervisor must not access another team's salesperson")
	}
}

func TestCheckResourceAccessOrganizationScope(t *testing.T) {
	eval := newTestEvaluator(
		map[int64]Subject{
			30: {ID: 30, Role: RoleManager, OrganizationID: ptr(9)},
		},
		map[int64]Ownership{
			200: {TeamID: ptr(2), OrganizationID: ptr(9)},
			201: {TeamID: ptr(8), OrganizationID: ptr(10)},
		},
	)

	ctx := context.Background()
	if !eval.CheckResourceAccess(ctx, 30, ResourceEvaluation, 200, PermEvaluationRead) {
		t.Fatalf("manager should access an evaluation in their organization")
	}
	if eval.CheckResourceAccess(ctx, 30, ResourceEvaluation, 201, PermEvaluationRead) {
		t.Fatalf("manager must not access another organization's evaluation")
	}
}

func TestCheckResourceAccessOwnScopeUserResource(t *testing.T) {
	eval := newTestEvaluator(
		map[int64]Subject{
			3: {ID: 3, Role: RoleSalesperson, TeamID: ptr(2)},
		},
		map[int64]Ownership{
			3: {OwnerUserID: ptr(3)},
			4: {OwnerUserID: ptr(4)},
		},
	)

	ctx := context.Background()
	if !eval.CheckResourceAccess(ctx, 3, ResourceUser, 3, PermUserRead) {
		t.Fatalf("salesperson should access their own user record")
	}
	if eval.CheckResourceAccess(ctx, 3, ResourceUser, 4, PermUserRead) {
		t.Fatalf("salesperson must not access another user record")
	}
}

func TestCheckResourceAccessMissingResourceFailsClosed(t *testing.T) {
	eval := newTestEvaluator(
		map[int64]Subject{
			20: {ID: 20, Role: RoleSupervisor, TeamID: ptr(2)},
		},
		map[int64]Ownership{},
	)
	if eval.CheckResourceAccess(context.Background(), 20, ResourceSalesperson, 999, PermSalespersonRead) {
		t.Fatalf("missing resource must deny, not error")
	}
}

func TestCheckResourceAccessStoreErrorFailsClosed(t *testing.T) {
	eval := NewEvaluator(
		&stubDirectory{subjects: map[int64]Subject{20: {ID: 20, Role: RoleSupervisor, TeamID: ptr(2)}}},
		&stubResources{err: errors.New("db down")},
		nil,
	)
	if eval.CheckResourceAccess(context.Background(), 20, ResourceSalesperson, 1, PermSalespersonRead) {
		t.Fatalf("resource store failure must deny")
	}
}

func TestCheckResourceAccessUnhandledResourceTypeDenies(t *testing.T) {
	eval := newTestEvaluator(
		map[int64]Subject{20: {ID: 20, Role: RoleSupervisor, TeamID: ptr(2)}},
		map[int64]Ownership{1: {TeamID: ptr(2)}},
	)
	if eval.CheckResourceAccess(context.Background(), 20, ResourceType(99), 1, PermSalespersonRead) {
		t.Fatalf("unhandled resource type must deny")
	}
}
