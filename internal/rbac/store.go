package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Directory and ResourceStore over the primary
// PostgreSQL pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore constructs a PgStore backed by the provided pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Subject loads a user's role and organizational associations.
func (s *PgStore) Subject(ctx context.Context, userID int64) (Subject, error) {
	const query = `SELECT role, organization_id, team_id FROM users WHERE id = $1 AND is_active = TRUE`
	var roleName string
	var orgID, teamID pgtype.Int8
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&roleName, &orgID, &teamID); err != nil {
		return Subject{}, fmt.Errorf("rbac: load subject %d: %w", userID, err)
	}
	role, ok := ParseRole(roleName)
	if !ok {
		return Subject{}, fmt.Errorf("rbac: user %d has unrecognized role %q", userID, roleName)
	}
	subject := Subject{ID: userID, Role: role}
	if orgID.Valid {
		subject.OrganizationID = &orgID.Int64
	}
	if teamID.Valid {
		subject.TeamID = &teamID.Int64
	}
	return subject, nil
}

// Ownership loads the owning foreign keys for a resource.
func (s *PgStore) Ownership(ctx context.Context, resourceType ResourceType, resourceID int64) (Ownership, error) {
	switch resourceType {
	case ResourceUser:
		return s.scanOwnership(ctx,
			`SELECT id, team_id, organization_id FROM users WHERE id = $1`, resourceID)
	case ResourceOrganization:
		return s.scanOwnership(ctx,
			`SELECT NULL::bigint, NULL::bigint, id FROM organizations WHERE id = $1`, resourceID)
	case ResourceTeam:
		return s.scanOwnership(ctx,
			`SELECT NULL::bigint, id, organization_id FROM teams WHERE id = $1`, resourceID)
	case ResourceSalesperson:
		return s.scanOwnership(ctx,
			`SELECT user_id, team_id, organization_id FROM salespeople WHERE id = $1`, resourceID)
	case ResourceEvaluation:
		return s.scanOwnership(ctx, `
			SELECT sp.user_id, sp.team_id, sp.organization_id
			FROM evaluations e
			JOIN salespeople sp ON sp.id = e.salesperson_id
			WHERE e.id = $1`, resourceID)
	}
	return Ownership{}, fmt.Errorf("rbac: unhandled resource type %d", int(resourceType))
}

func (s *PgStore) scanOwnership(ctx context.Context, query string, resourceID int64) (Ownership, error) {
	var owner, teamID, orgID pgtype.Int8
	if err := s.pool.QueryRow(ctx, query, resourceID).Scan(&owner, &teamID, &orgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ownership{}, fmt.Errorf("rbac: resource %d: %w", resourceID, err)
		}
		return Ownership{}, err
	}
	var ownership Ownership
	if owner.Valid {
		ownership.OwnerUserID = &owner.Int64
	}
	if teamID.Valid {
		ownership.TeamID = &teamID.Int64
	}
	if orgID.Valid {
		ownership.OrganizationID = &orgID.Int64
	}
	return ownership, nil
}
