package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for organizations
// and teams.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateOrganization inserts an organization.
func (r *Repository) CreateOrganization(ctx context.Context, in OrganizationInput) (Organization, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (name, region, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		RETURNING id, name, region, is_active, created_at, updated_at`,
		in.Name, in.Region)
	return scanOrganization(row)
}

// OrganizationByID loads one organization.
func (r *Repository) OrganizationByID(ctx context.Context, id int64) (Organization, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, region, is_active, created_at, updated_at
		FROM organizations WHERE id = $1`, id)
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, fmt.Errorf("organization %d: %w", id, httpx.ErrNotFound)
		}
		return Organization{}, err
	}
	return org, nil
}

// ListOrganizations returns all organizations.
func (r *Repository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, region, is_active, created_at, updated_at
		FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// UpdateOrganization applies the input to an organization.
func (r *Repository) UpdateOrganization(ctx context.Context, id int64, in OrganizationInput) (Organization, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE organizations
		SET name = $2, region = COALESCE($3, region), updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, region, is_active, created_at, updated_at`,
		id, in.Name, in.Region)
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, fmt.Errorf("organization %d: %w", id, httpx.ErrNotFound)
		}
		return Organization{}, err
	}
	return org, nil
}

// DeactivateOrganization marks an organization inactive.
func (r *Repository) DeactivateOrganization(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("organization %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// CreateTeam inserts a team.
func (r *Repository) CreateTeam(ctx context.Context, in TeamInput) (Team, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO teams (organization_id, name, supervisor_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING id, organization_id, name, supervisor_id, is_active, created_at, updated_at`,
		in.OrganizationID, in.Name, in.SupervisorID)
	return scanTeam(row)
}

// TeamByID loads one team.
func (r *Repository) TeamByID(ctx context.Context, id int64) (Team, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, supervisor_id, is_active, created_at, updated_at
		FROM teams WHERE id = $1`, id)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Team{}, fmt.Errorf("team %d: %w", id, httpx.ErrNotFound)
		}
		return Team{}, err
	}
	return team, nil
}

// ListTeams returns teams, optionally narrowed to one organization.
func (r *Repository) ListTeams(ctx context.Context, organizationID *int64) ([]Team, error) {
	query := `
		SELECT id, organization_id, name, supervisor_id, is_active, created_at, updated_at
		FROM teams`
	var args []any
	if organizationID != nil {
		query += " WHERE organization_id = $1"
		args = append(args, *organizationID)
	}
	query += " ORDER BY name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, team)
	}
	return out, rows.Err()
}

// UpdateTeam applies the input to a team.
func (r *Repository) UpdateTeam(ctx context.Context, id int64, in TeamInput) (Team, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE teams
		SET name = $2, supervisor_id = COALESCE($3, supervisor_id), updated_at = NOW()
		WHERE id = $1
		RETURNING id, organization_id, name, supervisor_id, is_active, created_at, updated_at`,
		id, in.Name, in.SupervisorID)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Team{}, fmt.Errorf("team %d: %w", id, httpx.ErrNotFound)
		}
		return Team{}, err
	}
	return team, nil
}

// DeactivateTeam marks a team inactive.
func (r *Repository) DeactivateTeam(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE teams SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func scanOrganization(row pgx.Row) (Organization, error) {
	var o Organization
	var region pgtype.Text
	if err := row.Scan(&o.ID, &o.Name, &region, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Organization{}, err
	}
	if region.Valid {
		o.Region = &region.String
	}
	return o, nil
}

func scanTeam(row pgx.Row) (Team, error) {
	var t Team
	var supervisorID pgtype.Int8
	if err := row.Scan(&t.ID, &t.OrganizationID, &t.Name, &supervisorID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Team{}, err
	}
	if supervisorID.Valid {
		t.SupervisorID = &supervisorID.Int64
	}
	return t, nil
}
