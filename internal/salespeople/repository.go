package salespeople

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for salespeople.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, organization_id, team_id, user_id, first_name, last_name,
	employee_code, hired_at, is_active, created_at, updated_at`

// Create inserts a salesperson.
func (r *Repository) Create(ctx context.Context, in Input) (Salesperson, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO salespeople
			(organization_id, team_id, user_id, first_name, last_name,
			 employee_code, hired_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		RETURNING `+columns,
		in.OrganizationID, in.TeamID, in.UserID, in.FirstName, in.LastName,
		in.EmployeeCode, in.HiredAt)
	return scan(row)
}

// ByID loads one salesperson.
func (r *Repository) ByID(ctx context.Context, id int64) (Salesperson, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM salespeople WHERE id = $1`, id)
	sp, err := scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Salesperson{}, fmt.Errorf("salesperson %d: %w", id, httpx.ErrNotFound)
		}
		return Salesperson{}, err
	}
	return sp, nil
}

// List returns salespeople matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, f Filters) ([]Salesperson, int64, error) {
	var conditions []string
	var args []any
	argPos := 1
	add := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, value)
		argPos++
	}
	if f.OrganizationID != nil {
		add("organization_id = $%d", *f.OrganizationID)
	}
	if f.TeamID != nil {
		add("team_id = $%d", *f.TeamID)
	}
	if f.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM salespeople "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM salespeople %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		columns, where, argPos, argPos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Salesperson
	for rows.Next() {
		sp, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sp)
	}
	return out, total, rows.Err()
}

// Update applies the input and returns the updated record.
func (r *Repository) Update(ctx context.Context, id int64, in Input) (Salesperson, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE salespeople
		SET organization_id = $2, team_id = $3, user_id = COALESCE($4, user_id),
		    first_name = $5, last_name = $6,
		    employee_code = COALESCE($7, employee_code),
		    hired_at = COALESCE($8, hired_at),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+columns,
		id, in.OrganizationID, in.TeamID, in.UserID, in.FirstName, in.LastName,
		in.EmployeeCode, in.HiredAt)
	sp, err := scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Salesperson{}, fmt.Errorf("salesperson %d: %w", id, httpx.ErrNotFound)
		}
		return Salesperson{}, err
	}
	return sp, nil
}

// Deactivate marks the record inactive.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE salespeople SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("salesperson %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func scan(row pgx.Row) (Salesperson, error) {
	var sp Salesperson
	var userID pgtype.Int8
	var employeeCode pgtype.Text
	var hiredAt pgtype.Timestamptz

	err := row.Scan(&sp.ID, &sp.OrganizationID, &sp.TeamID, &userID, &sp.FirstName,
		&sp.LastName, &employeeCode, &hiredAt, &sp.IsActive, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return Salesperson{}, err
	}
	if userID.Valid {
		sp.UserID = &userID.Int64
	}
	if employeeCode.Valid {
		sp.EmployeeCode = &employeeCode.String
	}
	if hiredAt.Valid {
		sp.HiredAt = &hiredAt.Time
	}
	return sp, nil
}
