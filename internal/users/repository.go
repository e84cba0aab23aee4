package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, first_name, last_name, display_name, role,
	organization_id, team_id, is_active, created_at, updated_at, last_login_at`

// Create inserts an account and returns it with generated fields.
func (r *Repository) Create(ctx context.Context, in CreateInput, passwordHash, role string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users
			(email, password_hash, first_name, last_name, display_name, role,
			 organization_id, team_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())
		RETURNING `+userColumns,
		in.Email, passwordHash, in.FirstName, in.LastName, in.DisplayName,
		role, in.OrganizationID, in.TeamID)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, fmt.Errorf("email %q: %w", in.Email, httpx.ErrDuplicate)
		}
		return User{}, err
	}
	return user, nil
}

// ByID loads one account.
func (r *Repository) ByID(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
		}
		return User{}, err
	}
	return user, nil
}

// List returns accounts matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, f Filters) ([]User, int64, error) {
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
	if f.Role != "" {
		add("role = $%d", f.Role)
	}
	if f.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY id LIMIT $%d OFFSET $%d`,
		userColumns, where, argPos, argPos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, user)
	}
	return out, total, rows.Err()
}

// Update applies profile fields and returns the updated account.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name),
		    display_name = COALESCE($4, display_name),
		    organization_id = COALESCE($5, organization_id),
		    team_id = COALESCE($6, team_id),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, in.FirstName, in.LastName, in.DisplayName, in.OrganizationID, in.TeamID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
		}
		return User{}, err
	}
	return user, nil
}

// UpdateRole swaps the account's role and reports the previous one.
func (r *Repository) UpdateRole(ctx context.Context, id int64, role string) (string, error) {
	var previous string
	err := r.pool.QueryRow(ctx, `
		UPDATE users u
		SET role = $2, updated_at = NOW()
		FROM (SELECT role FROM users WHERE id = $1 FOR UPDATE) old
		WHERE u.id = $1
		RETURNING old.role`, id, role).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
		}
		return "", err
	}
	return previous, nil
}

// Deactivate marks the account inactive.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var firstName, lastName, displayName pgtype.Text
	var orgID, teamID pgtype.Int8
	var lastLogin pgtype.Timestamptz

	err := row.Scan(&u.ID, &u.Email, &firstName, &lastName, &displayName, &u.Role,
		&orgID, &teamID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return User{}, err
	}
	if firstName.Valid {
		u.FirstName = &firstName.String
	}
	if lastName.Valid {
		u.LastName = &lastName.String
	}
	if displayName.Valid {
		u.DisplayName = &displayName.String
	}
	if orgID.Valid {
		u.OrganizationID = &orgID.Int64
	}
	if teamID.Valid {
		u.TeamID = &teamID.Int64
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return u, nil
}
