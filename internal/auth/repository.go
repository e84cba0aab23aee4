package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/shared"
)

// Repository provides PostgreSQL backed credential lookup.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ByEmail loads the credential for the given email.
func (r *Repository) ByEmail(ctx context.Context, email string) (Credential, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, is_active
		FROM users
		WHERE lower(email) = lower($1)`, email)

	var cred Credential
	err := row.Scan(&cred.ID, &cred.Email, &cred.PasswordHash, &cred.Role, &cred.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, fmt.Errorf("credential %q: %w", email, shared.ErrNotFound)
		}
		return Credential{}, err
	}
	return cred, nil
}

// TouchLogin stamps the user's last login time.
func (r *Repository) TouchLogin(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	return err
}
