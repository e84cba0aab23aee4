package gdpr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for the workflows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Subject loads one user row.
func (r *Repository) Subject(ctx context.Context, userID int64) (Subject, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, display_name, role,
		       organization_id, team_id, is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1`, userID)

	var s Subject
	var firstName, lastName, displayName pgtype.Text
	var orgID, teamID pgtype.Int8
	var lastLogin pgtype.Timestamptz

	err := row.Scan(&s.ID, &s.Email, &firstName, &lastName, &displayName, &s.Role,
		&orgID, &teamID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, fmt.Errorf("user %d: %w", userID, httpx.ErrNotFound)
		}
		return Subject{}, err
	}
	if firstName.Valid {
		s.FirstName = &firstName.String
	}
	if lastName.Valid {
		s.LastName = &lastName.String
	}
	if displayName.Valid {
		s.DisplayName = &displayName.String
	}
	if orgID.Valid {
		s.OrganizationID = &orgID.Int64
	}
	if teamID.Valid {
		s.TeamID = &teamID.Int64
	}
	if lastLogin.Valid {
		s.LastLoginAt = &lastLogin.Time
	}
	return s, nil
}

// EvaluationsFor returns all evaluations about the subject. A subject
// is linked to evaluations through the salesperson record carrying
// their user id.
func (r *Repository) EvaluationsFor(ctx context.Context, userID int64) ([]EvaluationSummary, error) {
	return r.evaluations(ctx, userID, time.Time{})
}

// EvaluationsSince returns the subject's evaluations dated at or after
// since. Used for the legal retention hold check.
func (r *Repository) EvaluationsSince(ctx context.Context, userID int64, since time.Time) ([]EvaluationSummary, error) {
	return r.evaluations(ctx, userID, since)
}

func (r *Repository) evaluations(ctx context.Context, userID int64, since time.Time) ([]EvaluationSummary, error) {
	query := `
		SELECT e.id, e.salesperson_id, e.total_score, e.status, e.evaluated_at
		FROM evaluations e
		JOIN salespeople s ON s.id = e.salesperson_id
		WHERE s.user_id = $1`
	args := []any{userID}
	if !since.IsZero() {
		query += " AND e.evaluated_at >= $2"
		args = append(args, since)
	}
	query += " ORDER BY e.evaluated_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvaluationSummary
	for rows.Next() {
		var ev EvaluationSummary
		if err := rows.Scan(&ev.ID, &ev.SalespersonID, &ev.TotalScore, &ev.Status, &ev.EvaluatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// AuditTrail returns the subject's most recent audit entries.
func (r *Repository) AuditTrail(ctx context.Context, userID int64, limit int) ([]AuditTrailEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT action, resource, success, occurred_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditTrailEntry
	for rows.Next() {
		var e AuditTrailEntry
		var resource pgtype.Text
		if err := rows.Scan(&e.Action, &resource, &e.Success, &e.OccurredAt); err != nil {
			return nil, err
		}
		if resource.Valid {
			e.Resource = &resource.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Anonymize rewrites the subject's identity columns in place. The row
// itself stays so evaluation history keeps a valid reference.
func (r *Repository) Anonymize(ctx context.Context, userID int64, email string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $2,
		    first_name = NULL,
		    last_name = NULL,
		    display_name = NULL,
		    is_active = FALSE,
		    updated_at = NOW()
		WHERE id = $1`, userID, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, httpx.ErrNotFound)
	}
	return nil
}

// UpdateFields applies the given column values to the subject row.
// Callers filter the field names; this only quotes known columns.
func (r *Repository) UpdateFields(ctx context.Context, userID int64, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields)+1)
	args := []any{userID}
	argPos := 2
	for field, value := range fields {
		if _, ok := rectifiableFields[field]; !ok {
			return fmt.Errorf("%w: field %q not rectifiable", httpx.ErrValidation, field)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", field, argPos))
		args = append(args, value)
		argPos++
	}
	sets = append(sets, "updated_at = NOW()")

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, httpx.ErrNotFound)
	}
	return nil
}

// SaveRequest persists a data-subject request record.
func (r *Repository) SaveRequest(ctx context.Context, req DataSubjectRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gdpr_requests
			(id, user_id, requested_by, request_type, status, details, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.UserID, req.RequestedBy, string(req.Type), req.Status,
		req.Details, req.CreatedAt, req.CompletedAt)
	return err
}

// ListRequests returns persisted requests newest first with the total.
func (r *Repository) ListRequests(ctx context.Context, limit, offset int) ([]DataSubjectRequest, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gdpr_requests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, requested_by, request_type, status, details, created_at, completed_at
		FROM gdpr_requests
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []DataSubjectRequest
	for rows.Next() {
		var req DataSubjectRequest
		var kind string
		var completedAt pgtype.Timestamptz
		if err := rows.Scan(&req.ID, &req.UserID, &req.RequestedBy, &kind, &req.Status,
			&req.Details, &req.CreatedAt, &completedAt); err != nil {
			return nil, 0, err
		}
		req.Type = RequestType(kind)
		if completedAt.Valid {
			req.CompletedAt = &completedAt.Time
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

// SaveRestriction persists a restriction record.
func (r *Repository) SaveRestriction(ctx context.Context, restriction Restriction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gdpr_restrictions
			(id, user_id, restriction_type, reason, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		restriction.ID, restriction.UserID, string(restriction.Type),
		restriction.Reason, restriction.CreatedAt, restriction.ExpiresAt)
	return err
}
