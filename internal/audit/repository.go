package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for audit entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one entry.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("audit: marshal details: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs
			(user_id, organization_id, action, resource, resource_id, details,
			 ip_address, user_agent, occurred_at, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.UserID, entry.OrganizationID, string(entry.Action), entry.Resource,
		entry.ResourceID, details, entry.IPAddress, entry.UserAgent,
		entry.OccurredAt, entry.Success, entry.ErrorMessage)
	return err
}

// List returns filtered entries ordered newest first, plus the total count
// for the same filter.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Entry, int, error) {
	whereClause, args := buildWhere(filters)
	argPos := len(args) + 1

	countQuery := "SELECT COUNT(*) FROM audit_logs " + whereClause
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, organization_id, action, resource, resource_id,
		       details, ip_address, user_agent, occurred_at, success, error_message
		FROM audit_logs
		%s
		ORDER BY occurred_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var userID, orgID pgtype.Int8
		var action string
		var resource, resourceID, ip, ua, errMsg pgtype.Text
		var details []byte
		var occurredAt pgtype.Timestamptz

		if err := rows.Scan(&e.ID, &userID, &orgID, &action, &resource, &resourceID,
			&details, &ip, &ua, &occurredAt, &e.Success, &errMsg); err != nil {
			return nil, 0, err
		}

		e.Action = Action(action)
		if userID.Valid {
			e.UserID = &userID.Int64
		}
		if orgID.Valid {
			e.OrganizationID = &orgID.Int64
		}
		if resource.Valid {
			e.Resource = &resource.String
		}
		if resourceID.Valid {
			e.ResourceID = &resourceID.String
		}
		if ip.Valid {
			e.IPAddress = &ip.String
		}
		if ua.Valid {
			e.UserAgent = &ua.String
		}
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		if occurredAt.Valid {
			e.OccurredAt = occurredAt.Time
		}
		if len(details) > 0 {
			// Rows written before the details column carried JSON stay opaque.
			_ = json.Unmarshal(details, &e.Details)
		}
		entries = append(entries, e)
	}

	return entries, total, rows.Err()
}

// Count returns the number of entries matching the filter.
func (r *Repository) Count(ctx context.Context, filters Filters) (int, error) {
	whereClause, args := buildWhere(filters)
	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs "+whereClause, args...).Scan(&total)
	return total, err
}

// CountDistinctUsers returns the number of distinct actors matching the filter.
func (r *Repository) CountDistinctUsers(ctx context.Context, filters Filters) (int, error) {
	whereClause, args := buildWhere(filters)
	query := "SELECT COUNT(DISTINCT user_id) FROM audit_logs " + whereClause
	if whereClause == "" {
		query += " WHERE user_id IS NOT NULL"
	} else {
		query += " AND user_id IS NOT NULL"
	}
	var total int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

// DeleteOlderThan bulk-deletes entries older than the cutoff and reports
// how many rows were removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildWhere(filters Filters) (string, []any) {
	var conditions []string
	var args []any
	argPos := 1

	add := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, value)
		argPos++
	}

	if filters.UserID != nil {
		add("user_id = $%d", *filters.UserID)
	}
	if filters.OrganizationID != nil {
		add("organization_id = $%d", *filters.OrganizationID)
	}
	if filters.Action != "" {
		add("action = $%d", string(filters.Action))
	}
	if len(filters.Actions) > 0 {
		names := make([]string, len(filters.Actions))
		for i, a := range filters.Actions {
			names[i] = string(a)
		}
		add("action = ANY($%d)", names)
	}
	if filters.Resource != "" {
		add("resource = $%d", filters.Resource)
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
