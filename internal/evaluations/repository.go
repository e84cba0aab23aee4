package evaluations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/platform/db"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for evaluations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CriterionWeights returns weight by criterion id for an active
// scorecard. A missing or retired scorecard is a not-found.
func (r *Repository) CriterionWeights(ctx context.Context, scorecardID int64) (map[int64]int, error) {
	var active bool
	err := r.pool.QueryRow(ctx,
		`SELECT is_active FROM scorecards WHERE id = $1`, scorecardID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("scorecard %d: %w", scorecardID, httpx.ErrNotFound)
		}
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("%w: scorecard %d is retired", httpx.ErrValidation, scorecardID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, weight FROM scorecard_criteria WHERE scorecard_id = $1`, scorecardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weights := map[int64]int{}
	for rows.Next() {
		var id int64
		var weight int
		if err := rows.Scan(&id, &weight); err != nil {
			return nil, err
		}
		weights[id] = weight
	}
	return weights, rows.Err()
}

// Insert writes the evaluation and its criterion scores in one
// transaction.
func (r *Repository) Insert(ctx context.Context, ev Evaluation) (Evaluation, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO evaluations
				(salesperson_id, scorecard_id, evaluator_id, status, total_score,
				 comment, evaluated_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			ev.SalespersonID, ev.ScorecardID, ev.EvaluatorID, ev.Status,
			ev.TotalScore, ev.Comment, ev.EvaluatedAt)
		if err := row.Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return err
		}
		for _, score := range ev.Scores {
			if _, err := tx.Exec(ctx, `
				INSERT INTO evaluation_scores (evaluation_id, criterion_id, score, weight)
				VALUES ($1, $2, $3, $4)`,
				ev.ID, score.CriterionID, score.Score, score.Weight); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

// ByID loads one evaluation with its scores.
func (r *Repository) ByID(ctx context.Context, id int64) (Evaluation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, salesperson_id, scorecard_id, evaluator_id, status, total_score,
		       comment, evaluated_at, decided_by, decided_at, created_at, updated_at
		FROM evaluations WHERE id = $1`, id)
	ev, err := scanEvaluation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Evaluation{}, fmt.Errorf("evaluation %d: %w", id, httpx.ErrNotFound)
		}
		return Evaluation{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT criterion_id, score, weight
		FROM evaluation_scores WHERE evaluation_id = $1
		ORDER BY criterion_id`, id)
	if err != nil {
		return Evaluation{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var s CriterionScore
		if err := rows.Scan(&s.CriterionID, &s.Score, &s.Weight); err != nil {
			return Evaluation{}, err
		}
		ev.Scores = append(ev.Scores, s)
	}
	return ev, rows.Err()
}

// List returns evaluations matching the filters, newest first, plus
// the total count. Scores are not loaded for listings.
func (r *Repository) List(ctx context.Context, f Filters) ([]Evaluation, int64, error) {
	where, args := buildWhere(f)
	argPos := len(args) + 1

	var total int64
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM evaluations e "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT e.id, e.salesperson_id, e.scorecard_id, e.evaluator_id, e.status,
		       e.total_score, e.comment, e.evaluated_at, e.decided_by, e.decided_at,
		       e.created_at, e.updated_at
		FROM evaluations e
		%s
		ORDER BY e.evaluated_at DESC
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ev)
	}
	return out, total, rows.Err()
}

// Decide moves a submitted evaluation to approved or rejected. Only
// submitted evaluations can be decided.
func (r *Repository) Decide(ctx context.Context, id, deciderID int64, status string) (Evaluation, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE evaluations
		SET status = $3, decided_by = $2, decided_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, deciderID, status, StatusSubmitted)
	if err != nil {
		return Evaluation{}, err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already decided; distinguish for the caller.
		if _, err := r.ByID(ctx, id); err != nil {
			return Evaluation{}, err
		}
		return Evaluation{}, fmt.Errorf("%w: evaluation %d is not awaiting a decision", httpx.ErrValidation, id)
	}
	return r.ByID(ctx, id)
}

// TeamAverages aggregates approved evaluations per team in the window.
func (r *Repository) TeamAverages(ctx context.Context, w Window) ([]TeamAverage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, COUNT(e.id), COALESCE(AVG(e.total_score), 0)
		FROM teams t
		JOIN salespeople sp ON sp.team_id = t.id
		JOIN evaluations e ON e.salesperson_id = sp.id
		WHERE e.status = $1 AND e.evaluated_at >= $2 AND e.evaluated_at <= $3
		GROUP BY t.id, t.name
		ORDER BY AVG(e.total_score) DESC`,
		StatusApproved, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamAverage
	for rows.Next() {
		var row TeamAverage
		if err := rows.Scan(&row.TeamID, &row.TeamName, &row.Evaluations, &row.AverageScore); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SalespersonAverages aggregates approved evaluations per salesperson
// in the window, optionally narrowed to one team.
func (r *Repository) SalespersonAverages(ctx context.Context, w Window, teamID *int64) ([]SalespersonAverage, error) {
	query := `
		SELECT sp.id, sp.first_name, sp.last_name, sp.team_id,
		       COUNT(e.id), COALESCE(AVG(e.total_score), 0),
		       COALESCE(MAX(e.total_score), 0), COALESCE(MIN(e.total_score), 0)
		FROM salespeople sp
		JOIN evaluations e ON e.salesperson_id = sp.id
		WHERE e.status = $1 AND e.evaluated_at >= $2 AND e.evaluated_at <= $3`
	args := []any{StatusApproved, w.From, w.To}
	if teamID != nil {
		query += " AND sp.team_id = $4"
		args = append(args, *teamID)
	}
	query += `
		GROUP BY sp.id, sp.first_name, sp.last_name, sp.team_id
		ORDER BY AVG(e.total_score) DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalespersonAverage
	for rows.Next() {
		var row SalespersonAverage
		if err := rows.Scan(&row.SalespersonID, &row.FirstName, &row.LastName, &row.TeamID,
			&row.Evaluations, &row.AverageScore, &row.BestScore, &row.WorstScore); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var ev Evaluation
	var comment pgtype.Text
	var decidedBy pgtype.Int8
	var decidedAt pgtype.Timestamptz

	err := row.Scan(&ev.ID, &ev.SalespersonID, &ev.ScorecardID, &ev.EvaluatorID,
		&ev.Status, &ev.TotalScore, &comment, &ev.EvaluatedAt, &decidedBy, &decidedAt,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return Evaluation{}, err
	}
	if comment.Valid {
		ev.Comment = &comment.String
	}
	if decidedBy.Valid {
		ev.DecidedBy = &decidedBy.Int64
	}
	if decidedAt.Valid {
		ev.DecidedAt = &decidedAt.Time
	}
	return ev, nil
}

func buildWhere(f Filters) (string, []any) {
	var conditions []string
	var args []any
	argPos := 1
	add := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, value)
		argPos++
	}

	if f.SalespersonID != nil {
		add("e.salesperson_id = $%d", *f.SalespersonID)
	}
	if f.TeamID != nil {
		add("e.salesperson_id IN (SELECT id FROM salespeople WHERE team_id = $%d)", *f.TeamID)
	}
	if f.ScorecardID != nil {
		add("e.scorecard_id = $%d", *f.ScorecardID)
	}
	if f.EvaluatorID != nil {
		add("e.evaluator_id = $%d", *f.EvaluatorID)
	}
	if f.Status != "" {
		add("e.status = $%d", f.Status)
	}
	if !f.From.IsZero() {
		add("e.evaluated_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("e.evaluated_at <= $%d", f.To)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
