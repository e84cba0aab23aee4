package scorecards

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/platform/db"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for scorecards.
// Scorecard and criteria writes share one transaction so a template is
// never visible half-written.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a scorecard with its criteria.
func (r *Repository) Create(ctx context.Context, in Input) (Scorecard, error) {
	var card Scorecard
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO scorecards (name, description, is_active, created_at, updated_at)
			VALUES ($1, $2, TRUE, NOW(), NOW())
			RETURNING id, name, description, is_active, created_at, updated_at`,
			in.Name, in.Description)
		var err error
		card, err = scanScorecard(row)
		if err != nil {
			return err
		}
		card.Criteria, err = insertCriteria(ctx, tx, card.ID, in.Criteria)
		return err
	})
	if err != nil {
		return Scorecard{}, err
	}
	return card, nil
}

// Update rewrites the scorecard and replaces its criteria.
func (r *Repository) Update(ctx context.Context, id int64, in Input) (Scorecard, error) {
	var card Scorecard
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE scorecards
			SET name = $2, description = COALESCE($3, description), updated_at = NOW()
			WHERE id = $1
			RETURNING id, name, description, is_active, created_at, updated_at`,
			id, in.Name, in.Description)
		var err error
		card, err = scanScorecard(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("scorecard %d: %w", id, httpx.ErrNotFound)
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM scorecard_criteria WHERE scorecard_id = $1`, id); err != nil {
			return err
		}
		card.Criteria, err = insertCriteria(ctx, tx, id, in.Criteria)
		return err
	})
	if err != nil {
		return Scorecard{}, err
	}
	return card, nil
}

// ByID loads one scorecard with its criteria.
func (r *Repository) ByID(ctx context.Context, id int64) (Scorecard, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM scorecards WHERE id = $1`, id)
	card, err := scanScorecard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Scorecard{}, fmt.Errorf("scorecard %d: %w", id, httpx.ErrNotFound)
		}
		return Scorecard{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, scorecard_id, name, description, weight, position
		FROM scorecard_criteria
		WHERE scorecard_id = $1
		ORDER BY position`, id)
	if err != nil {
		return Scorecard{}, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return Scorecard{}, err
		}
		card.Criteria = append(card.Criteria, c)
	}
	return card, rows.Err()
}

// List returns scorecards without their criteria.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Scorecard, error) {
	query := `SELECT id, name, description, is_active, created_at, updated_at FROM scorecards`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Scorecard
	for rows.Next() {
		card, err := scanScorecard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

// SetActive flips the scorecard's active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scorecards SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scorecard %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func insertCriteria(ctx context.Context, tx pgx.Tx, scorecardID int64, inputs []CriterionInput) ([]Criterion, error) {
	out := make([]Criterion, 0, len(inputs))
	for i, in := range inputs {
		row := tx.QueryRow(ctx, `
			INSERT INTO scorecard_criteria (scorecard_id, name, description, weight, position)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, scorecard_id, name, description, weight, position`,
			scorecardID, in.Name, in.Description, in.Weight, i)
		c, err := scanCriterion(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func scanScorecard(row pgx.Row) (Scorecard, error) {
	var c Scorecard
	var description pgtype.Text
	if err := row.Scan(&c.ID, &c.Name, &description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Scorecard{}, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	return c, nil
}

func scanCriterion(row pgx.Row) (Criterion, error) {
	var c Criterion
	var description pgtype.Text
	if err := row.Scan(&c.ID, &c.ScorecardID, &c.Name, &description, &c.Weight, &c.Position); err != nil {
		return Criterion{}, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	return c, nil
}
