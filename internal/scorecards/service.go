package scorecards

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// RepositoryPort defines data access methods for scorecards.
type RepositoryPort interface {
	Create(ctx context.Context, in Input) (Scorecard, error)
	Update(ctx context.Context, id int64, in Input) (Scorecard, error)
	ByID(ctx context.Context, id int64) (Scorecard, error)
	List(ctx context.Context, activeOnly bool) ([]Scorecard, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles scorecard business logic.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// Create validates the weight sum and inserts the scorecard.
func (s *Service) Create(ctx context.Context, actorID int64, in Input) (Scorecard, error) {
	if err := validateWeights(in); err != nil {
		return Scorecard{}, err
	}
	card, err := s.repo.Create(ctx, in)
	if err != nil {
		return Scorecard{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionScorecardCreate, card.ID)
	return card, nil
}

// Update validates the weight sum and rewrites the scorecard.
func (s *Service) Update(ctx context.Context, actorID, id int64, in Input) (Scorecard, error) {
	if err := validateWeights(in); err != nil {
		return Scorecard{}, err
	}
	card, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Scorecard{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionScorecardUpdate, id)
	return card, nil
}

// Get loads one scorecard with criteria.
func (s *Service) Get(ctx context.Context, id int64) (Scorecard, error) {
	return s.repo.ByID(ctx, id)
}

// List returns scorecards.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Scorecard, error) {
	return s.repo.List(ctx, activeOnly)
}

// Activate marks the scorecard usable for new evaluations.
func (s *Service) Activate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.auditChange(ctx, actorID, audit.ActionScorecardActivate, id)
	return nil
}

// Retire withdraws the scorecard from new evaluations. Existing
// evaluations keep referencing it.
func (s *Service) Retire(ctx context.Context, actorID, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.auditChange(ctx, actorID, audit.ActionScorecardDelete, id)
	return nil
}

func validateWeights(in Input) error {
	if sum := in.WeightSum(); sum != 100 {
		return fmt.Errorf("%w: criterion weights sum to %d, want 100", httpx.ErrValidation, sum)
	}
	return nil
}

func (s *Service) auditChange(ctx context.Context, actorID int64, action audit.Action, id int64) {
	resource := "scorecard"
	rid := strconv.FormatInt(id, 10)
	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actorID,
		Action:     action,
		Resource:   &resource,
		ResourceID: &rid,
		Success:    true,
	})
}
