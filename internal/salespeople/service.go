package salespeople

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/scoreline/scoreline/internal/audit"
)

// RepositoryPort defines data access methods for salespeople.
type RepositoryPort interface {
	Create(ctx context.Context, in Input) (Salesperson, error)
	ByID(ctx context.Context, id int64) (Salesperson, error)
	List(ctx context.Context, f Filters) ([]Salesperson, int64, error)
	Update(ctx context.Context, id int64, in Input) (Salesperson, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service handles salesperson business logic.
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

// Create inserts a salesperson.
func (s *Service) Create(ctx context.Context, actorID int64, in Input) (Salesperson, error) {
	sp, err := s.repo.Create(ctx, in)
	if err != nil {
		return Salesperson{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionSalespersonCreate, sp.ID)
	return sp, nil
}

// Get loads one salesperson.
func (s *Service) Get(ctx context.Context, id int64) (Salesperson, error) {
	return s.repo.ByID(ctx, id)
}

// List returns salespeople matching the filters.
func (s *Service) List(ctx context.Context, f Filters) ([]Salesperson, int64, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Update applies the input.
func (s *Service) Update(ctx context.Context, actorID, id int64, in Input) (Salesperson, error) {
	sp, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Salesperson{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionSalespersonUpdate, id)
	return sp, nil
}

// Deactivate marks the record inactive.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.auditChange(ctx, actorID, audit.ActionSalespersonDelete, id)
	return nil
}

func (s *Service) auditChange(ctx context.Context, actorID int64, action audit.Action, id int64) {
	resource := "salesperson"
	rid := strconv.FormatInt(id, 10)
	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actorID,
		Action:     action,
		Resource:   &resource,
		ResourceID: &rid,
		Success:    true,
	})
}
