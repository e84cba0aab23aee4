package evaluations

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// RepositoryPort defines data access methods for evaluations.
type RepositoryPort interface {
	CriterionWeights(ctx context.Context, scorecardID int64) (map[int64]int, error)
	Insert(ctx context.Context, ev Evaluation) (Evaluation, error)
	ByID(ctx context.Context, id int64) (Evaluation, error)
	List(ctx context.Context, f Filters) ([]Evaluation, int64, error)
	Decide(ctx context.Context, id, deciderID int64, status string) (Evaluation, error)
	TeamAverages(ctx context.Context, w Window) ([]TeamAverage, error)
	SalespersonAverages(ctx context.Context, w Window, teamID *int64) ([]SalespersonAverage, error)
}

// Service handles evaluation business logic.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
	logger   *slog.Logger
	cache    *Cache
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, recorder: recorder, logger: logger, now: time.Now}
}

// WithCache attaches an analytics cache and returns the service.
func (s *Service) WithCache(cache *Cache) *Service {
	s.cache = cache
	return s
}

// Submit validates the scores against the scorecard and stores the
// evaluation with its weighted total. Every criterion on the scorecard
// must be scored exactly once.
func (s *Service) Submit(ctx context.Context, evaluatorID int64, in SubmitInput) (Evaluation, error) {
	weights, err := s.repo.CriterionWeights(ctx, in.ScorecardID)
	if err != nil {
		return Evaluation{}, err
	}
	if len(in.Scores) != len(weights) {
		return Evaluation{}, fmt.Errorf("%w: got %d scores, scorecard has %d criteria",
			httpx.ErrValidation, len(in.Scores), len(weights))
	}

	seen := make(map[int64]bool, len(in.Scores))
	scores := make([]CriterionScore, 0, len(in.Scores))
	var total float64
	for _, score := range in.Scores {
		weight, ok := weights[score.CriterionID]
		if !ok {
			return Evaluation{}, fmt.Errorf("%w: criterion %d is not on the scorecard",
				httpx.ErrValidation, score.CriterionID)
		}
		if seen[score.CriterionID] {
			return Evaluation{}, fmt.Errorf("%w: criterion %d scored twice",
				httpx.ErrValidation, score.CriterionID)
		}
		if score.Score < 0 || score.Score > 5 {
			return Evaluation{}, fmt.Errorf("%w: score %g out of range 0-5",
				httpx.ErrValidation, score.Score)
		}
		seen[score.CriterionID] = true
		scores = append(scores, CriterionScore{
			CriterionID: score.CriterionID,
			Score:       score.Score,
			Weight:      weight,
		})
		total += score.Score * float64(weight)
	}
	// Weights sum to 100, so dividing by 100 yields a 0-5 weighted score.
	total /= 100

	evaluatedAt := s.now().UTC()
	if in.EvaluatedAt != nil {
		evaluatedAt = in.EvaluatedAt.UTC()
	}

	ev, err := s.repo.Insert(ctx, Evaluation{
		SalespersonID: in.SalespersonID,
		ScorecardID:   in.ScorecardID,
		EvaluatorID:   evaluatorID,
		Status:        StatusSubmitted,
		TotalScore:    total,
		Comment:       in.Comment,
		Scores:        scores,
		EvaluatedAt:   evaluatedAt,
	})
	if err != nil {
		return Evaluation{}, err
	}

	s.auditChange(ctx, evaluatorID, audit.ActionEvaluationSubmit, ev.ID, map[string]any{
		"salesperson_id": in.SalespersonID,
		"total_score":    total,
	})
	return ev, nil
}

// Get loads one evaluation with its scores.
func (s *Service) Get(ctx context.Context, id int64) (Evaluation, error) {
	return s.repo.ByID(ctx, id)
}

// List returns evaluations matching the filters.
func (s *Service) List(ctx context.Context, f Filters) ([]Evaluation, int64, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Approve accepts a submitted evaluation.
func (s *Service) Approve(ctx context.Context, deciderID, id int64) (Evaluation, error) {
	ev, err := s.repo.Decide(ctx, id, deciderID, StatusApproved)
	if err != nil {
		return Evaluation{}, err
	}
	s.auditChange(ctx, deciderID, audit.ActionEvaluationApprove, id, nil)
	return ev, nil
}

// Reject declines a submitted evaluation.
func (s *Service) Reject(ctx context.Context, deciderID, id int64) (Evaluation, error) {
	ev, err := s.repo.Decide(ctx, id, deciderID, StatusRejected)
	if err != nil {
		return Evaluation{}, err
	}
	s.auditChange(ctx, deciderID, audit.ActionEvaluationReject, id, nil)
	return ev, nil
}

// TeamAnalytics aggregates approved evaluations per team.
func (s *Service) TeamAnalytics(ctx context.Context, w Window) ([]TeamAverage, error) {
	w = normalizeWindow(w, s.now)
	key := teamAnalyticsKey(w)
	var cached []TeamAverage
	if s.cache.get(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.repo.TeamAverages(ctx, w)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, rows)
	return rows, nil
}

// SalespersonAnalytics aggregates approved evaluations per
// salesperson.
func (s *Service) SalespersonAnalytics(ctx context.Context, w Window, teamID *int64) ([]SalespersonAverage, error) {
	w = normalizeWindow(w, s.now)
	key := salespersonAnalyticsKey(w, teamID)
	var cached []SalespersonAverage
	if s.cache.get(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.repo.SalespersonAverages(ctx, w, teamID)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, rows)
	return rows, nil
}

// ExportRows returns the evaluations for a CSV export, capped.
func (s *Service) ExportRows(ctx context.Context, f Filters) ([]Evaluation, error) {
	f.Limit = 10000
	f.Offset = 0
	rows, _, err := s.repo.List(ctx, f)
	return rows, err
}

func normalizeWindow(w Window, now func() time.Time) Window {
	if w.To.IsZero() {
		w.To = now().UTC()
	}
	if w.From.IsZero() {
		// Default to the trailing quarter.
		w.From = w.To.AddDate(0, -3, 0)
	}
	return w
}

func (s *Service) auditChange(ctx context.Context, actorID int64, action audit.Action, id int64, details map[string]any) {
	resource := "evaluation"
	rid := strconv.FormatInt(id, 10)
	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actorID,
		Action:     action,
		Resource:   &resource,
		ResourceID: &rid,
		Details:    details,
		Success:    true,
	})
}
