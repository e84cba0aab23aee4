package evaluations

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

type stubRepo struct {
	weights  map[int64]int
	inserted *Evaluation
	decided  []string
	windows  []Window
}

func (s *stubRepo) CriterionWeights(ctx context.Context, scorecardID int64) (map[int64]int, error) {
	return s.weights, nil
}

func (s *stubRepo) Insert(ctx context.Context, ev Evaluation) (Evaluation, error) {
	ev.ID = 99
	s.inserted = &ev
	return ev, nil
}

func (s *stubRepo) ByID(ctx context.Context, id int64) (Evaluation, error) {
	return Evaluation{ID: id, Status: StatusSubmitted}, nil
}

func (s *stubRepo) List(ctx context.Context, f Filters) ([]Evaluation, int64, error) {
	return nil, 0, nil
}

func (s *stubRepo) Decide(ctx context.Context, id, deciderID int64, status string) (Evaluation, error) {
	s.decided = append(s.decided, status)
	return Evaluation{ID: id, Status: status, DecidedBy: &deciderID}, nil
}

func (s *stubRepo) TeamAverages(ctx context.Context, w Window) ([]TeamAverage, error) {
	s.windows = append(s.windows, w)
	return nil, nil
}

func (s *stubRepo) SalespersonAverages(ctx context.Context, w Window, teamID *int64) ([]SalespersonAverage, error) {
	s.windows = append(s.windows, w)
	return nil, nil
}

type capturingInserter struct {
	entries []audit.Entry
}

func (c *capturingInserter) Insert(ctx context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func newTestService(repo RepositoryPort, sink audit.Inserter) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, audit.NewRecorder(sink, logger), logger)
	svc.now = func() time.Time {
		return time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestSubmitComputesWeightedTotal(t *testing.T) {
	repo := &stubRepo{weights: map[int64]int{1: 40, 2: 35, 3: 25}}
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)

	ev, err := svc.Submit(context.Background(), 7, SubmitInput{
		SalespersonID: 3,
		ScorecardID:   5,
		Scores: []ScoreInput{
			{CriterionID: 1, Score: 4},
			{CriterionID: 2, Score: 5},
			{CriterionID: 3, Score: 2},
		},
	})
	require.NoError(t, err)

	// (4*40 + 5*35 + 2*25) / 100 = 3.85
	assert.InDelta(t, 3.85, ev.TotalScore, 1e-9)
	assert.Equal(t, StatusSubmitted, ev.Status)
	assert.Equal(t, int64(7), ev.EvaluatorID)
	require.NotNil(t, repo.inserted)
	assert.Len(t, repo.inserted.Scores, 3)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionEvaluationSubmit, sink.entries[0].Action)
}

func TestSubmitRejectsIncompleteScores(t *testing.T) {
	repo := &stubRepo{weights: map[int64]int{1: 50, 2: 50}}
	svc := newTestService(repo, &capturingInserter{})

	_, err := svc.Submit(context.Background(), 7, SubmitInput{
		SalespersonID: 3, ScorecardID: 5,
		Scores: []ScoreInput{{CriterionID: 1, Score: 4}},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Nil(t, repo.inserted)
}

func TestSubmitRejectsForeignCriterion(t *testing.T) {
	repo := &stubRepo{weights: map[int64]int{1: 100}}
	svc := newTestService(repo, &capturingInserter{})

	_, err := svc.Submit(context.Background(), 7, SubmitInput{
		SalespersonID: 3, ScorecardID: 5,
		Scores: []ScoreInput{{CriterionID: 42, Score: 4}},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSubmitRejectsDuplicateCriterion(t *testing.T) {
	repo := &stubRepo{weights: map[int64]int{1: 50, 2: 50}}
	svc := newTestService(repo, &capturingInserter{})

	_, err := svc.Submit(context.Background(), 7, SubmitInput{
		SalespersonID: 3, ScorecardID: 5,
		Scores: []ScoreInput{
			{CriterionID: 1, Score: 4},
			{CriterionID: 1, Score: 5},
		},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestApproveRejectAudit(t *testing.T) {
	repo := &stubRepo{}
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	ev, err := svc.Approve(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, ev.Status)

	_, err = svc.Reject(ctx, 2, 11)
	require.NoError(t, err)

	assert.Equal(t, []string{StatusApproved, StatusRejected}, repo.decided)
	require.Len(t, sink.entries, 2)
	assert.Equal(t, audit.ActionEvaluationApprove, sink.entries[0].Action)
	assert.Equal(t, audit.ActionEvaluationReject, sink.entries[1].Action)
}

func TestAnalyticsWindowDefaultsToTrailingQuarter(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, &capturingInserter{})

	_, err := svc.TeamAnalytics(context.Background(), Window{})
	require.NoError(t, err)
	require.Len(t, repo.windows, 1)

	w := repo.windows[0]
	assert.Equal(t, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC), w.To)
	assert.Equal(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), w.From)
}
