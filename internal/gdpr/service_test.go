package gdpr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

type stubStore struct {
	subject      Subject
	subjectErr   error
	evaluations  []EvaluationSummary
	trail        []AuditTrailEntry
	anonymized   map[int64]string
	updated      map[string]string
	requests     []DataSubjectRequest
	restrictions []Restriction
}

func newStubStore() *stubStore {
	name := "Quinn"
	return &stubStore{
		subject: Subject{
			ID:        42,
			Email:     "quinn@example.com",
			FirstName: &name,
			Role:      "salesperson",
			IsActive:  true,
			CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		anonymized: map[int64]string{},
		updated:    map[string]string{},
	}
}

func (s *stubStore) Subject(ctx context.Context, userID int64) (Subject, error) {
	if s.subjectErr != nil {
		return Subject{}, s.subjectErr
	}
	return s.subject, nil
}

func (s *stubStore) EvaluationsFor(ctx context.Context, userID int64) ([]EvaluationSummary, error) {
	return s.evaluations, nil
}

func (s *stubStore) EvaluationsSince(ctx context.Context, userID int64, since time.Time) ([]EvaluationSummary, error) {
	var recent []EvaluationSummary
	for _, ev := range s.evaluations {
		if !ev.EvaluatedAt.Before(since) {
			recent = append(recent, ev)
		}
	}
	return recent, nil
}

func (s *stubStore) AuditTrail(ctx context.Context, userID int64, limit int) ([]AuditTrailEntry, error) {
	return s.trail, nil
}

func (s *stubStore) Anonymize(ctx context.Context, userID int64, email string) error {
	s.anonymized[userID] = email
	return nil
}

func (s *stubStore) UpdateFields(ctx context.Context, userID int64, fields map[string]string) error {
	for k, v := range fields {
		s.updated[k] = v
	}
	return nil
}

func (s *stubStore) SaveRequest(ctx context.Context, req DataSubjectRequest) error {
	s.requests = append(s.requests, req)
	return nil
}

func (s *stubStore) ListRequests(ctx context.Context, limit, offset int) ([]DataSubjectRequest, int64, error) {
	return s.requests, int64(len(s.requests)), nil
}

func (s *stubStore) SaveRestriction(ctx context.Context, r Restriction) error {
	s.restrictions = append(s.restrictions, r)
	return nil
}

type nopInserter struct{}

func (nopInserter) Insert(ctx context.Context, entry audit.Entry) error { return nil }

type capturingInserter struct {
	entries []audit.Entry
}

func (c *capturingInserter) Insert(ctx context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func newTestService(store Store, inserter audit.Inserter) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, audit.NewRecorder(inserter, logger), logger)
	svc.now = func() time.Time {
		return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestProcessAccessBundlesAndAudits(t *testing.T) {
	store := newStubStore()
	store.evaluations = []EvaluationSummary{{ID: 1, TotalScore: 82.5, Status: "approved",
		EvaluatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}}
	store.trail = []AuditTrailEntry{{Action: "user.login", Success: true}}
	sink := &capturingInserter{}
	svc := newTestService(store, sink)

	bundle, err := svc.ProcessAccess(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), bundle.Subject.ID)
	assert.Len(t, bundle.Evaluations, 1)
	assert.Len(t, bundle.AuditTrail, 1)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionDataAccess, sink.entries[0].Action)
	require.Len(t, store.requests, 1)
	assert.Equal(t, RequestAccess, store.requests[0].Type)
	assert.Equal(t, StatusCompleted, store.requests[0].Status)
}

func TestProcessPortabilityCountsRecords(t *testing.T) {
	store := newStubStore()
	store.evaluations = make([]EvaluationSummary, 3)
	store.trail = make([]AuditTrailEntry, 2)
	svc := newTestService(store, nopInserter{})

	export, err := svc.ProcessPortability(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, export.ExportID)
	assert.Equal(t, "json", export.Format)
	assert.Equal(t, 6, export.RecordCount, "subject row plus evaluations plus audit entries")
}

func TestProcessErasureRefusedUnderRetentionHold(t *testing.T) {
	store := newStubStore()
	store.evaluations = []EvaluationSummary{
		{ID: 1, EvaluatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, EvaluatedAt: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	sink := &capturingInserter{}
	svc := newTestService(store, sink)

	result, err := svc.ProcessErasure(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.False(t, result.Erased)
	require.NotNil(t, result.RetainedData)
	assert.Equal(t, 2, result.RetainedData.EvaluationCount)
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), result.RetainedData.OldestRetained)
	assert.Empty(t, store.anonymized, "refused erasure must not touch the row")

	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionDataErasureRefused, sink.entries[0].Action)
	require.Len(t, store.requests, 1)
	assert.Equal(t, StatusRefused, store.requests[0].Status)
}

func TestProcessErasureAnonymizesWhenNoRecentEvaluations(t *testing.T) {
	store := newStubStore()
	store.evaluations = []EvaluationSummary{
		{ID: 1, EvaluatedAt: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	sink := &capturingInserter{}
	svc := newTestService(store, sink)

	result, err := svc.ProcessErasure(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.True(t, result.Erased)
	assert.True(t, result.Anonymized)
	assert.Equal(t, "deleted_42@anonymized.local", result.Email)
	assert.Equal(t, "deleted_42@anonymized.local", store.anonymized[42])
	assert.Nil(t, result.RetainedData)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionUserDeactivate, sink.entries[0].Action)
}

func TestProcessRectificationFiltersAllowList(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nopInserter{})

	applied, err := svc.ProcessRectification(context.Background(), 42, 1, map[string]string{
		"first_name": "Ada",
		"email":      "x@evil.example",
		"role":       "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"first_name": "Ada"}, applied)
	assert.Equal(t, "Ada", store.updated["first_name"])
	assert.NotContains(t, store.updated, "email")
	assert.NotContains(t, store.updated, "role")
}

func TestProcessRectificationRejectsWhenNothingSurvives(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nopInserter{})

	_, err := svc.ProcessRectification(context.Background(), 42, 1, map[string]string{
		"email": "x@evil.example",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, store.updated)
	assert.Empty(t, store.requests, "a rejected rectification records nothing")
}

func TestProcessRestrictionRecordsThirtyDayExpiry(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nopInserter{})

	restriction, err := svc.ProcessRestriction(context.Background(), 42, 1, RestrictProcessing, "dispute")
	require.NoError(t, err)
	assert.Equal(t, RestrictProcessing, restriction.Type)
	assert.Equal(t, restriction.CreatedAt.Add(30*24*time.Hour), restriction.ExpiresAt)
	require.Len(t, store.restrictions, 1)
}

func TestProcessRestrictionRejectsUnknownType(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nopInserter{})

	_, err := svc.ProcessRestriction(context.Background(), 42, 1, RestrictionType("deletion"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, store.restrictions)
}

func TestWorkflowsFailOnMissingSubject(t *testing.T) {
	store := newStubStore()
	store.subjectErr = errors.New("user 42: not found")
	svc := newTestService(store, nopInserter{})
	ctx := context.Background()

	_, err := svc.ProcessAccess(ctx, 42, 1)
	assert.Error(t, err)
	_, err = svc.ProcessErasure(ctx, 42, 1)
	assert.Error(t, err)
	_, err = svc.ProcessRectification(ctx, 42, 1, map[string]string{"first_name": "A"})
	assert.Error(t, err)
	assert.Empty(t, store.anonymized)
	assert.Empty(t, store.updated)
}
