package salespeople

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

type stubRepo struct {
	records map[int64]Salesperson
	lastF   Filters
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: map[int64]Salesperson{
		1: {ID: 1, OrganizationID: 1, TeamID: 2, FirstName: "Dana", LastName: "Reed", IsActive: true},
	}}
}

func (s *stubRepo) Create(ctx context.Context, in Input) (Salesperson, error) {
	sp := Salesperson{
		ID:             int64(len(s.records) + 1),
		OrganizationID: in.OrganizationID,
		TeamID:         in.TeamID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		IsActive:       true,
	}
	s.records[sp.ID] = sp
	return sp, nil
}

func (s *stubRepo) ByID(ctx context.Context, id int64) (Salesperson, error) {
	sp, ok := s.records[id]
	if !ok {
		return Salesperson{}, fmt.Errorf("salesperson %d: %w", id, httpx.ErrNotFound)
	}
	return sp, nil
}

func (s *stubRepo) List(ctx context.Context, f Filters) ([]Salesperson, int64, error) {
	s.lastF = f
	out := make([]Salesperson, 0, len(s.records))
	for _, sp := range s.records {
		out = append(out, sp)
	}
	return out, int64(len(out)), nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, in Input) (Salesperson, error) {
	sp, err := s.ByID(ctx, id)
	if err != nil {
		return Salesperson{}, err
	}
	sp.FirstName = in.FirstName
	sp.LastName = in.LastName
	s.records[id] = sp
	return sp, nil
}

func (s *stubRepo) Deactivate(ctx context.Context, id int64) error {
	sp, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}
	sp.IsActive = false
	s.records[id] = sp
	return nil
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
	return NewService(repo, audit.NewRecorder(sink, logger), logger)
}

func TestLifecycleIsAudited(t *testing.T) {
	repo := newStubRepo()
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	sp, err := svc.Create(ctx, 1, Input{OrganizationID: 1, TeamID: 2, FirstName: "Omar", LastName: "Diaz"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, 1, sp.ID, Input{OrganizationID: 1, TeamID: 2, FirstName: "Omar", LastName: "Vega"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, 1, sp.ID))

	require.Len(t, sink.entries, 3)
	assert.Equal(t, audit.ActionSalespersonCreate, sink.entries[0].Action)
	assert.Equal(t, audit.ActionSalespersonUpdate, sink.entries[1].Action)
	assert.Equal(t, audit.ActionSalespersonDelete, sink.entries[2].Action)
	assert.False(t, repo.records[sp.ID].IsActive)
}

func TestUpdateMissingRecordSkipsAudit(t *testing.T) {
	repo := newStubRepo()
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)

	_, err := svc.Update(context.Background(), 1, 99, Input{OrganizationID: 1, TeamID: 2, FirstName: "X", LastName: "Y"})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, sink.entries)
}

func TestListClampsPageSize(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &capturingInserter{})

	_, _, err := svc.List(context.Background(), Filters{Limit: 9000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastF.Limit)
	assert.Equal(t, 0, repo.lastF.Offset)
}
