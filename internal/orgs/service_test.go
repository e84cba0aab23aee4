package orgs

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
	orgs  map[int64]Organization
	teams []Team
}

func newStubRepo() *stubRepo {
	return &stubRepo{orgs: map[int64]Organization{
		1: {ID: 1, Name: "North", IsActive: true},
	}}
}

func (s *stubRepo) CreateOrganization(ctx context.Context, in OrganizationInput) (Organization, error) {
	org := Organization{ID: int64(len(s.orgs) + 1), Name: in.Name, Region: in.Region, IsActive: true}
	s.orgs[org.ID] = org
	return org, nil
}

func (s *stubRepo) OrganizationByID(ctx context.Context, id int64) (Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return Organization{}, fmt.Errorf("organization %d: %w", id, httpx.ErrNotFound)
	}
	return org, nil
}

func (s *stubRepo) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var out []Organization
	for _, org := range s.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (s *stubRepo) UpdateOrganization(ctx context.Context, id int64, in OrganizationInput) (Organization, error) {
	org, err := s.OrganizationByID(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	org.Name = in.Name
	s.orgs[id] = org
	return org, nil
}

func (s *stubRepo) DeactivateOrganization(ctx context.Context, id int64) error {
	org, err := s.OrganizationByID(ctx, id)
	if err != nil {
		return err
	}
	org.IsActive = false
	s.orgs[id] = org
	return nil
}

func (s *stubRepo) CreateTeam(ctx context.Context, in TeamInput) (Team, error) {
	team := Team{ID: int64(len(s.teams) + 1), OrganizationID: in.OrganizationID, Name: in.Name, IsActive: true}
	s.teams = append(s.teams, team)
	return team, nil
}

func (s *stubRepo) TeamByID(ctx context.Context, id int64) (Team, error) {
	for _, t := range s.teams {
		if t.ID == id {
			return t, nil
		}
	}
	return Team{}, fmt.Errorf("team %d: %w", id, httpx.ErrNotFound)
}

func (s *stubRepo) ListTeams(ctx context.Context, organizationID *int64) ([]Team, error) {
	return s.teams, nil
}

func (s *stubRepo) UpdateTeam(ctx context.Context, id int64, in TeamInput) (Team, error) {
	return Team{ID: id, Name: in.Name}, nil
}

func (s *stubRepo) DeactivateTeam(ctx context.Context, id int64) error {
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

func TestCreateTeamRequiresExistingOrganization(t *testing.T) {
	repo := newStubRepo()
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)

	_, err := svc.CreateTeam(context.Background(), 1, TeamInput{OrganizationID: 99, Name: "Ghost"})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, sink.entries)

	team, err := svc.CreateTeam(context.Background(), 1, TeamInput{OrganizationID: 1, Name: "Alpha"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), team.OrganizationID)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionTeamCreate, sink.entries[0].Action)
}

func TestOrganizationLifecycleIsAudited(t *testing.T) {
	repo := newStubRepo()
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	org, err := svc.CreateOrganization(ctx, 1, OrganizationInput{Name: "West"})
	require.NoError(t, err)
	_, err = svc.UpdateOrganization(ctx, 1, org.ID, OrganizationInput{Name: "West Coast"})
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateOrganization(ctx, 1, org.ID))

	require.Len(t, sink.entries, 3)
	assert.Equal(t, audit.ActionOrgCreate, sink.entries[0].Action)
	assert.Equal(t, audit.ActionOrgUpdate, sink.entries[1].Action)
	assert.Equal(t, audit.ActionOrgDelete, sink.entries[2].Action)
	assert.False(t, repo.orgs[org.ID].IsActive)
}
