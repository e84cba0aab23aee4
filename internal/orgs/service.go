package orgs

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/scoreline/scoreline/internal/audit"
)

// RepositoryPort defines data access methods for organizations and teams.
type RepositoryPort interface {
	CreateOrganization(ctx context.Context, in OrganizationInput) (Organization, error)
	OrganizationByID(ctx context.Context, id int64) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	UpdateOrganization(ctx context.Context, id int64, in OrganizationInput) (Organization, error)
	DeactivateOrganization(ctx context.Context, id int64) error
	CreateTeam(ctx context.Context, in TeamInput) (Team, error)
	TeamByID(ctx context.Context, id int64) (Team, error)
	ListTeams(ctx context.Context, organizationID *int64) ([]Team, error)
	UpdateTeam(ctx context.Context, id int64, in TeamInput) (Team, error)
	DeactivateTeam(ctx context.Context, id int64) error
}

// Service handles organization and team business logic.
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

// CreateOrganization inserts an organization.
func (s *Service) CreateOrganization(ctx context.Context, actorID int64, in OrganizationInput) (Organization, error) {
	org, err := s.repo.CreateOrganization(ctx, in)
	if err != nil {
		return Organization{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionOrgCreate, "organization", org.ID)
	return org, nil
}

// Organization loads one organization.
func (s *Service) Organization(ctx context.Context, id int64) (Organization, error) {
	return s.repo.OrganizationByID(ctx, id)
}

// Organizations returns all organizations.
func (s *Service) Organizations(ctx context.Context) ([]Organization, error) {
	return s.repo.ListOrganizations(ctx)
}

// UpdateOrganization applies the input.
func (s *Service) UpdateOrganization(ctx context.Context, actorID, id int64, in OrganizationInput) (Organization, error) {
	org, err := s.repo.UpdateOrganization(ctx, id, in)
	if err != nil {
		return Organization{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionOrgUpdate, "organization", id)
	return org, nil
}

// DeactivateOrganization marks an organization inactive.
func (s *Service) DeactivateOrganization(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeactivateOrganization(ctx, id); err != nil {
		return err
	}
	s.auditChange(ctx, actorID, audit.ActionOrgDelete, "organization", id)
	return nil
}

// CreateTeam inserts a team.
func (s *Service) CreateTeam(ctx context.Context, actorID int64, in TeamInput) (Team, error) {
	if _, err := s.repo.OrganizationByID(ctx, in.OrganizationID); err != nil {
		return Team{}, err
	}
	team, err := s.repo.CreateTeam(ctx, in)
	if err != nil {
		return Team{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionTeamCreate, "team", team.ID)
	return team, nil
}

// Team loads one team.
func (s *Service) Team(ctx context.Context, id int64) (Team, error) {
	return s.repo.TeamByID(ctx, id)
}

// Teams returns teams, optionally narrowed to one organization.
func (s *Service) Teams(ctx context.Context, organizationID *int64) ([]Team, error) {
	return s.repo.ListTeams(ctx, organizationID)
}

// UpdateTeam applies the input.
func (s *Service) UpdateTeam(ctx context.Context, actorID, id int64, in TeamInput) (Team, error) {
	team, err := s.repo.UpdateTeam(ctx, id, in)
	if err != nil {
		return Team{}, err
	}
	s.auditChange(ctx, actorID, audit.ActionTeamUpdate, "team", id)
	return team, nil
}

// DeactivateTeam marks a team inactive.
func (s *Service) DeactivateTeam(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeactivateTeam(ctx, id); err != nil {
		return err
	}
	s.auditChange(ctx, actorID, audit.ActionTeamDelete, "team", id)
	return nil
}

func (s *Service) auditChange(ctx context.Context, actorID int64, action audit.Action, resource string, resourceID int64) {
	rid := strconv.FormatInt(resourceID, 10)
	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actorID,
		Action:     action,
		Resource:   &resource,
		ResourceID: &rid,
		Success:    true,
	})
}
