package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/rbac"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	Create(ctx context.Context, in CreateInput, passwordHash, role string) (User, error)
	ByID(ctx context.Context, id int64) (User, error)
	List(ctx context.Context, f Filters) ([]User, int64, error)
	Update(ctx context.Context, id int64, in UpdateInput) (User, error)
	UpdateRole(ctx context.Context, id int64, role string) (string, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service handles account business logic.
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

// Create hashes the password, normalizes the role and inserts the
// account.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (User, error) {
	role, ok := rbac.ParseRole(in.Role)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, in.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, in, string(hash), string(role))
	if err != nil {
		return User{}, err
	}
	s.auditChange(ctx, actorID, user.ID, audit.ActionUserCreate, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	})
	return user, nil
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.ByID(ctx, id)
}

// List returns accounts matching the filters.
func (s *Service) List(ctx context.Context, f Filters) ([]User, int64, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Update applies profile fields.
func (s *Service) Update(ctx context.Context, actorID, id int64, in UpdateInput) (User, error) {
	user, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return User{}, err
	}
	s.auditChange(ctx, actorID, id, audit.ActionUserUpdate, nil)
	return user, nil
}

// ChangeRole assigns a new role and records the transition. Roles are
// immutable outside this explicit administrative path.
func (s *Service) ChangeRole(ctx context.Context, actorID, id int64, newRole string) (User, error) {
	role, ok := rbac.ParseRole(newRole)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, newRole)
	}
	previous, err := s.repo.UpdateRole(ctx, id, string(role))
	if err != nil {
		return User{}, err
	}
	s.auditChange(ctx, actorID, id, audit.ActionUserRoleChange, map[string]any{
		"from": previous,
		"to":   string(role),
	})
	return s.repo.ByID(ctx, id)
}

// Deactivate disables the account without deleting the row.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.auditChange(ctx, actorID, id, audit.ActionUserDeactivate, nil)
	return nil
}

func (s *Service) auditChange(ctx context.Context, actorID, subjectID int64, action audit.Action, details map[string]any) {
	resource := "user"
	resourceID := strconv.FormatInt(subjectID, 10)
	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actorID,
		Action:     action,
		Resource:   &resource,
		ResourceID: &resourceID,
		Details:    details,
		Success:    true,
	})
}
