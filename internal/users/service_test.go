package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

type stubRepo struct {
	created      *User
	createdHash  string
	createdRole  string
	updatedRole  string
	previousRole string
	deactivated  []int64
}

func (s *stubRepo) Create(ctx context.Context, in CreateInput, passwordHash, role string) (User, error) {
	s.createdHash = passwordHash
	s.createdRole = role
	user := User{ID: 10, Email: in.Email, Role: role, IsActive: true}
	s.created = &user
	return user, nil
}

func (s *stubRepo) ByID(ctx context.Context, id int64) (User, error) {
	role := s.updatedRole
	if role == "" {
		role = "salesperson"
	}
	return User{ID: id, Email: "a@b.c", Role: role, IsActive: true}, nil
}

func (s *stubRepo) List(ctx context.Context, f Filters) ([]User, int64, error) {
	return nil, 0, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	return User{ID: id}, nil
}

func (s *stubRepo) UpdateRole(ctx context.Context, id int64, role string) (string, error) {
	s.updatedRole = role
	return s.previousRole, nil
}

func (s *stubRepo) Deactivate(ctx context.Context, id int64) error {
	s.deactivated = append(s.deactivated, id)
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

func TestCreateHashesPasswordAndNormalizesRole(t *testing.T) {
	repo := &stubRepo{}
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)

	user, err := svc.Create(context.Background(), 1, CreateInput{
		Email:    "new@example.com",
		Password: "hunter2hunter2",
		Role:     "sales_lead",
	})
	require.NoError(t, err)
	assert.Equal(t, "supervisor", user.Role, "legacy role names normalize on create")
	assert.NotEqual(t, "hunter2hunter2", repo.createdHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.createdHash), []byte("hunter2hunter2")))

	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionUserCreate, sink.entries[0].Action)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := newTestService(&stubRepo{}, &capturingInserter{})

	_, err := svc.Create(context.Background(), 1, CreateInput{
		Email:    "new@example.com",
		Password: "hunter2hunter2",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestChangeRoleAuditsTransition(t *testing.T) {
	repo := &stubRepo{previousRole: "salesperson"}
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)

	user, err := svc.ChangeRole(context.Background(), 1, 10, "regional_sales_manager")
	require.NoError(t, err)
	assert.Equal(t, "manager", user.Role)

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, audit.ActionUserRoleChange, entry.Action)
	assert.Equal(t, "salesperson", entry.Details["from"])
	assert.Equal(t, "manager", entry.Details["to"])
}

func TestChangeRoleRejectsUnknownRole(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, &capturingInserter{})

	_, err := svc.ChangeRole(context.Background(), 1, 10, "root")
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.updatedRole)
}

func TestDeactivateAudits(t *testing.T) {
	repo := &stubRepo{}
	sink := &capturingInserter{}
	svc := newTestService(repo, sink)

	require.NoError(t, svc.Deactivate(context.Background(), 1, 10))
	assert.Equal(t, []int64{10}, repo.deactivated)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionUserDeactivate, sink.entries[0].Action)
}

func TestListClampsPaging(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, &capturingInserter{})

	_, _, err := svc.List(context.Background(), Filters{Limit: -5, Offset: -1})
	require.NoError(t, err)
}
