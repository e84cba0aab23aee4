package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/rbac"
	"github.com/scoreline/scoreline/internal/shared"
)

// Credential is the login-relevant slice of a user row.
type Credential struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}

// CredentialStore looks up and touches login credentials.
type CredentialStore interface {
	ByEmail(ctx context.Context, email string) (Credential, error)
	TouchLogin(ctx context.Context, userID int64) error
}

// Service verifies credentials and manages token lifecycle.
type Service struct {
	store    CredentialStore
	issuer   *TokenIssuer
	denylist *Denylist
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(store CredentialStore, issuer *TokenIssuer, denylist *Denylist, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, issuer: issuer, denylist: denylist, recorder: recorder, logger: logger}
}

// Login verifies the email and password and issues a token. Every
// failure path returns ErrInvalidCredentials so callers cannot probe
// which part was wrong.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (string, *Claims, error) {
	cred, err := s.store.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.auditLogin(ctx, nil, email, ip, userAgent, false, "unknown email")
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup credentials: %w", err)
	}
	if !cred.IsActive {
		s.auditLogin(ctx, &cred.ID, email, ip, userAgent, false, "account inactive")
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		s.auditLogin(ctx, &cred.ID, email, ip, userAgent, false, "bad password")
		return "", nil, shared.ErrInvalidCredentials
	}

	role, ok := rbac.ParseRole(cred.Role)
	if !ok {
		s.auditLogin(ctx, &cred.ID, email, ip, userAgent, false, "unknown role")
		return "", nil, shared.ErrInvalidCredentials
	}

	token, claims, err := s.issuer.Issue(cred.ID, string(role))
	if err != nil {
		return "", nil, err
	}

	if err := s.store.TouchLogin(ctx, cred.ID); err != nil {
		// Login bookkeeping is best effort.
		s.logger.Warn("touch last login failed", slog.Int64("user_id", cred.ID), slog.Any("error", err))
	}
	s.auditLogin(ctx, &cred.ID, email, ip, userAgent, true, "")
	return token, claims, nil
}

// Logout revokes the token until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	userID, err := claims.UserID()
	if err == nil {
		s.recorder.Record(ctx, audit.Entry{
			UserID:  &userID,
			Action:  audit.ActionUserLogout,
			Success: true,
		})
	}
	return nil
}

func (s *Service) auditLogin(ctx context.Context, userID *int64, email, ip, userAgent string, success bool, reason string) {
	action := audit.ActionUserLogin
	var details map[string]any
	var errMsg *string
	if !success {
		action = audit.ActionUserLoginFailed
		details = map[string]any{"email": email}
		errMsg = &reason
	}
	var ipPtr, uaPtr *string
	if ip != "" {
		ipPtr = &ip
	}
	if userAgent != "" {
		uaPtr = &userAgent
	}
	s.recorder.Record(ctx, audit.Entry{
		UserID:       userID,
		Action:       action,
		Details:      details,
		IPAddress:    ipPtr,
		UserAgent:    uaPtr,
		Success:      success,
		ErrorMessage: errMsg,
	})
}
