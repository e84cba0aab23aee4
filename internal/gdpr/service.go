package gdpr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

// legalRetentionYears is how long evaluation history must be kept
// before the associated identity may be erased.
const legalRetentionYears = 7

// restrictionTTL is the fixed lifetime of a recorded restriction.
const restrictionTTL = 30 * 24 * time.Hour

// rectifiableFields is the allow-list of columns a rectification
// request may touch. Everything else is dropped before the update.
var rectifiableFields = map[string]struct{}{
	"first_name":   {},
	"last_name":    {},
	"display_name": {},
}

// Store is the persistence surface the workflows need.
type Store interface {
	Subject(ctx context.Context, userID int64) (Subject, error)
	EvaluationsFor(ctx context.Context, userID int64) ([]EvaluationSummary, error)
	EvaluationsSince(ctx context.Context, userID int64, since time.Time) ([]EvaluationSummary, error)
	AuditTrail(ctx context.Context, userID int64, limit int) ([]AuditTrailEntry, error)
	Anonymize(ctx context.Context, userID int64, email string) error
	UpdateFields(ctx context.Context, userID int64, fields map[string]string) error
	SaveRequest(ctx context.Context, req DataSubjectRequest) error
	ListRequests(ctx context.Context, limit, offset int) ([]DataSubjectRequest, int64, error)
	SaveRestriction(ctx context.Context, r Restriction) error
}

// Service runs the data-subject workflows. Each method is independent
// and synchronous; a mid-workflow failure leaves whatever partial
// state the underlying writes produced.
type Service struct {
	store    Store
	recorder *audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, recorder: recorder, logger: logger, now: time.Now}
}

// ProcessAccess gathers everything the platform holds about the
// subject into one bundle.
func (s *Service) ProcessAccess(ctx context.Context, userID, requestedBy int64) (AccessBundle, error) {
	subject, err := s.store.Subject(ctx, userID)
	if err != nil {
		return AccessBundle{}, fmt.Errorf("load subject %d: %w", userID, err)
	}
	evaluations, err := s.store.EvaluationsFor(ctx, userID)
	if err != nil {
		return AccessBundle{}, fmt.Errorf("load evaluations for %d: %w", userID, err)
	}
	trail, err := s.store.AuditTrail(ctx, userID, 500)
	if err != nil {
		return AccessBundle{}, fmt.Errorf("load audit trail for %d: %w", userID, err)
	}

	bundle := AccessBundle{
		Subject:     subject,
		Evaluations: evaluations,
		AuditTrail:  trail,
		GeneratedAt: s.now().UTC(),
	}

	s.record(ctx, userID, requestedBy, RequestAccess, StatusCompleted,
		fmt.Sprintf("%d evaluations, %d audit entries", len(evaluations), len(trail)))
	s.audit(ctx, requestedBy, userID, audit.ActionDataAccess, true, map[string]any{
		"request_type": string(RequestAccess),
	})
	return bundle, nil
}

// ProcessPortability wraps the access bundle in an export envelope.
func (s *Service) ProcessPortability(ctx context.Context, userID, requestedBy int64) (PortabilityExport, error) {
	subject, err := s.store.Subject(ctx, userID)
	if err != nil {
		return PortabilityExport{}, fmt.Errorf("load subject %d: %w", userID, err)
	}
	evaluations, err := s.store.EvaluationsFor(ctx, userID)
	if err != nil {
		return PortabilityExport{}, fmt.Errorf("load evaluations for %d: %w", userID, err)
	}
	trail, err := s.store.AuditTrail(ctx, userID, 500)
	if err != nil {
		return PortabilityExport{}, fmt.Errorf("load audit trail for %d: %w", userID, err)
	}

	export := PortabilityExport{
		ExportID: uuid.NewString(),
		Format:   "json",
		Bundle: AccessBundle{
			Subject:     subject,
			Evaluations: evaluations,
			AuditTrail:  trail,
			GeneratedAt: s.now().UTC(),
		},
		RecordCount: 1 + len(evaluations) + len(trail),
		ExportedAt:  s.now().UTC(),
	}

	s.record(ctx, userID, requestedBy, RequestPortability, StatusCompleted,
		fmt.Sprintf("export %s, %d records", export.ExportID, export.RecordCount))
	s.audit(ctx, requestedBy, userID, audit.ActionDataExport, true, map[string]any{
		"request_type": string(RequestPortability),
		"export_id":    export.ExportID,
	})
	return export, nil
}

// ProcessErasure anonymizes the subject in place unless evaluations
// within the legal retention window force a refusal. Rows are never
// deleted so historical evaluations keep their references.
func (s *Service) ProcessErasure(ctx context.Context, userID, requestedBy int64) (ErasureResult, error) {
	if _, err := s.store.Subject(ctx, userID); err != nil {
		return ErasureResult{}, fmt.Errorf("load subject %d: %w", userID, err)
	}

	now := s.now().UTC()
	holdSince := now.AddDate(-legalRetentionYears, 0, 0)
	recent, err := s.store.EvaluationsSince(ctx, userID, holdSince)
	if err != nil {
		return ErasureResult{}, fmt.Errorf("check retention hold for %d: %w", userID, err)
	}

	if len(recent) > 0 {
		oldest := recent[0].EvaluatedAt
		for _, ev := range recent[1:] {
			if ev.EvaluatedAt.Before(oldest) {
				oldest = ev.EvaluatedAt
			}
		}
		result := ErasureResult{
			UserID: userID,
			Erased: false,
			RetainedData: &RetainedData{
				Reason:          "evaluation records within the legal retention period",
				EvaluationCount: len(recent),
				OldestRetained:  oldest,
				RetainedUntil:   oldest.AddDate(legalRetentionYears, 0, 0),
			},
		}
		s.record(ctx, userID, requestedBy, RequestErasure, StatusRefused,
			fmt.Sprintf("%d evaluations under retention hold", len(recent)))
		s.audit(ctx, requestedBy, userID, audit.ActionDataErasureRefused, true, map[string]any{
			"evaluation_count": len(recent),
		})
		return result, nil
	}

	email := AnonymizedEmail(userID)
	if err := s.store.Anonymize(ctx, userID, email); err != nil {
		return ErasureResult{}, fmt.Errorf("anonymize user %d: %w", userID, err)
	}

	s.record(ctx, userID, requestedBy, RequestErasure, StatusCompleted, "anonymized in place")
	s.audit(ctx, requestedBy, userID, audit.ActionUserDeactivate, true, map[string]any{
		"request_type": string(RequestErasure),
		"anonymized":   true,
	})
	return ErasureResult{UserID: userID, Erased: true, Anonymized: true, Email: email}, nil
}

// ProcessRectification applies the allow-listed subset of the proposed
// corrections. A request with nothing left after filtering fails.
func (s *Service) ProcessRectification(ctx context.Context, userID, requestedBy int64, corrections map[string]string) (map[string]string, error) {
	if _, err := s.store.Subject(ctx, userID); err != nil {
		return nil, fmt.Errorf("load subject %d: %w", userID, err)
	}

	applied := make(map[string]string, len(corrections))
	for field, value := range corrections {
		if _, ok := rectifiableFields[field]; ok {
			applied[field] = value
		}
	}
	if len(applied) == 0 {
		return nil, fmt.Errorf("%w: no rectifiable fields in request", httpx.ErrValidation)
	}

	if err := s.store.UpdateFields(ctx, userID, applied); err != nil {
		return nil, fmt.Errorf("rectify user %d: %w", userID, err)
	}

	fields := make([]string, 0, len(applied))
	for f := range applied {
		fields = append(fields, f)
	}
	s.record(ctx, userID, requestedBy, RequestRectification, StatusCompleted,
		fmt.Sprintf("updated %d fields", len(applied)))
	s.audit(ctx, requestedBy, userID, audit.ActionUserUpdate, true, map[string]any{
		"request_type": string(RequestRectification),
		"fields":       fields,
	})
	return applied, nil
}

// ProcessRestriction records the restriction with a fixed 30-day
// expiry. Nothing else consults the record; it documents the
// subject's wish rather than enforcing it.
func (s *Service) ProcessRestriction(ctx context.Context, userID, requestedBy int64, kind RestrictionType, reason string) (Restriction, error) {
	if !kind.Valid() {
		return Restriction{}, fmt.Errorf("%w: unknown restriction type %q", httpx.ErrValidation, kind)
	}
	if _, err := s.store.Subject(ctx, userID); err != nil {
		return Restriction{}, fmt.Errorf("load subject %d: %w", userID, err)
	}

	now := s.now().UTC()
	restriction := Restriction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Reason:    reason,
		CreatedAt: now,
		ExpiresAt: now.Add(restrictionTTL),
	}
	if err := s.store.SaveRestriction(ctx, restriction); err != nil {
		return Restriction{}, fmt.Errorf("save restriction for %d: %w", userID, err)
	}

	s.record(ctx, userID, requestedBy, RequestRestriction, StatusCompleted, string(kind))
	s.audit(ctx, requestedBy, userID, audit.ActionUserUpdate, true, map[string]any{
		"request_type":     string(RequestRestriction),
		"restriction_type": string(kind),
	})
	return restriction, nil
}

// Requests lists persisted data-subject requests, newest first.
func (s *Service) Requests(ctx context.Context, limit, offset int) ([]DataSubjectRequest, int64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListRequests(ctx, limit, offset)
}

// AnonymizedEmail is the deterministic placeholder an erased subject's
// email is replaced with.
func AnonymizedEmail(userID int64) string {
	return fmt.Sprintf("deleted_%d@anonymized.local", userID)
}

func (s *Service) record(ctx context.Context, userID, requestedBy int64, kind RequestType, status, details string) {
	now := s.now().UTC()
	req := DataSubjectRequest{
		ID:          uuid.NewString(),
		UserID:      userID,
		RequestedBy: requestedBy,
		Type:        kind,
		Status:      status,
		Details:     details,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := s.store.SaveRequest(ctx, req); err != nil {
		// Request bookkeeping must not fail the workflow itself.
		s.logger.Error("persist data subject request failed",
			slog.String("type", string(kind)),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}

func (s *Service) audit(ctx context.Context, actorID, subjectID int64, action audit.Action, success bool, details map[string]any) {
	resource := "user"
	resourceID := fmt.Sprintf("%d", subjectID)
	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actorID,
		Action:     action,
		Resource:   &resource,
		ResourceID: &resourceID,
		Details:    details,
		Success:    success,
	})
}
