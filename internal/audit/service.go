package audit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultLimit         = 100
	maxLimit             = 1000
	defaultRetentionDays = 365
)

// Querier is the read side of the audit store.
type Querier interface {
	List(ctx context.Context, filters Filters) ([]Entry, int, error)
	Count(ctx context.Context, filters Filters) (int, error)
	CountDistinctUsers(ctx context.Context, filters Filters) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service coordinates audit queries, compliance reporting, and retention.
type Service struct {
	repo Querier
}

// NewService constructs an audit query service.
func NewService(repo Querier) *Service {
	return &Service{repo: repo}
}

// List returns a filtered page of entries, newest first.
func (s *Service) List(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if filters.Limit <= 0 {
		filters.Limit = defaultLimit
	}
	if filters.Limit > maxLimit {
		filters.Limit = maxLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	entries, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Entries: entries,
		Total:   total,
		HasMore: filters.Offset+filters.Limit < total,
	}, nil
}

// SecurityEvents returns the security-related slice of the log.
func (s *Service) SecurityEvents(ctx context.Context, filters Filters) (Result, error) {
	filters.Action = ""
	filters.Actions = SecurityActions
	return s.List(ctx, filters)
}

// DataAccessLogs returns the data-access slice of the log.
func (s *Service) DataAccessLogs(ctx context.Context, filters Filters) (Result, error) {
	filters.Action = ""
	filters.Actions = DataAccessActions
	return s.List(ctx, filters)
}

// ComplianceReport aggregates activity counts over a window. The five
// counts run in parallel; the window is inclusive on both ends.
func (s *Service) ComplianceReport(ctx context.Context, organizationID int64, from, to time.Time) (ComplianceReport, error) {
	if s.repo == nil {
		return ComplianceReport{}, fmt.Errorf("audit: repository not configured")
	}
	base := Filters{OrganizationID: &organizationID, From: from, To: to}

	var total, security, dataAccess, activeUsers, system int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = s.repo.Count(gctx, base)
		return err
	})
	g.Go(func() (err error) {
		f := base
		f.Actions = SecurityActions
		security, err = s.repo.Count(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		f := base
		f.Actions = DataAccessActions
		dataAccess, err = s.repo.Count(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		activeUsers, err = s.repo.CountDistinctUsers(gctx, base)
		return err
	})
	g.Go(func() (err error) {
		f := base
		f.Actions = SystemActions
		system, err = s.repo.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return ComplianceReport{}, err
	}

	return ComplianceReport{
		OrganizationID:  organizationID,
		From:            from,
		To:              to,
		TotalLogs:       total,
		SecurityEvents:  security,
		DataAccessCount: dataAccess,
		ActiveUsers:     activeUsers,
		SystemEvents:    system,
		SecurityScore:   securityScore(total, security),
	}, nil
}

// Cleanup bulk-deletes entries older than the retention window. Safe to
// run repeatedly.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

// securityScore is max(0, 100 - securityEvents/totalLogs*100), with 100
// for an empty window: no evidence of risk. Heuristic, not a guarantee.
func securityScore(total, security int) int {
	if total == 0 {
		return 100
	}
	score := 100 - (security*100)/total
	if score < 0 {
		return 0
	}
	return score
}
