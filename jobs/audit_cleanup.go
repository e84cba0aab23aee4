package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scoreline/scoreline/internal/audit"
	jobmetrics "github.com/scoreline/scoreline/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AuditCleanupJob removes audit entries older than the retention window.
type AuditCleanupJob struct {
	Audit         *audit.Service
	RetentionDays int
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// NewAuditCleanupJob wires dependencies for the cleanup handler. The
// retention argument is the fallback when the task payload carries none.
func NewAuditCleanupJob(auditSvc *audit.Service, retentionDays int, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditCleanupJob {
	return &AuditCleanupJob{
		Audit:         auditSvc,
		RetentionDays: retentionDays,
		Logger:        logger,
		Metrics:       metrics,
	}
}

// Handle processes audit cleanup tasks.
func (j *AuditCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Audit == nil {
		return errors.New("audit cleanup: handler not configured")
	}
	var payload AuditCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.RetentionDays
	if retention <= 0 {
		retention = j.RetentionDays
	}
	if retention <= 0 {
		retention = 365
	}

	tracker := j.metrics().Track(TaskAuditCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("retention_days", retention))
	start := time.Now()

	purged, err := j.Audit.Cleanup(ctx, retention)
	if err != nil {
		resultErr = err
		logger.Error("audit cleanup", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddPurgedEntries(purged)

	logger.Info("completed audit cleanup",
		slog.Int64("purged", purged),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *AuditCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuditCleanup))
	}
	return slog.Default().With(slog.String("job", TaskAuditCleanup))
}

func (j *AuditCleanupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
