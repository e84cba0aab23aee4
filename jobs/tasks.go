package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditCleanup purges audit entries past the retention window.
	TaskAuditCleanup = "audit:cleanup"
	// TaskAnalyticsWarmup pre-populates the analytics cache.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// AuditCleanupPayload carries the retention window for the cleanup job.
type AuditCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditCleanupTask constructs an Asynq task for the audit cleanup job.
func NewAuditCleanupTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, data), nil
}

// AnalyticsWarmupPayload scopes the warmup run.
type AnalyticsWarmupPayload struct {
	TeamScope string `json:"team_scope"`
}

// NewAnalyticsWarmupTask constructs an Asynq task for the warmup job.
func NewAnalyticsWarmupTask(teamScope string) (*asynq.Task, error) {
	data, err := json.Marshal(AnalyticsWarmupPayload{TeamScope: teamScope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}
