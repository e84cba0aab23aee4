package audit

import (
	"context"
	"log/slog"
	"time"
)

// Inserter persists a single audit entry.
type Inserter interface {
	Insert(ctx context.Context, entry Entry) error
}

// Recorder is the append-only audit writer. A failed write must never
// break the operation it is observing: errors are logged and swallowed,
// accepting audit gaps over request failures.
type Recorder struct {
	repo   Inserter
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(repo Inserter, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record persists the entry, defaulting OccurredAt to now.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.repo == nil {
		return
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if err := r.repo.Insert(ctx, entry); err != nil {
		if r.logger != nil {
			r.logger.Error("audit write failed",
				slog.String("action", string(entry.Action)),
				slog.Any("error", err))
		}
	}
}
