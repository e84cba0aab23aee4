package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoreline/scoreline/internal/evaluations"
	jobmetrics "github.com/scoreline/scoreline/internal/jobs"
)

// AnalyticsWarmupJob pre-populates the analytics cache so dashboard
// reads after the nightly run hit Redis instead of Postgres.
type AnalyticsWarmupJob struct {
	Evaluations *evaluations.Service
	Pool        *pgxpool.Pool
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(evalSvc *evaluations.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Evaluations: evalSvc,
		Pool:        pool,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Evaluations == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.TeamScope == "" {
		payload.TeamScope = "active"
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("team_scope", payload.TeamScope))
	logger.Info("starting analytics warmup")
	start := j.now()

	// An empty window defaults to the trailing quarter, the same window
	// the dashboard requests.
	window := evaluations.Window{}
	if _, err := j.Evaluations.TeamAnalytics(ctx, window); err != nil {
		resultErr = err
		logger.Error("warm team analytics", slog.Any("error", err))
		return resultErr
	}
	if _, err := j.Evaluations.SalespersonAnalytics(ctx, window, nil); err != nil {
		resultErr = err
		logger.Error("warm salesperson analytics", slog.Any("error", err))
		return resultErr
	}

	teams, err := j.fetchTeams(ctx, payload.TeamScope)
	if err != nil {
		resultErr = err
		logger.Error("load warmup teams", slog.Any("error", err))
		return resultErr
	}
	for _, teamID := range teams {
		teamCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		_, err := j.Evaluations.SalespersonAnalytics(teamCtx, window, &teamID)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm team scope", slog.Int64("team_id", teamID), slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("completed analytics warmup",
		slog.Int("teams", len(teams)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *AnalyticsWarmupJob) fetchTeams(ctx context.Context, scope string) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("analytics warmup: pool not configured")
	}
	query := `SELECT id FROM teams WHERE is_active ORDER BY id`
	if scope == "all" {
		query = `SELECT id FROM teams ORDER BY id`
	}
	rows, err := j.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		teams = append(teams, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
