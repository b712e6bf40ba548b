package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/skillatlas/skillatlas/internal/auth"
	jobmetrics "github.com/skillatlas/skillatlas/internal/jobs"
)

// SessionCleanupJob deletes session rows whose expiry has passed. The redis
// copies expire on their own; this keeps the Postgres bookkeeping table from
// growing without bound.
type SessionCleanupJob struct {
	Repo    auth.Repository
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionCleanupJob wires dependencies for the cleanup handler.
func NewSessionCleanupJob(repo auth.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionCleanupJob {
	return &SessionCleanupJob{
		Repo:    repo,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes session cleanup tasks.
func (j *SessionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("session cleanup: handler not configured")
	}

	tracker := j.metrics().Track(TaskSessionCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting session cleanup")

	deleted, err := j.Repo.DeleteExpiredSessions(ctx, j.now())
	if err != nil {
		resultErr = err
		logger.Error("delete expired sessions", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed session cleanup", slog.Int64("deleted", deleted))
	return resultErr
}

func (j *SessionCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionCleanup))
	}
	return slog.Default().With(slog.String("job", TaskSessionCleanup))
}

func (j *SessionCleanupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SessionCleanupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
