package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/skillatlas/skillatlas/internal/jobs"
	"github.com/skillatlas/skillatlas/internal/rbac"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const defaultWarmupWindow = 24 * time.Hour

// PermissionsWarmupJob re-primes the effective-permission cache for users
// with a recent session, so the first authorization check after a cache flush
// or deploy does not pay the resolve cost.
type PermissionsWarmupJob struct {
	Resolver *rbac.Resolver
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewPermissionsWarmupJob wires dependencies for the warmup handler.
func NewPermissionsWarmupJob(resolver *rbac.Resolver, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *PermissionsWarmupJob {
	return &PermissionsWarmupJob{
		Resolver: resolver,
		Pool:     pool,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes permission warmup tasks.
func (j *PermissionsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("permissions warmup: handler not configured")
	}
	var payload PermissionsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := defaultWarmupWindow
	if payload.ActiveWithinHours > 0 {
		window = time.Duration(payload.ActiveWithinHours) * time.Hour
	}

	tracker := j.metrics().Track(TaskPermissionsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("window", window))
	logger.Info("starting permissions warmup")

	userIDs, err := j.fetchActiveUsers(ctx, j.now().Add(-window))
	if err != nil {
		resultErr = err
		logger.Error("load active users", slog.Any("error", err))
		return resultErr
	}
	if len(userIDs) == 0 {
		logger.Info("no active users to warm")
		return resultErr
	}

	warmed := 0
	for _, userID := range userIDs {
		if err := j.Resolver.Warm(ctx, userID); err != nil {
			// Keep going; a single failed user should not abort the run.
			logger.Warn("warm user", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}
		warmed++
	}

	logger.Info("completed permissions warmup", slog.Int("users", warmed))
	return resultErr
}

func (j *PermissionsWarmupJob) fetchActiveUsers(ctx context.Context, since time.Time) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("permissions warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx,
		`SELECT DISTINCT user_id FROM sessions WHERE created_at >= $1 ORDER BY user_id`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

func (j *PermissionsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPermissionsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskPermissionsWarmup))
}

func (j *PermissionsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PermissionsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
