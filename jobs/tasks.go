package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermissionsWarmup re-primes permission caches for active users.
	TaskPermissionsWarmup = "authz:permissions_warmup"
	// TaskSessionCleanup purges expired session rows.
	TaskSessionCleanup = "sessions:cleanup"
)

// PermissionsWarmupPayload scopes a warmup run to users active within the
// trailing window, expressed in hours. Zero means the default window.
type PermissionsWarmupPayload struct {
	ActiveWithinHours int `json:"activeWithinHours"`
}

// NewPermissionsWarmupTask constructs an Asynq task.
func NewPermissionsWarmupTask(payload PermissionsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionsWarmup, data), nil
}

// SessionCleanupPayload carries no parameters today but stays a struct so the
// payload can grow without changing the task type.
type SessionCleanupPayload struct{}

// NewSessionCleanupTask constructs an Asynq task.
func NewSessionCleanupTask() (*asynq.Task, error) {
	data, err := json.Marshal(SessionCleanupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionCleanup, data), nil
}
