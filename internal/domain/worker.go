package domain

import (
	"time"

	"github.com/google/uuid"
)

// Worker statuses.
const (
	WorkerStatusIdle    = "idle"
	WorkerStatusBusy    = "busy"
	WorkerStatusError   = "error"
	WorkerStatusOffline = "offline"
)

const DefaultMaxConcurrency = 1

// Worker is a pool slot that executes at most MaxConcurrency jobs at a
// time by driving a Generator. Grounded on the teacher's worker-lifecycle
// bookkeeping (internal/jobs/worker.go), generalized into a persisted row
// so the pool's membership survives process restarts.
type Worker struct {
	ID                  uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name                string     `gorm:"column:name;not null" json:"name"`
	Type                string     `gorm:"column:type;not null" json:"type"`
	Status              string     `gorm:"column:status;not null;index" json:"status"`
	CurrentJobID        *uuid.UUID `gorm:"type:uuid;column:current_job_id;index" json:"current_job_id,omitempty"`
	ActiveJobs          int        `gorm:"column:active_jobs;not null;default:0" json:"active_jobs"`
	MaxConcurrency      int        `gorm:"column:max_concurrency;not null;default:1" json:"max_concurrency"`
	LastHeartbeat       time.Time  `gorm:"column:last_heartbeat;index" json:"last_heartbeat"`
	TotalJobsProcessed  int64      `gorm:"column:total_jobs_processed;not null;default:0" json:"total_jobs_processed"`
	TotalTokensUsed     int64      `gorm:"column:total_tokens_used;not null;default:0" json:"total_tokens_used"`
	ConsecutiveFailures int        `gorm:"column:consecutive_failures;not null;default:0" json:"consecutive_failures"`
	CreatedAt           time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Worker) TableName() string { return "worker" }
