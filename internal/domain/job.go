package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job types.
const (
	JobTypePrompt    = "prompt"
	JobTypeTool      = "tool"
	JobTypeComposite = "composite"
	JobTypeWorkflow  = "workflow"
)

// Job statuses.
const (
	JobStatusPending      = "pending"
	JobStatusQueued       = "queued"
	JobStatusRunning      = "running"
	JobStatusCompleted    = "completed"
	JobStatusFailed       = "failed"
	JobStatusCancelled    = "cancelled"
	JobStatusWaitingInput = "waiting_input"
)

// Composite execution modes.
const (
	ExecutionModeSequential = "sequential"
	ExecutionModeParallel   = "parallel"
	ExecutionModeBatch      = "batch"
)

// Priority bands.
const (
	PriorityBandHigh   = "high"
	PriorityBandNormal = "normal"
	PriorityBandLow    = "low"
)

const DefaultPriority = 5
const DefaultMaxRetries = 3
const DefaultTimeoutMs = 300000

// Job is the durable unit of scheduled work. It generalizes the teacher's
// JobRun (a single-purpose course-generation job row) to the four job
// types and dependency/composite model this scheduler runs.
type Job struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name           string           `gorm:"column:name;not null" json:"name"`
	Type           string           `gorm:"column:type;not null;index" json:"type"`
	Priority       int              `gorm:"column:priority;not null;default:5;index" json:"priority"`
	ParentJobID    *uuid.UUID       `gorm:"type:uuid;column:parent_job_id;index" json:"parent_job_id,omitempty"`
	Dependencies   datatypes.JSON   `gorm:"column:dependencies;type:jsonb" json:"dependencies,omitempty"`
	ExecutionMode  string           `gorm:"column:execution_mode" json:"execution_mode,omitempty"`
	Payload        datatypes.JSON   `gorm:"column:payload;type:jsonb" json:"payload"`
	Status         string           `gorm:"column:status;not null;index" json:"status"`
	RetryCount     int              `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries     int              `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	TimeoutMs      int              `gorm:"column:timeout_ms;not null;default:300000" json:"timeout_ms"`
	ScheduledFor   *time.Time       `gorm:"column:scheduled_for;index" json:"scheduled_for,omitempty"`
	CronExpression *string          `gorm:"column:cron_expression" json:"cron_expression,omitempty"`
	WorkerID       *uuid.UUID       `gorm:"type:uuid;column:worker_id;index" json:"worker_id,omitempty"`
	LockedAt       *time.Time       `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt    *time.Time       `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt    *time.Time       `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	Error          string           `gorm:"column:error" json:"error,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;default:now();index" json:"created_at"`
	StartedAt      *time.Time       `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	UpdatedAt      time.Time        `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (Job) TableName() string { return "job" }

// PriorityBand buckets a job's numeric priority per spec.md §4.1.
func PriorityBand(priority int) string {
	switch {
	case priority <= 2:
		return PriorityBandHigh
	case priority <= 5:
		return PriorityBandNormal
	default:
		return PriorityBandLow
	}
}

// DependencyIDs decodes the Dependencies JSON column into a uuid slice.
func (j *Job) DependencyIDs() ([]uuid.UUID, error) {
	return decodeUUIDArray(j.Dependencies)
}
