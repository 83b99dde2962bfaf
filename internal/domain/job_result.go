package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobResult is the one-to-one terminal record of a Job. It is created at
// the job's terminal transition and never mutated afterward, mirroring the
// teacher's "write once at terminal state" discipline for JobRun.Result.
type JobResult struct {
	JobID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"job_id"`
	Success      bool           `gorm:"column:success;not null" json:"success"`
	Output       datatypes.JSON `gorm:"column:output;type:jsonb" json:"output,omitempty"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	InputTokens  *int           `gorm:"column:input_tokens" json:"input_tokens,omitempty"`
	OutputTokens *int           `gorm:"column:output_tokens" json:"output_tokens,omitempty"`
	DurationMs   int64          `gorm:"column:duration_ms;not null" json:"duration_ms"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (JobResult) TableName() string { return "job_result" }
