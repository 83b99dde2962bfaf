package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ToolTask statuses.
const (
	ToolTaskStatusRunning   = "running"
	ToolTaskStatusCompleted = "completed"
	ToolTaskStatusFailed    = "failed"
)

// ToolTask is the persisted trace of one ToolCall from an LLM reply.
// Grounded on the teacher's JobRunEvent ledger shape, narrowed to the
// single-call state machine spec.md §4.5 describes: running -> terminal,
// no re-entry.
type ToolTask struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MessageID  string         `gorm:"column:message_id;index" json:"message_id,omitempty"`
	TaskType   string         `gorm:"column:task_type;not null;index" json:"task_type"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Result     datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	ExecutedAt *time.Time     `gorm:"column:executed_at" json:"executed_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (ToolTask) TableName() string { return "tool_task" }

// ExecutionLog is the audit trail for actions a ToolTask performs, mirroring
// the teacher's append-only JobRunEvent ledger (internal/domain/jobs/job_run_event.go).
type ExecutionLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskID     *uuid.UUID     `gorm:"type:uuid;column:task_id;index" json:"task_id,omitempty"`
	Action     string         `gorm:"column:action;not null" json:"action"`
	Input      datatypes.JSON `gorm:"column:input;type:jsonb" json:"input,omitempty"`
	Output     datatypes.JSON `gorm:"column:output;type:jsonb" json:"output,omitempty"`
	ExitCode   *int           `gorm:"column:exit_code" json:"exit_code,omitempty"`
	DurationMs int64          `gorm:"column:duration_ms" json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (ExecutionLog) TableName() string { return "execution_log" }
