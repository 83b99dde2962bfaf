package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobEvent is an append-only ledger row mirroring every lifecycle
// transition the scheduler emits onto events.Bus. Distinct from JobResult
// (the one terminal record): this is the replay trail GET status uses to
// build a UI timeline, grounded on the teacher's JobRunEvent table.
type JobEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"job_id"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`
	Status    string         `gorm:"column:status;index" json:"status,omitempty"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (JobEvent) TableName() string { return "job_event" }
