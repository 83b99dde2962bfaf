// Package events is the lifecycle event bus observers (UI, audit) read
// from. Grounded on the teacher's internal/realtime/bus Bus interface,
// generalized from SSE-only payloads to the scheduler's own event kinds.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the lifecycle events the dispatcher, queue, and pool
// emit for observers to build a UI timeline or audit trail from.
type Kind string

const (
	KindJobCreated       Kind = "job.created"
	KindJobQueued        Kind = "job.queued"
	KindJobRunning       Kind = "job.running"
	KindJobProgress      Kind = "job.progress"
	KindJobCompleted     Kind = "job.completed"
	KindJobFailed        Kind = "job.failed"
	KindJobRetry         Kind = "job.retry"
	KindJobCancelled     Kind = "job.cancelled"
	KindJobWaitingInput  Kind = "job.waiting_input"
	KindWorkerSpawned    Kind = "worker.spawned"
	KindWorkerOffline    Kind = "worker.offline"
	KindWorkerUnhealthy  Kind = "worker.unhealthy"
	KindToolTaskFinished Kind = "tool_task.finished"
)

// Event is one lifecycle notification. Data carries kind-specific details
// (e.g. progress percentage, error text) as a plain map, kept loosely typed
// since observers are external to the core (spec.md §1 non-goals).
type Event struct {
	Kind      Kind                   `json:"kind"`
	JobID     uuid.UUID              `json:"job_id,omitempty"`
	WorkerID  uuid.UUID              `json:"worker_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Bus fans events out to any number of forwarders. Implementations are
// either in-process (single-instance deployments, tests) or Redis-backed
// pub/sub (multi-instance deployments), mirroring the teacher's Bus/redisBus
// split.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	StartForwarder(ctx context.Context, onEvent func(Event)) error
	Close() error
}
