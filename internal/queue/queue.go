// Package queue is the durable, priority-banded Job Queue: submission,
// ordered retrieval, atomic claim, and retry/expiry bookkeeping, per
// spec.md §4.1. Grounded on the teacher's internal/jobs/worker.go claim
// loop shape and internal/data/repos/jobs/job_run.go's transition helpers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron"
	"gorm.io/datatypes"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/events"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
	"github.com/relaycore/agentcore/internal/repos"
	"github.com/relaycore/agentcore/internal/resolver"
)

// ErrJobWaiting is returned by a job-type Handler (namely the composite
// evaluator) when the job is not actually done failing or succeeding, just
// not ready to conclude yet — e.g. a composite whose children haven't all
// reached a terminal state (spec.md §4.3 step 2). It is distinct from a
// real error: the dispatcher re-queues the job untouched rather than
// consuming a retry or marking the worker unhealthy.
var ErrJobWaiting = fmt.Errorf("queue: job not ready to conclude")

// HandlerResult is what a registered job-type processor returns on
// success; the Worker Pool turns it into a JobResult.
type HandlerResult struct {
	Output       datatypes.JSON
	InputTokens  int
	OutputTokens int
}

// Handler executes one job of a registered type. registerProcessor binds
// one of these per job type across all priority bands (spec.md §4.1).
type Handler func(ctx context.Context, job *domain.Job) (*HandlerResult, error)

// JobSubmission is the caller-facing shape accepted by Submit/SubmitBatch.
type JobSubmission struct {
	Name string
	Type string
	// Priority is a pointer so an explicit 0 (the most urgent value, per
	// spec.md §3/§4.1) is distinguishable from "unset" — defaults to
	// domain.DefaultPriority only when nil, never when 0.
	Priority       *int
	ParentJobID    *uuid.UUID
	Dependencies   []uuid.UUID
	ExecutionMode  string
	Payload        map[string]interface{}
	MaxRetries     int
	TimeoutMs      int
	ScheduledFor   *time.Time
	CronExpression *string
}

type Queue struct {
	jobs       repos.JobRepo
	results    repos.JobResultRepo
	jobEvents  repos.JobEventRepo
	resolver   *resolver.Resolver
	bus        events.Bus
	log        *logger.Logger
	processors map[string]Handler

	// defaultTimeoutMs backs every Submit that doesn't name its own
	// TimeoutMs (spec.md §6 JOB_EXPIRE_SECONDS, "default per-job wall
	// timeout"). Falls back to domain.DefaultTimeoutMs if zero.
	defaultTimeoutMs int
}

func New(jobs repos.JobRepo, results repos.JobResultRepo, jobEvents repos.JobEventRepo, res *resolver.Resolver, bus events.Bus, baseLog *logger.Logger, defaultTimeoutMs int) *Queue {
	if defaultTimeoutMs <= 0 {
		defaultTimeoutMs = domain.DefaultTimeoutMs
	}
	return &Queue{
		jobs:             jobs,
		results:          results,
		jobEvents:        jobEvents,
		resolver:         res,
		bus:              bus,
		log:              baseLog.With("component", "queue"),
		processors:       map[string]Handler{},
		defaultTimeoutMs: defaultTimeoutMs,
	}
}

// RegisterProcessor subscribes a handler for a job type on all priority
// bands; the Worker Pool looks it up by Job.Type when executing a claimed
// job.
func (q *Queue) RegisterProcessor(jobType string, h Handler) {
	q.processors[jobType] = h
}

// Processor returns the handler registered for a job type, if any.
func (q *Queue) Processor(jobType string) (Handler, bool) {
	h, ok := q.processors[jobType]
	return h, ok
}

// Submit persists a job in pending. If its dependencies are already all
// completed it is immediately transitioned to queued and emitted into its
// priority band; otherwise it stays pending for the resolver to pick up.
func (q *Queue) Submit(ctx context.Context, sub JobSubmission) (*domain.Job, error) {
	if sub.Name == "" {
		return nil, fmt.Errorf("validation: name is required")
	}
	switch sub.Type {
	case domain.JobTypePrompt, domain.JobTypeTool, domain.JobTypeComposite, domain.JobTypeWorkflow:
	default:
		return nil, fmt.Errorf("validation: unknown job type %q", sub.Type)
	}

	id := uuid.New()
	if err := q.resolver.ValidateAcyclic(ctx, id, sub.Dependencies); err != nil {
		return nil, err
	}

	priority := domain.DefaultPriority
	if sub.Priority != nil {
		priority = *sub.Priority
	}
	maxRetries := sub.MaxRetries
	if maxRetries == 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	timeoutMs := sub.TimeoutMs
	if timeoutMs == 0 {
		timeoutMs = q.defaultTimeoutMs
	}

	payloadRaw, err := json.Marshal(sub.Payload)
	if err != nil {
		return nil, fmt.Errorf("validation: bad payload: %w", err)
	}

	now := time.Now()
	job := &domain.Job{
		ID:             id,
		Name:           sub.Name,
		Type:           sub.Type,
		Priority:       priority,
		ParentJobID:    sub.ParentJobID,
		Dependencies:   domain.EncodeUUIDArray(sub.Dependencies),
		ExecutionMode:  sub.ExecutionMode,
		Payload:        datatypes.JSON(payloadRaw),
		Status:         domain.JobStatusPending,
		MaxRetries:     maxRetries,
		TimeoutMs:      timeoutMs,
		ScheduledFor:   sub.ScheduledFor,
		CronExpression: sub.CronExpression,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := q.jobs.Create(dbctx.Context{Ctx: ctx}, job); err != nil {
		return nil, err
	}
	q.emit(ctx, events.KindJobCreated, job, nil)

	status, err := q.resolver.Evaluate(ctx, sub.Dependencies)
	if err != nil {
		return nil, err
	}
	notYetDue := job.ScheduledFor != nil && job.ScheduledFor.After(now)
	if status.Ready && !notYetDue {
		if err := q.enqueue(ctx, job); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// SubmitBatch submits jobs one at a time; there is no cross-ordering
// guarantee beyond each individual call succeeding or failing on its own.
func (q *Queue) SubmitBatch(ctx context.Context, subs []JobSubmission) ([]*domain.Job, error) {
	out := make([]*domain.Job, 0, len(subs))
	for _, s := range subs {
		job, err := q.Submit(ctx, s)
		if err != nil {
			return out, err
		}
		out = append(out, job)
	}
	return out, nil
}

// List returns up to limit jobs in status, most-recent first. Status ""
// lists jobs of every status, as JobRepo.List does.
func (q *Queue) List(ctx context.Context, status string, limit int) ([]*domain.Job, error) {
	return q.jobs.List(dbctx.Context{Ctx: ctx}, status, limit)
}

// Enqueue transitions a pending job (fresh or ready-after-retry-delay) into
// queued. Called by Submit for immediately-ready jobs and by the Dispatcher
// for jobs the resolver reports ready on a later tick.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	return q.enqueue(ctx, job)
}

func (q *Queue) enqueue(ctx context.Context, job *domain.Job) error {
	ok, err := q.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, []string{domain.JobStatusCancelled}, map[string]interface{}{
		"status": domain.JobStatusQueued,
	})
	if err != nil {
		return err
	}
	if ok {
		job.Status = domain.JobStatusQueued
		q.emit(ctx, events.KindJobQueued, job, nil)
	}
	return nil
}

// ClaimNext atomically claims the next runnable job in a priority band.
// staleMaxAttempts bounds the DB-level stale-running reclaim (see
// JobRepo.ClaimNextRunnable); the per-job retry bound itself
// (Job.MaxRetries) is enforced separately in Fail.
func (q *Queue) ClaimNext(ctx context.Context, band string, staleMaxAttempts int, staleRunning time.Duration) (*domain.Job, error) {
	job, err := q.jobs.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, band, staleMaxAttempts, staleRunning)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	q.emit(ctx, events.KindJobRunning, job, nil)
	return job, nil
}

// Complete records a successful JobResult, transitions the job to
// completed, wakes dependents by virtue of the resolver re-scanning pending
// jobs on the next dispatch tick, and — if job carries a CronExpression —
// submits the next occurrence (SPEC_FULL.md §4's recurring-job supplement).
func (q *Queue) Complete(ctx context.Context, job *domain.Job, result HandlerResult, durationMs int64) error {
	now := time.Now()
	jr := &domain.JobResult{
		JobID:      job.ID,
		Success:    true,
		Output:     result.Output,
		DurationMs: durationMs,
		CreatedAt:  now,
	}
	if result.InputTokens != 0 {
		v := result.InputTokens
		jr.InputTokens = &v
	}
	if result.OutputTokens != 0 {
		v := result.OutputTokens
		jr.OutputTokens = &v
	}
	if _, err := q.results.Create(dbctx.Context{Ctx: ctx}, jr); err != nil {
		return err
	}
	ok, err := q.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, []string{domain.JobStatusCancelled}, map[string]interface{}{
		"status":       domain.JobStatusCompleted,
		"completed_at": now,
	})
	if err != nil {
		return err
	}
	if ok {
		q.emit(ctx, events.KindJobCompleted, &domain.Job{ID: job.ID, Status: domain.JobStatusCompleted}, nil)
	}
	if job.CronExpression != nil && *job.CronExpression != "" {
		if schedErr := q.scheduleNextOccurrence(ctx, job, now); schedErr != nil {
			q.log.Warn("cron reschedule failed", "job_id", job.ID, "error", schedErr)
		}
	}
	return nil
}

// scheduleNextOccurrence submits a fresh Job row carrying the same
// name/type/priority/payload/cron, scheduled for the cron schedule's next
// tick after from. Grounded on the teacher's indirect robfig/cron
// dependency (SPEC_FULL.md §2's domain stack note).
func (q *Queue) scheduleNextOccurrence(ctx context.Context, job *domain.Job, from time.Time) error {
	schedule, err := cron.Parse(*job.CronExpression)
	if err != nil {
		return fmt.Errorf("bad cron expression %q: %w", *job.CronExpression, err)
	}
	next := schedule.Next(from)

	var payload map[string]interface{}
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("decoding payload for recurrence: %w", err)
		}
	}

	_, err = q.Submit(ctx, JobSubmission{
		Name:           job.Name,
		Type:           job.Type,
		Priority:       &job.Priority,
		Payload:        payload,
		MaxRetries:     job.MaxRetries,
		TimeoutMs:      job.TimeoutMs,
		ScheduledFor:   &next,
		CronExpression: job.CronExpression,
	})
	return err
}

// Fail records a transient execution failure. If the job still has
// retries left it returns to pending with scheduled_for pushed out by
// retryDelay — immediately eligible for re-enqueue once that delay
// elapses and the resolver's next tick picks it up again (its original
// dependencies are already satisfied, since it ran once before); otherwise
// a failure JobResult is written and the job transitions to the terminal
// failed state.
func (q *Queue) Fail(ctx context.Context, job *domain.Job, execErr error, durationMs int64, retryDelay time.Duration) error {
	now := time.Now()
	if job.RetryCount < job.MaxRetries {
		notBefore := now.Add(retryDelay)
		ok, err := q.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, []string{domain.JobStatusCancelled}, map[string]interface{}{
			"status":        domain.JobStatusPending,
			"retry_count":   job.RetryCount + 1,
			"last_error_at": now,
			"scheduled_for": notBefore,
			"error":         execErr.Error(),
		})
		if err != nil {
			return err
		}
		if ok {
			q.emit(ctx, events.KindJobRetry, job, map[string]interface{}{"error": execErr.Error()})
		}
		return nil
	}

	jr := &domain.JobResult{
		JobID:      job.ID,
		Success:    false,
		Error:      execErr.Error(),
		DurationMs: durationMs,
		CreatedAt:  now,
	}
	if _, err := q.results.Create(dbctx.Context{Ctx: ctx}, jr); err != nil {
		return err
	}
	ok, err := q.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, []string{domain.JobStatusCancelled}, map[string]interface{}{
		"status":        domain.JobStatusFailed,
		"error":         execErr.Error(),
		"last_error_at": now,
		"completed_at":  now,
	})
	if err != nil {
		return err
	}
	if ok {
		q.emit(ctx, events.KindJobFailed, job, map[string]interface{}{"error": execErr.Error()})
	}
	return nil
}

// PropagateFailure transitions a pending job to failed because one of its
// dependencies failed or was cancelled (resolver.ReadyAndPropagated).
func (q *Queue) PropagateFailure(ctx context.Context, jobID uuid.UUID, reason string) error {
	now := time.Now()
	jr := &domain.JobResult{JobID: jobID, Success: false, Error: reason, CreatedAt: now}
	if _, err := q.results.Create(dbctx.Context{Ctx: ctx}, jr); err != nil {
		return err
	}
	_, err := q.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, jobID, []string{domain.JobStatusCancelled}, map[string]interface{}{
		"status":       domain.JobStatusFailed,
		"error":        reason,
		"completed_at": now,
	})
	return err
}

// Cancel transitions pending/queued jobs to cancelled. Running jobs cannot
// be cancelled by the core (spec.md §5).
func (q *Queue) Cancel(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now()
	disallowed := []string{domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled, domain.JobStatusRunning}
	ok, err := q.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, jobID, disallowed, map[string]interface{}{
		"status":       domain.JobStatusCancelled,
		"completed_at": now,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cancel: job %s is not cancellable from its current status", jobID)
	}
	q.emit(ctx, events.KindJobCancelled, &domain.Job{ID: jobID}, nil)
	return nil
}

// Resume merges operatorInput into payload.context, returns the job to
// pending, then re-enqueues it (spec.md §4.1).
func (q *Queue) Resume(ctx context.Context, jobID uuid.UUID, operatorInput map[string]interface{}) error {
	job, err := q.jobs.GetByID(dbctx.Context{Ctx: ctx}, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("resume: job %s not found", jobID)
	}

	var payload map[string]interface{}
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("resume: decode payload: %w", err)
		}
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	existingCtx, _ := payload["context"].(map[string]interface{})
	if existingCtx == nil {
		existingCtx = map[string]interface{}{}
	}
	for k, v := range operatorInput {
		existingCtx[k] = v
	}
	payload["context"] = existingCtx

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if err := q.jobs.UpdateFields(dbctx.Context{Ctx: ctx}, jobID, map[string]interface{}{
		"payload": datatypes.JSON(raw),
		"status":  domain.JobStatusPending,
	}); err != nil {
		return err
	}
	job.Status = domain.JobStatusPending
	return q.enqueue(ctx, job)
}

// MarkWaitingForInput holds the job in pending without enqueuing and
// emits a waiting_input event.
func (q *Queue) MarkWaitingForInput(ctx context.Context, jobID uuid.UUID) error {
	if err := q.jobs.UpdateFields(dbctx.Context{Ctx: ctx}, jobID, map[string]interface{}{
		"status": domain.JobStatusPending,
	}); err != nil {
		return err
	}
	q.emit(ctx, events.KindJobWaitingInput, &domain.Job{ID: jobID}, nil)
	return nil
}

// Heartbeat refreshes a running job's heartbeat_at, used by the worker
// that owns it to keep the stale-reclaim window open.
func (q *Queue) Heartbeat(ctx context.Context, jobID, workerID uuid.UUID) error {
	return q.jobs.Heartbeat(dbctx.Context{Ctx: ctx}, jobID, workerID)
}

func (q *Queue) emit(ctx context.Context, kind events.Kind, job *domain.Job, data map[string]interface{}) {
	q.appendLedger(ctx, kind, job, data)

	if q.bus == nil {
		return
	}
	if err := q.bus.Publish(ctx, events.Event{
		Kind:      kind,
		JobID:     job.ID,
		Data:      data,
		Timestamp: time.Now(),
	}); err != nil {
		q.log.Warn("event publish failed", "kind", kind, "error", err)
	}
}

// appendLedger writes the append-only timeline row (SPEC_FULL.md §4); a
// failure here is logged, never fatal to the transition it's recording.
func (q *Queue) appendLedger(ctx context.Context, kind events.Kind, job *domain.Job, data map[string]interface{}) {
	if q.jobEvents == nil {
		return
	}
	evt := &domain.JobEvent{
		JobID:  job.ID,
		Kind:   string(kind),
		Status: job.Status,
		Data:   datatypes.JSON(marshalEventData(data)),
	}
	if err := q.jobEvents.Append(dbctx.Context{Ctx: ctx}, evt); err != nil {
		q.log.Warn("job event ledger append failed", "kind", kind, "error", err)
	}
}

func marshalEventData(data map[string]interface{}) []byte {
	if len(data) == 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return raw
}
