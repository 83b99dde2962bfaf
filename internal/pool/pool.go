// Package pool implements the Worker Pool: an elastic set of LLM-bound
// workers with heartbeats, auto-restart, and scale up/down (spec.md §4.3).
// Grounded on internal/jobs/worker.go's claim loop and panic-recovery
// discipline (teacher), and internal/jobs/runtime/context.go's
// status-transition side effects.
package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/events"
	"github.com/relaycore/agentcore/internal/generator"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
	"github.com/relaycore/agentcore/internal/queue"
	"github.com/relaycore/agentcore/internal/repos"
)

type Config struct {
	MinWorkers             int
	MaxWorkers             int
	HeartbeatInterval      time.Duration
	HealthCheckInterval    time.Duration
	UnhealthyThreshold     time.Duration
	MaxConsecutiveFailures int
}

// Pool maintains between Config.MinWorkers and Config.MaxWorkers live
// workers, replacing unhealthy ones and exposing an idle worker on demand.
type Pool struct {
	cfg     Config
	workers repos.WorkerRepo
	jobs    repos.JobRepo
	gen     generator.Generator
	bus     events.Bus
	log     *logger.Logger
}

func New(cfg Config, workers repos.WorkerRepo, jobs repos.JobRepo, gen generator.Generator, bus events.Bus, baseLog *logger.Logger) *Pool {
	return &Pool{
		cfg:     cfg,
		workers: workers,
		jobs:    jobs,
		gen:     gen,
		bus:     bus,
		log:     baseLog.With("component", "pool"),
	}
}

// Start spawns MinWorkers, each registered idle, then launches the
// heartbeat and health-check background loops. It blocks until ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context) error {
	existing, err := p.workers.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return err
	}
	live := 0
	for _, w := range existing {
		if w.Status != domain.WorkerStatusOffline {
			live++
		}
	}
	for i := live; i < p.cfg.MinWorkers; i++ {
		if _, err := p.spawn(ctx); err != nil {
			return err
		}
	}

	heartbeatTicker := time.NewTicker(p.cfg.HeartbeatInterval)
	healthTicker := time.NewTicker(p.cfg.HealthCheckInterval)
	defer heartbeatTicker.Stop()
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return p.Shutdown(context.Background())
		case <-heartbeatTicker.C:
			p.heartbeatAll(ctx)
		case <-healthTicker.C:
			p.healthCheck(ctx)
		}
	}
}

func (p *Pool) spawn(ctx context.Context) (*domain.Worker, error) {
	now := time.Now()
	w := &domain.Worker{
		ID:             uuid.New(),
		Name:           fmt.Sprintf("worker-%s", uuid.NewString()[:8]),
		Type:           p.gen.Name(),
		Status:         domain.WorkerStatusIdle,
		MaxConcurrency: domain.DefaultMaxConcurrency,
		LastHeartbeat:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := p.workers.Create(dbctx.Context{Ctx: ctx}, w); err != nil {
		return nil, err
	}
	p.publish(ctx, events.KindWorkerSpawned, w.ID)
	return w, nil
}

func (p *Pool) heartbeatAll(ctx context.Context) {
	live, err := p.workers.ListByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusIdle)
	if err != nil {
		p.log.Warn("heartbeat list failed", "error", err)
		return
	}
	busy, err := p.workers.ListByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusBusy)
	if err != nil {
		p.log.Warn("heartbeat list failed", "error", err)
		return
	}
	for _, w := range append(live, busy...) {
		if err := p.workers.Heartbeat(dbctx.Context{Ctx: ctx}, w.ID); err != nil {
			p.log.Warn("heartbeat failed", "worker_id", w.ID, "error", err)
		}
	}
}

// healthCheck marks stale/unhealthy workers offline, removes workers with
// too many consecutive failures, and tops the pool back up to MinWorkers.
func (p *Pool) healthCheck(ctx context.Context) {
	stale, err := p.workers.StaleWorkers(dbctx.Context{Ctx: ctx}, p.cfg.UnhealthyThreshold)
	if err != nil {
		p.log.Warn("health check: stale scan failed", "error", err)
		return
	}
	for _, w := range stale {
		p.retireOffline(ctx, w)
	}

	failing, err := p.workers.ListByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusError)
	if err != nil {
		p.log.Warn("health check: error scan failed", "error", err)
		return
	}
	for _, w := range failing {
		if w.ConsecutiveFailures >= p.cfg.MaxConsecutiveFailures {
			p.retireOffline(ctx, w)
		}
	}

	count, err := p.workers.CountByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusIdle)
	if err != nil {
		return
	}
	busyCount, err := p.workers.CountByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusBusy)
	if err != nil {
		return
	}
	live := int(count + busyCount)
	for i := live; i < p.cfg.MinWorkers; i++ {
		if _, err := p.spawn(ctx); err != nil {
			p.log.Warn("health check: respawn failed", "error", err)
			break
		}
	}
}

// retireOffline marks a worker offline and reschedules the job it owned,
// per spec.md scenario S4: the job's retryCount increments; if still under
// the retry limit it returns to pending, eligible again at once
// (scheduled_for now); otherwise it fails with "worker lost".
func (p *Pool) retireOffline(ctx context.Context, w *domain.Worker) {
	if err := p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, w.ID, map[string]interface{}{
		"status":         domain.WorkerStatusOffline,
		"current_job_id": nil,
	}); err != nil {
		p.log.Warn("retire offline failed", "worker_id", w.ID, "error", err)
		return
	}
	p.publish(ctx, events.KindWorkerOffline, w.ID)

	if w.CurrentJobID == nil {
		return
	}
	job, err := p.jobs.GetByID(dbctx.Context{Ctx: ctx}, *w.CurrentJobID)
	if err != nil || job == nil || job.Status != domain.JobStatusRunning {
		return
	}
	now := time.Now()
	if job.RetryCount < job.MaxRetries {
		// Unlike an ordinary execution failure (Queue.Fail, which backs off by
		// JOB_RETRY_DELAY), a worker-lost reclaim carries no fault of the
		// job's own, so it returns to pending immediately eligible
		// (scheduled_for now) rather than serving a backoff window.
		_, _ = p.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, []string{domain.JobStatusCancelled}, map[string]interface{}{
			"status":        domain.JobStatusPending,
			"retry_count":   job.RetryCount + 1,
			"scheduled_for": now,
			"error":         "worker lost",
		})
	} else {
		_, _ = p.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, []string{domain.JobStatusCancelled}, map[string]interface{}{
			"status":       domain.JobStatusFailed,
			"error":        "worker lost",
			"completed_at": now,
		})
	}
}

// AcquireIdle atomically claims one idle worker and marks it busy. Returns
// (nil, nil) if none is available.
func (p *Pool) AcquireIdle(ctx context.Context) (*domain.Worker, error) {
	idle, err := p.workers.ListByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusIdle)
	if err != nil {
		return nil, err
	}
	for _, w := range idle {
		ok, err := p.claim(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			w.Status = domain.WorkerStatusBusy
			return w, nil
		}
	}
	return nil, nil
}

func (p *Pool) claim(ctx context.Context, workerID uuid.UUID) (bool, error) {
	err := p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, workerID, map[string]interface{}{
		"status": domain.WorkerStatusBusy,
	})
	return err == nil, err
}

// ScaleUp spawns one more worker if below MaxWorkers.
func (p *Pool) ScaleUp(ctx context.Context) (bool, error) {
	idleCount, err := p.workers.CountByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusIdle)
	if err != nil {
		return false, err
	}
	busyCount, err := p.workers.CountByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusBusy)
	if err != nil {
		return false, err
	}
	if int(idleCount+busyCount) >= p.cfg.MaxWorkers {
		return false, nil
	}
	if _, err := p.spawn(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ScaleDown removes one idle worker if above MinWorkers.
func (p *Pool) ScaleDown(ctx context.Context) (bool, error) {
	idle, err := p.workers.ListByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusIdle)
	if err != nil {
		return false, err
	}
	total, err := p.workers.CountByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusIdle)
	if err != nil {
		return false, err
	}
	busyCount, err := p.workers.CountByStatus(dbctx.Context{Ctx: ctx}, domain.WorkerStatusBusy)
	if err != nil {
		return false, err
	}
	if int(total+busyCount) <= p.cfg.MinWorkers || len(idle) == 0 {
		return false, nil
	}
	victim := idle[0]
	if err := p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, victim.ID, map[string]interface{}{
		"status": domain.WorkerStatusOffline,
	}); err != nil {
		return false, err
	}
	p.publish(ctx, events.KindWorkerOffline, victim.ID)
	return true, nil
}

// Shutdown tells every worker to stop; each transitions to offline.
func (p *Pool) Shutdown(ctx context.Context) error {
	all, err := p.workers.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return err
	}
	for _, w := range all {
		if w.Status == domain.WorkerStatusOffline {
			continue
		}
		_ = p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, w.ID, map[string]interface{}{
			"status":         domain.WorkerStatusOffline,
			"current_job_id": nil,
		})
	}
	return nil
}

func (p *Pool) publish(ctx context.Context, kind events.Kind, workerID uuid.UUID) {
	if p.bus == nil {
		return
	}
	_ = p.bus.Publish(ctx, events.Event{Kind: kind, WorkerID: workerID, Timestamp: time.Now()})
}

// ExecuteJob runs one job on the given worker, recovering from panics and
// converting them into a returned error with a nil result per spec.md §4.3/§8
// property 5's retry-bound discipline (a panic still counts as one
// executeJob invocation).
func (p *Pool) ExecuteJob(ctx context.Context, w *domain.Worker, job *domain.Job, q *queue.Queue) (result *queue.HandlerResult, execErr error) {
	defer func() {
		if r := recover(); r != nil {
			execErr = fmt.Errorf("panic in executeJob: %v", r)
		}
	}()

	if err := p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, w.ID, map[string]interface{}{
		"current_job_id": job.ID,
		"active_jobs":     1,
	}); err != nil {
		return nil, err
	}
	if err := p.jobs.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{
		"worker_id": w.ID,
	}); err != nil {
		return nil, err
	}

	timeout := time.Duration(job.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(domain.DefaultTimeoutMs) * time.Millisecond
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	result, execErr = p.dispatchByType(execCtx, job, q)
	cancel()
	if execErr != nil && execCtx.Err() == context.DeadlineExceeded {
		// The Generator/tool round-trip overran job.TimeoutMs (spec.md §5,
		// §7 kind 6): surface it as a normal execution failure, subject to
		// Queue.Fail's retry-with-backoff path like any other error.
		execErr = fmt.Errorf("job exceeded timeout of %s: %w", timeout, execErr)
	}

	if errors.Is(execErr, queue.ErrJobWaiting) {
		// The job (a composite whose children aren't all terminal yet)
		// didn't actually fail; the worker that evaluated it is healthy and
		// goes back to idle exactly as on success (spec.md §4.3 step 2).
		_ = p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, w.ID, map[string]interface{}{
			"status":          domain.WorkerStatusIdle,
			"current_job_id":  nil,
			"active_jobs":     0,
		})
		return nil, execErr
	}

	if execErr != nil {
		_ = p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, w.ID, map[string]interface{}{
			"status":               domain.WorkerStatusError,
			"current_job_id":       nil,
			"active_jobs":          0,
			"consecutive_failures": gorm.Expr("consecutive_failures + 1"),
		})
		return nil, execErr
	}

	tokens := int64(result.InputTokens + result.OutputTokens)
	_ = p.workers.UpdateFields(dbctx.Context{Ctx: ctx}, w.ID, map[string]interface{}{
		"status":               domain.WorkerStatusIdle,
		"current_job_id":       nil,
		"active_jobs":          0,
		"consecutive_failures": 0,
		"total_jobs_processed": gorm.Expr("total_jobs_processed + 1"),
		"total_tokens_used":    gorm.Expr("total_tokens_used + ?", tokens),
	})
	return result, nil
}

// dispatchByType implements the type-switch executeJob step of spec.md §4.3.
func (p *Pool) dispatchByType(ctx context.Context, job *domain.Job, q *queue.Queue) (*queue.HandlerResult, error) {
	if h, ok := q.Processor(job.Type); ok {
		return h(ctx, job)
	}
	return nil, fmt.Errorf("no processor registered for job type %q", job.Type)
}
