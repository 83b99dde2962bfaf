// Package dispatcher implements the Job Dispatcher: the control loop that
// binds Resolver -> Pool -> Queue, per spec.md §4.4. Grounded on the
// teacher's internal/jobs/service.go dispatch tick and
// internal/jobs/worker.go's claim-and-execute cycle.
package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/logger"
	"github.com/relaycore/agentcore/internal/pool"
	"github.com/relaycore/agentcore/internal/queue"
	"github.com/relaycore/agentcore/internal/resolver"
)

type Config struct {
	DispatchInterval time.Duration
	StaleMaxAttempts int
	StaleRunning     time.Duration
	RetryDelay       time.Duration
	// LowBandDrainEveryN forces one low-band claim attempt every Nth tick
	// regardless of whether high/normal bands are empty, so the low band is
	// never starved indefinitely (spec.md §8 property 6, Open Question 4).
	LowBandDrainEveryN int
}

// Dispatcher is the single long-lived control loop described in spec.md
// §4.4 and §5: it fans job execution out onto independent worker
// goroutines; workers share no mutable state, only the durable queue.
type Dispatcher struct {
	cfg      Config
	queue    *queue.Queue
	resolver *resolver.Resolver
	pool     *pool.Pool
	log      *logger.Logger

	tick int64

	// inFlight joins every goroutine started by drainBand so Run can wait
	// for them to finish on shutdown instead of abandoning them mid-job.
	inFlight errgroup.Group
}

func New(cfg Config, q *queue.Queue, res *resolver.Resolver, p *pool.Pool, baseLog *logger.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		queue:    q,
		resolver: res,
		pool:     p,
		log:      baseLog.With("component", "dispatcher"),
	}
}

// Run blocks, ticking every cfg.DispatchInterval, until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.DispatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = d.inFlight.Wait()
			return nil
		case <-ticker.C:
			d.tick++
			if err := d.runTick(ctx); err != nil {
				d.log.Warn("dispatch tick failed", "error", err)
			}
		}
	}
}

// runTick implements the six-step loop of spec.md §4.4.
func (d *Dispatcher) runTick(ctx context.Context) error {
	ready, propagated, err := d.resolver.ReadyAndPropagated(ctx)
	if err != nil {
		return err
	}

	// Step 2: propagate dependency failures before touching readiness, so a
	// job is never concurrently "ready" and "propagated" (spec.md §4.2).
	for jobID, reason := range propagated {
		if err := d.queue.PropagateFailure(ctx, jobID, reason); err != nil {
			d.log.Warn("propagate failure failed", "job_id", jobID, "error", err)
		}
	}

	// Step 3: ready is already sorted (priority asc, createdAt asc) by the
	// resolver. Admit each into its priority band.
	for _, job := range ready {
		if err := d.queue.Enqueue(ctx, job); err != nil {
			d.log.Warn("enqueue failed", "job_id", job.ID, "error", err)
		}
	}

	forceLowBand := d.cfg.LowBandDrainEveryN > 0 && d.tick%int64(d.cfg.LowBandDrainEveryN) == 0
	bands := []string{domain.PriorityBandHigh, domain.PriorityBandNormal, domain.PriorityBandLow}
	if forceLowBand {
		bands = []string{domain.PriorityBandLow, domain.PriorityBandHigh, domain.PriorityBandNormal}
	}

	for _, band := range bands {
		d.drainBand(ctx, band)
	}
	return nil
}

// drainBand claims and dispatches as many runnable jobs in one band as
// there are idle workers for, scaling up once if the pool is exhausted,
// and otherwise deferring remaining work to the next tick (spec.md §4.4
// step 4, §7 error kind 4).
func (d *Dispatcher) drainBand(ctx context.Context, band string) {
	for {
		job, err := d.queue.ClaimNext(ctx, band, d.cfg.StaleMaxAttempts, d.cfg.StaleRunning)
		if err != nil {
			d.log.Warn("claim failed", "band", band, "error", err)
			return
		}
		if job == nil {
			return
		}

		worker, err := d.pool.AcquireIdle(ctx)
		if err != nil {
			d.log.Warn("acquire idle failed", "error", err)
			return
		}
		if worker == nil {
			if scaled, scaleErr := d.pool.ScaleUp(ctx); scaleErr == nil && scaled {
				worker, err = d.pool.AcquireIdle(ctx)
			}
			if err != nil || worker == nil {
				// No idle worker even after scaleUp: put the claimed job back
				// to queued so a later tick claims it again.
				if reErr := d.queue.Enqueue(ctx, job); reErr != nil {
					d.log.Warn("requeue unassigned job failed", "job_id", job.ID, "error", reErr)
				}
				return
			}
		}

		d.inFlight.Go(func() error {
			d.execute(ctx, worker.ID, job)
			return nil
		})
	}
}

// execute runs one claimed job on its assigned worker and records the
// outcome. It is invoked asynchronously per job so a slow job never blocks
// the dispatch loop (spec.md §4.4 step 5).
func (d *Dispatcher) execute(ctx context.Context, workerID uuid.UUID, job *domain.Job) {
	worker := &domain.Worker{ID: workerID}
	started := time.Now()
	result, err := d.pool.ExecuteJob(ctx, worker, job, d.queue)
	durationMs := time.Since(started).Milliseconds()

	if errors.Is(err, queue.ErrJobWaiting) {
		if reErr := d.queue.Enqueue(ctx, job); reErr != nil {
			d.log.Warn("requeue waiting composite failed", "job_id", job.ID, "error", reErr)
		}
		return
	}
	if err != nil {
		if failErr := d.queue.Fail(ctx, job, err, durationMs, d.cfg.RetryDelay); failErr != nil {
			d.log.Warn("fail transition failed", "job_id", job.ID, "error", failErr)
		}
		return
	}
	if completeErr := d.queue.Complete(ctx, job, queue.HandlerResult{
		Output:       result.Output,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
	}, durationMs); completeErr != nil {
		d.log.Warn("complete transition failed", "job_id", job.ID, "error", completeErr)
	}
}

// SubmitWorkflow creates a composite parent and its children, wiring
// inter-step dependencies according to mode (spec.md §4.4).
func (d *Dispatcher) SubmitWorkflow(ctx context.Context, name string, steps []queue.JobSubmission, mode string) (*domain.Job, []*domain.Job, error) {
	parent, err := d.queue.Submit(ctx, queue.JobSubmission{
		Name:          name,
		Type:          domain.JobTypeComposite,
		ExecutionMode: mode,
		Payload:       map[string]interface{}{"childCount": len(steps)},
	})
	if err != nil {
		return nil, nil, err
	}

	children := make([]*domain.Job, 0, len(steps))
	var prev *domain.Job
	for _, step := range steps {
		step.ParentJobID = &parent.ID
		if mode == domain.ExecutionModeSequential && prev != nil {
			step.Dependencies = append(append([]uuid.UUID{}, step.Dependencies...), prev.ID)
		}
		child, err := d.queue.Submit(ctx, step)
		if err != nil {
			return parent, children, err
		}
		children = append(children, child)
		prev = child
	}
	return parent, children, nil
}
