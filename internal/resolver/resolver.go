// Package resolver computes dependency-graph readiness, propagates
// dependency failures, and rejects submissions that would close a cycle.
// Grounded on internal/jobs/orchestrator/dag.go's validateDAG/depsSatisfied/
// depsFailed (teacher), generalized from the teacher's fixed child-job DAG
// to an open dependency graph addressed by Job.Dependencies.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
	"github.com/relaycore/agentcore/internal/repos"
)

// ErrCycle is returned when a submission would close a dependency cycle.
// The Job Queue surfaces this verbatim as the CYCLE validation error from
// spec.md §7.
var ErrCycle = fmt.Errorf("CYCLE")

type Resolver struct {
	jobs repos.JobRepo
	log  *logger.Logger
}

func New(jobs repos.JobRepo, baseLog *logger.Logger) *Resolver {
	return &Resolver{jobs: jobs, log: baseLog.With("component", "resolver")}
}

// ValidateAcyclic walks the transitive predecessors of each proposed
// dependency and rejects the submission only if jobID itself appears in
// that walk — i.e. adding this job would close a cycle. A predecessor
// reached along more than one path (a diamond) is walked once and is not
// a cycle.
func (r *Resolver) ValidateAcyclic(ctx context.Context, jobID uuid.UUID, deps []uuid.UUID) error {
	seen := map[uuid.UUID]bool{jobID: true}
	var walk func(id uuid.UUID) error
	walk = func(id uuid.UUID) error {
		job, err := r.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}
		depIDs, err := job.DependencyIDs()
		if err != nil {
			return err
		}
		for _, d := range depIDs {
			if d == jobID {
				return ErrCycle
			}
			if seen[d] {
				continue
			}
			seen[d] = true
			if err := walk(d); err != nil {
				return err
			}
		}
		return nil
	}
	for _, d := range deps {
		if d == jobID {
			return ErrCycle
		}
		if err := walk(d); err != nil {
			return err
		}
	}
	return nil
}

// DependencyStatus is the resolved state of a job's dependency set.
type DependencyStatus struct {
	Ready      bool
	FailedIDs  []uuid.UUID
	MissingIDs []uuid.UUID
}

// Evaluate reports whether a job with the given dependency ids is ready
// (every dependency completed), or has a failed/cancelled dependency
// (permanently blocked), per spec.md §4.2.
func (r *Resolver) Evaluate(ctx context.Context, deps []uuid.UUID) (DependencyStatus, error) {
	if len(deps) == 0 {
		return DependencyStatus{Ready: true}, nil
	}
	depJobs, err := r.jobs.GetByIDs(dbctx.Context{Ctx: ctx}, deps)
	if err != nil {
		return DependencyStatus{}, err
	}
	byID := make(map[uuid.UUID]*domain.Job, len(depJobs))
	for _, j := range depJobs {
		byID[j.ID] = j
	}

	var status DependencyStatus
	allCompleted := true
	for _, id := range deps {
		j, ok := byID[id]
		if !ok {
			status.MissingIDs = append(status.MissingIDs, id)
			allCompleted = false
			continue
		}
		switch j.Status {
		case domain.JobStatusCompleted:
			// satisfied
		case domain.JobStatusFailed, domain.JobStatusCancelled:
			status.FailedIDs = append(status.FailedIDs, id)
			allCompleted = false
		default:
			allCompleted = false
		}
	}
	status.Ready = allCompleted && len(status.FailedIDs) == 0 && len(status.MissingIDs) == 0
	return status, nil
}

// ReadyAndPropagated scans every pending job and splits it into jobs that
// are now ready to enqueue and jobs whose dependency has failed/cancelled
// (to be transitioned to failed with a propagated error). Both outcomes are
// computed in the same pass so a job is never concurrently ready and
// propagated (spec.md §4.2).
func (r *Resolver) ReadyAndPropagated(ctx context.Context) (ready []*domain.Job, propagated map[uuid.UUID]string, err error) {
	pending, err := r.jobs.ListPendingReady(dbctx.Context{Ctx: ctx}, 0)
	if err != nil {
		return nil, nil, err
	}
	propagated = map[uuid.UUID]string{}
	for _, job := range pending {
		deps, derr := job.DependencyIDs()
		if derr != nil {
			return nil, nil, derr
		}
		status, everr := r.Evaluate(ctx, deps)
		if everr != nil {
			return nil, nil, everr
		}
		if len(status.FailedIDs) > 0 {
			propagated[job.ID] = fmt.Sprintf("dependency failed: %s", joinUUIDs(status.FailedIDs))
			continue
		}
		if status.Ready {
			ready = append(ready, job)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})
	return ready, propagated, nil
}

// GetDependencyChain returns the transitive predecessors of a job.
func (r *Resolver) GetDependencyChain(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	visited := map[uuid.UUID]bool{}
	var out []uuid.UUID
	var walk func(id uuid.UUID) error
	walk = func(id uuid.UUID) error {
		job, err := r.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
		if err != nil || job == nil {
			return err
		}
		deps, err := job.DependencyIDs()
		if err != nil {
			return err
		}
		for _, d := range deps {
			if visited[d] {
				continue
			}
			visited[d] = true
			out = append(out, d)
			if err := walk(d); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(jobID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDependents returns the direct successors of a job: pending jobs whose
// Dependencies set names it.
func (r *Resolver) GetDependents(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	pending, err := r.jobs.ListPendingReady(dbctx.Context{Ctx: ctx}, 0)
	if err != nil {
		return nil, err
	}
	var out []uuid.UUID
	for _, job := range pending {
		deps, err := job.DependencyIDs()
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			if d == jobID {
				out = append(out, job.ID)
				break
			}
		}
	}
	return out, nil
}

func joinUUIDs(ids []uuid.UUID) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id.String()
	}
	return out
}
