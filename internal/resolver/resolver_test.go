package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

type fakeJobRepo struct {
	byID map[uuid.UUID]*domain.Job
}

func newFakeJobRepo(jobs ...*domain.Job) *fakeJobRepo {
	r := &fakeJobRepo{byID: map[uuid.UUID]*domain.Job{}}
	for _, j := range jobs {
		r.byID[j.ID] = j
	}
	return r
}

func (r *fakeJobRepo) Create(dbctx.Context, *domain.Job) (*domain.Job, error) { return nil, nil }
func (r *fakeJobRepo) CreateBatch(dbctx.Context, []*domain.Job) ([]*domain.Job, error) {
	return nil, nil
}

func (r *fakeJobRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Job, error) {
	return r.byID[id], nil
}

func (r *fakeJobRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*domain.Job, error) {
	var out []*domain.Job
	for _, id := range ids {
		if j, ok := r.byID[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) List(dbctx.Context, string, int) ([]*domain.Job, error) { return nil, nil }

func (r *fakeJobRepo) ListPendingReady(dbctx.Context, int) ([]*domain.Job, error) {
	var out []*domain.Job
	for _, j := range r.byID {
		if j.Status == domain.JobStatusPending {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListByParent(dbctx.Context, uuid.UUID) ([]*domain.Job, error) { return nil, nil }

func (r *fakeJobRepo) ClaimNextRunnable(dbctx.Context, string, int, time.Duration) (*domain.Job, error) {
	return nil, nil
}

func (r *fakeJobRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}

func (r *fakeJobRepo) UpdateFieldsUnlessStatus(dbctx.Context, uuid.UUID, []string, map[string]interface{}) (bool, error) {
	return false, nil
}

func (r *fakeJobRepo) Heartbeat(dbctx.Context, uuid.UUID, uuid.UUID) error { return nil }

func (r *fakeJobRepo) CountByStatus(dbctx.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func completedJob() *domain.Job {
	return &domain.Job{ID: uuid.New(), Status: domain.JobStatusCompleted}
}

func TestResolverEvaluateReadyWhenAllDepsCompleted(t *testing.T) {
	dep := completedJob()
	r := New(newFakeJobRepo(dep), testLogger(t))

	status, err := r.Evaluate(context.Background(), []uuid.UUID{dep.ID})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !status.Ready {
		t.Fatalf("Evaluate: expected ready, got %+v", status)
	}
}

func TestResolverEvaluateNotReadyWhenDepPending(t *testing.T) {
	dep := &domain.Job{ID: uuid.New(), Status: domain.JobStatusPending}
	r := New(newFakeJobRepo(dep), testLogger(t))

	status, err := r.Evaluate(context.Background(), []uuid.UUID{dep.ID})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if status.Ready {
		t.Fatalf("Evaluate: expected not ready while dependency is pending")
	}
}

func TestResolverEvaluateFailedWhenDepFailed(t *testing.T) {
	dep := &domain.Job{ID: uuid.New(), Status: domain.JobStatusFailed}
	r := New(newFakeJobRepo(dep), testLogger(t))

	status, err := r.Evaluate(context.Background(), []uuid.UUID{dep.ID})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if status.Ready {
		t.Fatalf("Evaluate: expected not ready")
	}
	if len(status.FailedIDs) != 1 || status.FailedIDs[0] != dep.ID {
		t.Fatalf("Evaluate: expected FailedIDs=[%v] got %v", dep.ID, status.FailedIDs)
	}
}

func TestResolverValidateAcyclicRejectsSelfDependency(t *testing.T) {
	r := New(newFakeJobRepo(), testLogger(t))
	id := uuid.New()

	err := r.ValidateAcyclic(context.Background(), id, []uuid.UUID{id})
	if err != ErrCycle {
		t.Fatalf("ValidateAcyclic: expected ErrCycle, got %v", err)
	}
}

func TestResolverValidateAcyclicRejectsTransitiveCycle(t *testing.T) {
	a := uuid.New()
	b := &domain.Job{ID: uuid.New()}
	b.Dependencies = domain.EncodeUUIDArray([]uuid.UUID{a})
	r := New(newFakeJobRepo(b), testLogger(t))

	// a depends on b, and b already depends on a: adding this edge closes a cycle.
	err := r.ValidateAcyclic(context.Background(), a, []uuid.UUID{b.ID})
	if err != ErrCycle {
		t.Fatalf("ValidateAcyclic: expected ErrCycle, got %v", err)
	}
}

func TestResolverReadyAndPropagatedSplitsByDependencyOutcome(t *testing.T) {
	failedDep := &domain.Job{ID: uuid.New(), Status: domain.JobStatusFailed}
	blocked := &domain.Job{ID: uuid.New(), Status: domain.JobStatusPending, Priority: domain.DefaultPriority}
	blocked.Dependencies = domain.EncodeUUIDArray([]uuid.UUID{failedDep.ID})

	ready := &domain.Job{ID: uuid.New(), Status: domain.JobStatusPending, Priority: domain.DefaultPriority}

	r := New(newFakeJobRepo(failedDep, blocked, ready), testLogger(t))

	readyJobs, propagated, err := r.ReadyAndPropagated(context.Background())
	if err != nil {
		t.Fatalf("ReadyAndPropagated: %v", err)
	}
	if len(readyJobs) != 1 || readyJobs[0].ID != ready.ID {
		t.Fatalf("ReadyAndPropagated: expected ready=[%v] got %v", ready.ID, readyJobs)
	}
	if _, ok := propagated[blocked.ID]; !ok {
		t.Fatalf("ReadyAndPropagated: expected %v to be propagated, got %v", blocked.ID, propagated)
	}
}
