package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

// JobRepo is the durable store behind the Job Queue. ClaimNextRunnable is
// the single atomic operation the rest of the scheduler depends on for
// property 2 (single-claim): it folds fresh claims, due retries, and
// stale-worker reclaim into one SELECT ... FOR UPDATE SKIP LOCKED
// transaction, the same shape as the teacher's JobRunRepo.ClaimNextRunnable.
type JobRepo interface {
	Create(dbc dbctx.Context, job *domain.Job) (*domain.Job, error)
	CreateBatch(dbc dbctx.Context, jobs []*domain.Job) ([]*domain.Job, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Job, error)
	List(dbc dbctx.Context, status string, limit int) ([]*domain.Job, error)
	ListPendingReady(dbc dbctx.Context, limit int) ([]*domain.Job, error)
	ListByParent(dbc dbctx.Context, parentID uuid.UUID) ([]*domain.Job, error)
	ClaimNextRunnable(dbc dbctx.Context, band string, maxAttempts int, staleRunning time.Duration) (*domain.Job, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID, workerID uuid.UUID) error
	CountByStatus(dbc dbctx.Context, status string, since time.Time) (int64, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "JobRepo")}
}

func (r *jobRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *jobRepo) Create(dbc dbctx.Context, job *domain.Job) (*domain.Job, error) {
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) CreateBatch(dbc dbctx.Context, jobs []*domain.Job) ([]*domain.Job, error) {
	if len(jobs) == 0 {
		return []*domain.Job{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Job, error) {
	var out []*domain.Job
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) List(dbc dbctx.Context, status string, limit int) ([]*domain.Job, error) {
	q := r.tx(dbc).WithContext(dbc.Ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*domain.Job
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListPendingReady returns pending jobs for the resolver to evaluate for
// readiness/failure-propagation; it does not itself decide readiness.
func (r *jobRepo) ListPendingReady(dbc dbctx.Context, limit int) ([]*domain.Job, error) {
	q := r.tx(dbc).WithContext(dbc.Ctx).
		Where("status = ?", domain.JobStatusPending).
		Where("scheduled_for IS NULL OR scheduled_for <= ?", time.Now()).
		Order("priority ASC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*domain.Job
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByParent returns a composite/workflow parent's children, for the
// Worker Pool's composite evaluation step (spec.md §4.3).
func (r *jobRepo) ListByParent(dbc dbctx.Context, parentID uuid.UUID) ([]*domain.Job, error) {
	var out []*domain.Job
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("parent_job_id = ?", parentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func bandPriorityBounds(band string) (low, high int, ok bool) {
	switch band {
	case domain.PriorityBandHigh:
		return -1 << 31, 2, true
	case domain.PriorityBandNormal:
		return 3, 5, true
	case domain.PriorityBandLow:
		return 6, 1<<31 - 1, true
	default:
		return 0, 0, false
	}
}

func (r *jobRepo) ClaimNextRunnable(dbc dbctx.Context, band string, maxAttempts int, staleRunning time.Duration) (*domain.Job, error) {
	transaction := r.tx(dbc)
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)

	low, high, hasBand := bandPriorityBounds(band)

	var claimed *domain.Job
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job domain.Job
		// A job is runnable here if it is freshly queued, or if it was left
		// running by a worker that has gone stale (missed heartbeat) and
		// still has retries left. This is the defense-in-depth reclaim
		// described in SPEC_FULL.md §4: it sits underneath (not instead of)
		// the Worker Pool's own health check, so property 2 (single-claim)
		// holds even for crashes the pool hasn't noticed yet.
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
            AND retry_count < ?
          )
        )
      `, domain.JobStatusQueued, domain.JobStatusRunning, staleCutoff, maxAttempts)
		if hasBand {
			q = q.Where("priority BETWEEN ? AND ?", low, high)
		}
		qErr := q.Order("priority ASC, created_at ASC").First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		updates := map[string]interface{}{
			"status":       domain.JobStatusRunning,
			"started_at":   now,
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		}
		wasReclaim := job.Status == domain.JobStatusRunning
		if wasReclaim {
			updates["retry_count"] = gorm.Expr("retry_count + 1")
		}
		uErr := txx.Model(&domain.Job{}).Where("id = ?", job.ID).Updates(updates).Error
		if uErr != nil {
			return uErr
		}
		job.Status = domain.JobStatusRunning
		job.StartedAt = &now
		job.LockedAt = &now
		job.HeartbeatAt = &now
		if wasReclaim {
			job.RetryCount++
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Job{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateFieldsUnlessStatus guards against clobbering a job a caller has
// already moved to one of disallowed (typically {"cancelled"}), the same
// discipline as the teacher's UpdateFieldsUnlessStatus.
func (r *jobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	q := r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Job{}).Where("id = ?", id)
	if len(disallowed) == 1 {
		q = q.Where("status <> ?", disallowed[0])
	} else if len(disallowed) > 1 {
		q = q.Where("status NOT IN ?", disallowed)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID, workerID uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, domain.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"worker_id":    workerID,
			"updated_at":   now,
		}).Error
}

func (r *jobRepo) CountByStatus(dbc dbctx.Context, status string, since time.Time) (int64, error) {
	q := r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Job{}).Where("status = ?", status)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
