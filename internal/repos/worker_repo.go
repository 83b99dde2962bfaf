package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

type WorkerRepo interface {
	Create(dbc dbctx.Context, w *domain.Worker) (*domain.Worker, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Worker, error)
	List(dbc dbctx.Context) ([]*domain.Worker, error)
	ListByStatus(dbc dbctx.Context, status string) ([]*domain.Worker, error)
	CountByStatus(dbc dbctx.Context, status string) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	StaleWorkers(dbc dbctx.Context, unhealthyThreshold time.Duration) ([]*domain.Worker, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type workerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerRepo(db *gorm.DB, baseLog *logger.Logger) WorkerRepo {
	return &workerRepo{db: db, log: baseLog.With("repo", "WorkerRepo")}
}

func (r *workerRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *workerRepo) Create(dbc dbctx.Context, w *domain.Worker) (*domain.Worker, error) {
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

func (r *workerRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Worker, error) {
	var w domain.Worker
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workerRepo) List(dbc dbctx.Context) ([]*domain.Worker, error) {
	var out []*domain.Worker
	if err := r.tx(dbc).WithContext(dbc.Ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workerRepo) ListByStatus(dbc dbctx.Context, status string) ([]*domain.Worker, error) {
	var out []*domain.Worker
	if err := r.tx(dbc).WithContext(dbc.Ctx).Where("status = ?", status).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workerRepo) CountByStatus(dbc dbctx.Context, status string) (int64, error) {
	var count int64
	if err := r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Worker{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *workerRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Worker{}).Where("id = ?", id).Updates(updates).Error
}

func (r *workerRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	now := time.Now()
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.Worker{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_heartbeat": now, "updated_at": now}).Error
}

func (r *workerRepo) StaleWorkers(dbc dbctx.Context, unhealthyThreshold time.Duration) ([]*domain.Worker, error) {
	cutoff := time.Now().Add(-unhealthyThreshold)
	var out []*domain.Worker
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("status <> ?", domain.WorkerStatusOffline).
		Where("last_heartbeat < ?", cutoff).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workerRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Delete(&domain.Worker{}).Error
}
