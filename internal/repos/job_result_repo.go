package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

// JobResultRepo writes the immutable terminal record of a Job. Rows are
// created once, at the job's terminal transition, and never updated.
type JobResultRepo interface {
	Create(dbc dbctx.Context, result *domain.JobResult) (*domain.JobResult, error)
	GetByJobID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobResult, error)
}

type jobResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobResultRepo(db *gorm.DB, baseLog *logger.Logger) JobResultRepo {
	return &jobResultRepo{db: db, log: baseLog.With("repo", "JobResultRepo")}
}

func (r *jobResultRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *jobResultRepo) Create(dbc dbctx.Context, result *domain.JobResult) (*domain.JobResult, error) {
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *jobResultRepo) GetByJobID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobResult, error) {
	var out domain.JobResult
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("job_id = ?", jobID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
