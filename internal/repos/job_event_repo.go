package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

// JobEventRepo appends to and reads back the job event ledger (SPEC_FULL.md
// §4's supplemented timeline feature).
type JobEventRepo interface {
	Append(dbc dbctx.Context, evt *domain.JobEvent) error
	ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*domain.JobEvent, error)
}

type jobEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobEventRepo(db *gorm.DB, baseLog *logger.Logger) JobEventRepo {
	return &jobEventRepo{db: db, log: baseLog.With("repo", "JobEventRepo")}
}

func (r *jobEventRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *jobEventRepo) Append(dbc dbctx.Context, evt *domain.JobEvent) error {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	return r.tx(dbc).WithContext(dbc.Ctx).Create(evt).Error
}

func (r *jobEventRepo) ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*domain.JobEvent, error) {
	q := r.tx(dbc).WithContext(dbc.Ctx).Where("job_id = ?", jobID).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*domain.JobEvent
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
