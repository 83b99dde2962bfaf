package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

// ToolTaskRepo persists the per-call trace a ToolCallDispatcher leaves
// behind, plus the ExecutionLog audit entries tied to it.
type ToolTaskRepo interface {
	Create(dbc dbctx.Context, t *domain.ToolTask) (*domain.ToolTask, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListByMessage(dbc dbctx.Context, messageID string) ([]*domain.ToolTask, error)
	AppendLog(dbc dbctx.Context, entry *domain.ExecutionLog) (*domain.ExecutionLog, error)
}

type toolTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewToolTaskRepo(db *gorm.DB, baseLog *logger.Logger) ToolTaskRepo {
	return &toolTaskRepo{db: db, log: baseLog.With("repo", "ToolTaskRepo")}
}

func (r *toolTaskRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *toolTaskRepo) Create(dbc dbctx.Context, t *domain.ToolTask) (*domain.ToolTask, error) {
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *toolTaskRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	return r.tx(dbc).WithContext(dbc.Ctx).Model(&domain.ToolTask{}).Where("id = ?", id).Updates(updates).Error
}

func (r *toolTaskRepo) ListByMessage(dbc dbctx.Context, messageID string) ([]*domain.ToolTask, error) {
	var out []*domain.ToolTask
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *toolTaskRepo) AppendLog(dbc dbctx.Context, entry *domain.ExecutionLog) (*domain.ExecutionLog, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}
