package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/repos/testutil"
)

func TestJobResultRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobResultRepo(db, testutil.Logger(t))

	jobID := uuid.New()
	inputTokens := 10
	result := &domain.JobResult{
		JobID:       jobID,
		Success:     true,
		Output:      datatypes.JSON([]byte(`{"text":"done"}`)),
		InputTokens: &inputTokens,
		DurationMs:  123,
	}
	if _, err := repo.Create(dbc, result); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByJobID(dbc, jobID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if got == nil || !got.Success || got.DurationMs != 123 {
		t.Fatalf("GetByJobID: unexpected result %+v", got)
	}
}

func TestJobResultRepoGetByJobIDMissingReturnsNil(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobResultRepo(db, testutil.Logger(t))
	got, err := repo.GetByJobID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByJobID: expected nil for an unknown job, got %+v", got)
	}
}
