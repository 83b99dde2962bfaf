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

func TestToolTaskRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewToolTaskRepo(db, testutil.Logger(t))
	messageID := uuid.New().String()

	task := &domain.ToolTask{
		ID:        uuid.New(),
		MessageID: messageID,
		TaskType:  "send_chat",
		Payload:   datatypes.JSON([]byte(`{"content":"hi"}`)),
		Status:    domain.ToolTaskStatusRunning,
	}
	if _, err := repo.Create(dbc, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.UpdateFields(dbc, task.ID, map[string]interface{}{
		"status": domain.ToolTaskStatusCompleted,
		"result": datatypes.JSON([]byte(`{"ok":true}`)),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	tasks, err := repo.ListByMessage(dbc, messageID)
	if err != nil {
		t.Fatalf("ListByMessage: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Status != domain.ToolTaskStatusCompleted {
		t.Fatalf("ListByMessage: unexpected tasks %+v", tasks)
	}

	entry := &domain.ExecutionLog{
		TaskID:     &task.ID,
		Action:     "send_chat:",
		Input:      task.Payload,
		DurationMs: 12,
	}
	logged, err := repo.AppendLog(dbc, entry)
	if err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	if logged.ID == uuid.Nil || logged.CreatedAt.IsZero() {
		t.Fatalf("AppendLog: expected ID and CreatedAt populated, got %+v", logged)
	}
}
