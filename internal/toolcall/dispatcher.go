package toolcall

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/platform/logger"
	"github.com/relaycore/agentcore/internal/repos"
)

// Dispatcher parses and executes one LLM structured reply (spec.md §4.5).
type Dispatcher struct {
	registry *Registry
	tasks    repos.ToolTaskRepo
	log      *logger.Logger
}

func New(registry *Registry, tasks repos.ToolTaskRepo, baseLog *logger.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, tasks: tasks, log: baseLog.With("component", "toolcall")}
}

// stripJSONFence removes a leading/trailing triple-backtick fence, with or
// without a "json" language tag, per spec.md §4.5 parsing rules.
func stripJSONFence(body string) string {
	s := strings.TrimSpace(body)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Dispatch parses reply, validates and executes each tool call in order,
// and aggregates the result per spec.md §4.5.
func (d *Dispatcher) Dispatch(tc Context, reply string) *DispatchResult {
	started := time.Now()
	body := stripJSONFence(reply)

	var parsed structuredReply
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return &DispatchResult{
			Success:       false,
			ChatContent:   "Failed to parse structured response",
			Errors:        []string{err.Error()},
			ExecutionTime: time.Since(started).Milliseconds(),
		}
	}

	if len(parsed.ToolCalls) == 0 {
		return &DispatchResult{Success: true, ExecutionTime: time.Since(started).Milliseconds()}
	}

	result := &DispatchResult{Success: true}
	var chatParts []string

	for _, call := range parsed.ToolCalls {
		tr := d.dispatchOne(tc, call)
		result.ToolResults = append(result.ToolResults, tr)
		if !tr.Success {
			result.Success = false
			result.Errors = append(result.Errors, tr.ToolID+": "+tr.Error)
			continue
		}
		switch call.Type {
		case "send_chat":
			if content, ok := tr.Result["content"].(string); ok {
				chatParts = append(chatParts, content)
			}
		case "file_put":
			if path, ok := tr.Result["path"].(string); ok {
				if created, _ := tr.Result["created"].(bool); created {
					result.FilesCreated = append(result.FilesCreated, path)
				} else {
					result.FilesModified = append(result.FilesModified, path)
				}
			}
		}
	}

	result.ChatContent = strings.Join(chatParts, "\n\n")
	result.ExecutionTime = time.Since(started).Milliseconds()
	return result
}

// dispatchOne validates and executes a single call, persisting a ToolTask
// row and appending an ExecutionLog entry for audit, per spec.md §4.5's
// running -> {completed|failed} state machine.
func (d *Dispatcher) dispatchOne(tc Context, call ToolCall) ToolResult {
	started := time.Now()

	paramsRaw, _ := json.Marshal(call.Parameters)
	task := &domain.ToolTask{
		ID:        uuid.New(),
		TaskType:  call.Type,
		Payload:   datatypes.JSON(paramsRaw),
		Status:    domain.ToolTaskStatusRunning,
		CreatedAt: started,
	}
	task.MessageID = tc.JobID
	if d.tasks != nil {
		_, _ = d.tasks.Create(dbctx.Context{Ctx: tc.Ctx}, task)
	}

	tool, ok := d.registry.Get(call.Type)
	if !ok {
		return d.finish(tc, task, call, started, nil, "unknown tool type: "+call.Type)
	}
	if err := tool.Validate(call.Parameters); err != nil {
		return d.finish(tc, task, call, started, nil, err.Error())
	}

	out, err := tool.Execute(tc, call)
	if err != nil {
		return d.finish(tc, task, call, started, out, err.Error())
	}
	return d.finish(tc, task, call, started, out, "")
}

func (d *Dispatcher) finish(tc Context, task *domain.ToolTask, call ToolCall, started time.Time, out map[string]interface{}, errMsg string) ToolResult {
	duration := time.Since(started).Milliseconds()
	if d.tasks != nil {
		resultRaw, _ := json.Marshal(out)
		updates := map[string]interface{}{
			"executed_at": started,
		}
		if errMsg == "" {
			updates["status"] = domain.ToolTaskStatusCompleted
			updates["result"] = datatypes.JSON(resultRaw)
		} else {
			updates["status"] = domain.ToolTaskStatusFailed
			updates["error"] = errMsg
		}
		_ = d.tasks.UpdateFields(dbctx.Context{Ctx: tc.Ctx}, task.ID, updates)
		_, _ = d.tasks.AppendLog(dbctx.Context{Ctx: tc.Ctx}, &domain.ExecutionLog{
			TaskID:     &task.ID,
			Action:     call.Type + ":" + call.Operation,
			Input:      task.Payload,
			DurationMs: duration,
		})
	}
	return ToolResult{
		ToolID:   call.ID,
		Type:     call.Type,
		Success:  errMsg == "",
		Result:   out,
		Error:    errMsg,
		Duration: duration,
	}
}
