package tools

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/relaycore/agentcore/internal/dispatcher"
	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/queue"
	"github.com/relaycore/agentcore/internal/toolcall"
)

// jobSummary is the queue_* family's wire shape for a domain.Job; it
// omits internal bookkeeping columns (LockedAt, HeartbeatAt) an agent has
// no use for.
func jobSummary(j *domain.Job) map[string]interface{} {
	out := map[string]interface{}{
		"id":         j.ID.String(),
		"name":       j.Name,
		"type":       j.Type,
		"priority":   j.Priority,
		"status":     j.Status,
		"retryCount": j.RetryCount,
		"createdAt":  j.CreatedAt,
	}
	if j.ParentJobID != nil {
		out["parentJobId"] = j.ParentJobID.String()
	}
	if j.Error != "" {
		out["error"] = j.Error
	}
	return out
}

func parsePayload(params map[string]interface{}) map[string]interface{} {
	payload, _ := params["payload"].(map[string]interface{})
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return payload
}

// parsePriority distinguishes an absent "priority" param from an explicit
// 0, which is the most urgent valid value (spec.md §3/§4.1's high band),
// not an "unset" sentinel.
func parsePriority(params map[string]interface{}) *int {
	v, ok := params["priority"].(float64)
	if !ok {
		return nil
	}
	p := int(v)
	return &p
}

// QueueCreateTool implements queue_create{name, type, priority?, payload?,
// dependencies?}: lets an agent enqueue further work into the same
// scheduler that dispatched it (spec.md §4.5's self-scheduling entry).
type QueueCreateTool struct{ queue *queue.Queue }

func NewQueueCreateTool(q *queue.Queue) *QueueCreateTool { return &QueueCreateTool{queue: q} }

func (t *QueueCreateTool) Name() string { return "queue_create" }

func (t *QueueCreateTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "name"); err != nil {
		return err
	}
	_, err := requireString(params, "type")
	return err
}

func (t *QueueCreateTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	name, _ := call.Parameters["name"].(string)
	jobType, _ := call.Parameters["type"].(string)

	deps, err := parseDependencies(call.Parameters["dependencies"])
	if err != nil {
		return nil, err
	}

	job, err := t.queue.Submit(ctx.Ctx, queue.JobSubmission{
		Name:         name,
		Type:         jobType,
		Priority:     parsePriority(call.Parameters),
		Payload:      parsePayload(call.Parameters),
		Dependencies: deps,
	})
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	return jobSummary(job), nil
}

func parseDependencies(raw interface{}) ([]uuid.UUID, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("validation: dependencies must be job id strings")
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("validation: bad dependency id %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// QueueBatchTool implements queue_batch{jobs: [{name, type, priority?,
// payload?}]}.
type QueueBatchTool struct{ queue *queue.Queue }

func NewQueueBatchTool(q *queue.Queue) *QueueBatchTool { return &QueueBatchTool{queue: q} }

func (t *QueueBatchTool) Name() string { return "queue_batch" }

func (t *QueueBatchTool) Validate(params map[string]interface{}) error {
	jobs, ok := params["jobs"].([]interface{})
	if !ok || len(jobs) == 0 {
		return fmt.Errorf("validation: jobs must be a non-empty array")
	}
	return nil
}

func (t *QueueBatchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	raw, _ := call.Parameters["jobs"].([]interface{})
	subs := make([]queue.JobSubmission, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("validation: each job entry must be an object")
		}
		name, _ := entry["name"].(string)
		jobType, _ := entry["type"].(string)
		if name == "" || jobType == "" {
			return nil, fmt.Errorf("validation: name and type are required for every job")
		}
		subs = append(subs, queue.JobSubmission{
			Name:     name,
			Type:     jobType,
			Priority: parsePriority(entry),
			Payload:  parsePayload(entry),
		})
	}

	jobs, err := t.queue.SubmitBatch(ctx.Ctx, subs)
	out := make([]map[string]interface{}, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobSummary(j))
	}
	if err != nil {
		return map[string]interface{}{"jobs": out}, fmt.Errorf("execution: %w", err)
	}
	return map[string]interface{}{"jobs": out}, nil
}

// QueueListTool implements queue_list{status, limit?}.
type QueueListTool struct{ queue *queue.Queue }

func NewQueueListTool(q *queue.Queue) *QueueListTool { return &QueueListTool{queue: q} }

func (t *QueueListTool) Name() string { return "queue_list" }

func (t *QueueListTool) Validate(params map[string]interface{}) error {
	_, err := requireString(params, "status")
	return err
}

func (t *QueueListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	status, _ := call.Parameters["status"].(string)
	limit, _ := call.Parameters["limit"].(float64)
	if limit <= 0 {
		limit = 20
	}

	jobs, err := t.queue.List(ctx.Ctx, status, int(limit))
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	out := make([]map[string]interface{}, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobSummary(j))
	}
	return map[string]interface{}{"jobs": out}, nil
}

// QueueStartTool implements queue_start{name, steps: [{name, type,
// priority?, payload?}], mode}: submits a composite/workflow job, per
// spec.md §4.4, from inside a running job.
type QueueStartTool struct{ dispatcher *dispatcher.Dispatcher }

func NewQueueStartTool(d *dispatcher.Dispatcher) *QueueStartTool { return &QueueStartTool{dispatcher: d} }

func (t *QueueStartTool) Name() string { return "queue_start" }

func (t *QueueStartTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "name"); err != nil {
		return err
	}
	steps, ok := params["steps"].([]interface{})
	if !ok || len(steps) == 0 {
		return fmt.Errorf("validation: steps must be a non-empty array")
	}
	mode, _ := params["mode"].(string)
	switch mode {
	case domain.ExecutionModeSequential, domain.ExecutionModeParallel:
	default:
		return fmt.Errorf("validation: mode must be %q or %q", domain.ExecutionModeSequential, domain.ExecutionModeParallel)
	}
	return nil
}

func (t *QueueStartTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	name, _ := call.Parameters["name"].(string)
	mode, _ := call.Parameters["mode"].(string)
	rawSteps, _ := call.Parameters["steps"].([]interface{})

	steps := make([]queue.JobSubmission, 0, len(rawSteps))
	for _, item := range rawSteps {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("validation: each step must be an object")
		}
		stepName, _ := entry["name"].(string)
		stepType, _ := entry["type"].(string)
		if stepName == "" || stepType == "" {
			return nil, fmt.Errorf("validation: name and type are required for every step")
		}
		steps = append(steps, queue.JobSubmission{
			Name:     stepName,
			Type:     stepType,
			Priority: parsePriority(entry),
			Payload:  parsePayload(entry),
		})
	}

	parent, children, err := t.dispatcher.SubmitWorkflow(ctx.Ctx, name, steps, mode)
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	childOut := make([]map[string]interface{}, 0, len(children))
	for _, c := range children {
		childOut = append(childOut, jobSummary(c))
	}
	return map[string]interface{}{"parent": jobSummary(parent), "children": childOut}, nil
}
