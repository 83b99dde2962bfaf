// Package jobtypes binds the four job types of spec.md §4.1 (prompt, tool,
// composite, workflow) to concrete queue.Handler closures over the
// Generator and Tool-Call Dispatcher. This is the dispatch-table role the
// teacher's internal/jobs/runtime.Registry plays for its pipeline handlers,
// narrowed to the four fixed behaviors spec.md §4.3 names instead of an
// open set of per-feature pipelines.
package jobtypes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaycore/agentcore/internal/domain"
	"github.com/relaycore/agentcore/internal/generator"
	"github.com/relaycore/agentcore/internal/platform/dbctx"
	"github.com/relaycore/agentcore/internal/queue"
	"github.com/relaycore/agentcore/internal/repos"
	"github.com/relaycore/agentcore/internal/toolcall"
)

// Register binds all four handlers onto q.
func Register(q *queue.Queue, gen generator.Generator, dispatch *toolcall.Dispatcher, jobs repos.JobRepo) {
	q.RegisterProcessor(domain.JobTypePrompt, PromptHandler(gen))
	q.RegisterProcessor(domain.JobTypeTool, ToolHandler(gen, dispatch))
	compositeHandler := CompositeHandler(jobs)
	q.RegisterProcessor(domain.JobTypeComposite, compositeHandler)
	q.RegisterProcessor(domain.JobTypeWorkflow, compositeHandler)
}

func payloadOf(job *domain.Job) map[string]interface{} {
	out := map[string]interface{}{}
	if len(job.Payload) == 0 {
		return out
	}
	_ = json.Unmarshal(job.Payload, &out)
	return out
}

func stringField(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

// PromptHandler implements spec.md §4.3's "prompt → invoke
// Generator.generate({systemPrompt?, prompt}); the text reply becomes
// output" step, unadorned by any tool-call parsing.
func PromptHandler(gen generator.Generator) queue.Handler {
	return func(ctx context.Context, job *domain.Job) (*queue.HandlerResult, error) {
		payload := payloadOf(job)
		prompt := stringField(payload, "prompt")
		if prompt == "" {
			return nil, fmt.Errorf("prompt job %s: payload.prompt is required", job.ID)
		}

		resp, err := gen.Generate(ctx, generator.Request{
			SystemPrompt: stringField(payload, "systemPrompt"),
			Prompt:       prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("prompt job %s: generate: %w", job.ID, err)
		}

		out, err := json.Marshal(map[string]interface{}{"text": resp.Text})
		if err != nil {
			return nil, err
		}
		return &queue.HandlerResult{Output: out, InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}, nil
	}
}

// toolCallDemandPrompt renders the structured-reply contract of spec.md
// §4.5 as an instruction, so a generic Generator (human-language in,
// human-language out) can still be driven to emit one deterministic tool
// call for the named tool and arguments.
func toolCallDemandPrompt(toolName string, parameters map[string]interface{}) string {
	paramsJSON, _ := json.Marshal(parameters)
	var b strings.Builder
	b.WriteString("Respond with exactly one JSON object of the form ")
	b.WriteString(`{"toolCalls":[{"id":"t1","type":"`)
	b.WriteString(toolName)
	b.WriteString(`","parameters":<parameters>}]}`)
	b.WriteString(". Use these parameters verbatim: ")
	b.Write(paramsJSON)
	b.WriteString(". Emit nothing else, no prose, no code fence.")
	return b.String()
}

// ToolHandler implements spec.md §4.3's "tool → build a structured prompt
// asking the Generator to perform a named tool call with given args,
// demanding JSON output; parse; return parsed" step: it drives one
// Generator round trip, then hands the reply to the Tool-Call Dispatcher
// (spec.md §4.5) exactly as a chat-originated reply would be.
func ToolHandler(gen generator.Generator, dispatch *toolcall.Dispatcher) queue.Handler {
	return func(ctx context.Context, job *domain.Job) (*queue.HandlerResult, error) {
		payload := payloadOf(job)
		toolName := stringField(payload, "toolName")
		if toolName == "" {
			return nil, fmt.Errorf("tool job %s: payload.toolName is required", job.ID)
		}
		parameters, _ := payload["parameters"].(map[string]interface{})

		resp, err := gen.Generate(ctx, generator.Request{
			SystemPrompt: stringField(payload, "systemPrompt"),
			Prompt:       toolCallDemandPrompt(toolName, parameters),
		})
		if err != nil {
			return nil, fmt.Errorf("tool job %s: generate: %w", job.ID, err)
		}

		agentID := stringField(payload, "agentId")
		tc := toolcall.Context{Ctx: ctx, JobID: job.ID.String(), AgentID: agentID}
		result := dispatch.Dispatch(tc, resp.Text)

		out, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		handlerResult := &queue.HandlerResult{Output: out, InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}
		if !result.Success {
			return handlerResult, fmt.Errorf("tool job %s: %s", job.ID, strings.Join(result.Errors, "; "))
		}
		return handlerResult, nil
	}
}

// CompositeHandler implements spec.md §4.3's composite evaluation: it
// never calls the Generator itself, only inspects children.
func CompositeHandler(jobs repos.JobRepo) queue.Handler {
	return func(ctx context.Context, job *domain.Job) (*queue.HandlerResult, error) {
		children, err := jobs.ListByParent(dbctx.Context{Ctx: ctx}, job.ID)
		if err != nil {
			return nil, fmt.Errorf("composite job %s: list children: %w", job.ID, err)
		}

		completed := 0
		for _, child := range children {
			switch child.Status {
			case domain.JobStatusFailed, domain.JobStatusCancelled:
				return nil, fmt.Errorf("composite job %s: child %s %s", job.ID, child.ID, child.Status)
			case domain.JobStatusCompleted:
				completed++
			}
		}
		if completed < len(children) {
			return nil, queue.ErrJobWaiting
		}

		out, err := json.Marshal(map[string]interface{}{
			"childCount":     len(children),
			"completedCount": completed,
		})
		if err != nil {
			return nil, err
		}
		return &queue.HandlerResult{Output: out}, nil
	}
}
