package tools

import (
	"fmt"
	"regexp"

	"github.com/relaycore/agentcore/internal/clients/twilio"
	"github.com/relaycore/agentcore/internal/toolcall"
)

// e164Pattern enforces E.164 formatting ahead of the provider call; this
// validation happens in-dispatcher and does not count against provider
// retries (spec.md §4.5).
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

func validateE164(field, v string) error {
	if !e164Pattern.MatchString(v) {
		return fmt.Errorf("validation: %s must be E.164 formatted (e.g. +15551234567)", field)
	}
	return nil
}

// SMSSendTool implements sms_send{to, body}.
type SMSSendTool struct {
	client twilio.Client
}

func NewSMSSendTool(client twilio.Client) *SMSSendTool { return &SMSSendTool{client: client} }

func (t *SMSSendTool) Name() string { return "sms_send" }

func (t *SMSSendTool) Validate(params map[string]interface{}) error {
	to, ok := params["to"].(string)
	if !ok || to == "" {
		return fmt.Errorf("validation: to is required")
	}
	if err := validateE164("to", to); err != nil {
		return err
	}
	body, ok := params["body"].(string)
	if !ok || body == "" {
		return fmt.Errorf("validation: body is required")
	}
	if len(body) > 1600 {
		return fmt.Errorf("validation: body must be at most 1600 characters")
	}
	return nil
}

func (t *SMSSendTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	to, _ := call.Parameters["to"].(string)
	body, _ := call.Parameters["body"].(string)

	msg, err := t.client.SendSMS(ctx.Ctx, to, body)
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	return map[string]interface{}{"sid": msg.SID, "status": msg.Status, "to": msg.To}, nil
}

// SMSListTool implements sms_list{limit?}.
type SMSListTool struct {
	client twilio.Client
}

func NewSMSListTool(client twilio.Client) *SMSListTool { return &SMSListTool{client: client} }

func (t *SMSListTool) Name() string { return "sms_list" }

func (t *SMSListTool) Validate(map[string]interface{}) error { return nil }

func (t *SMSListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	limit := 20
	if v, ok := call.Parameters["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	msgs, err := t.client.ListMessages(ctx.Ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]interface{}{
			"sid": m.SID, "to": m.To, "from": m.From, "status": m.Status, "body": m.Body,
		})
	}
	return map[string]interface{}{"messages": out}, nil
}

// CallMakeTool implements call_make{to, from?, url}.
type CallMakeTool struct {
	client twilio.Client
}

func NewCallMakeTool(client twilio.Client) *CallMakeTool { return &CallMakeTool{client: client} }

func (t *CallMakeTool) Name() string { return "call_make" }

func (t *CallMakeTool) Validate(params map[string]interface{}) error {
	to, ok := params["to"].(string)
	if !ok || to == "" {
		return fmt.Errorf("validation: to is required")
	}
	if err := validateE164("to", to); err != nil {
		return err
	}
	if from, ok := params["from"].(string); ok && from != "" {
		if err := validateE164("from", from); err != nil {
			return err
		}
	}
	callbackURL, ok := params["url"].(string)
	if !ok || callbackURL == "" {
		return fmt.Errorf("validation: url (TwiML source) is required")
	}
	return nil
}

func (t *CallMakeTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	to, _ := call.Parameters["to"].(string)
	from, _ := call.Parameters["from"].(string)
	callbackURL, _ := call.Parameters["url"].(string)

	c, err := t.client.MakeCall(ctx.Ctx, to, from, callbackURL)
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	return map[string]interface{}{"sid": c.SID, "status": c.Status, "to": c.To}, nil
}

// CallListTool implements call_list{limit?}.
type CallListTool struct {
	client twilio.Client
}

func NewCallListTool(client twilio.Client) *CallListTool { return &CallListTool{client: client} }

func (t *CallListTool) Name() string { return "call_list" }

func (t *CallListTool) Validate(map[string]interface{}) error { return nil }

func (t *CallListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	limit := 20
	if v, ok := call.Parameters["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	calls, err := t.client.ListCalls(ctx.Ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(calls))
	for _, c := range calls {
		out = append(out, map[string]interface{}{
			"sid": c.SID, "to": c.To, "from": c.From, "status": c.Status,
		})
	}
	return map[string]interface{}{"calls": out}, nil
}
