package tools

import (
	"context"
	"testing"

	"github.com/relaycore/agentcore/internal/clients/twilio"
	"github.com/relaycore/agentcore/internal/toolcall"
)

type fakeTwilioClient struct {
	sendSMSFn func(ctx context.Context, to, body string) (*twilio.Message, error)
	messages  []twilio.Message
	calls     []twilio.Call
	makeCall  func(ctx context.Context, to, from, callbackURL string) (*twilio.Call, error)
}

func (f *fakeTwilioClient) SendMessage(ctx context.Context, req twilio.SendMessageRequest) (*twilio.Message, error) {
	return nil, nil
}

func (f *fakeTwilioClient) SendSMS(ctx context.Context, to, body string) (*twilio.Message, error) {
	return f.sendSMSFn(ctx, to, body)
}

func (f *fakeTwilioClient) ListMessages(ctx context.Context, limit int) ([]twilio.Message, error) {
	if limit < len(f.messages) {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeTwilioClient) MakeCall(ctx context.Context, to, from, callbackURL string) (*twilio.Call, error) {
	return f.makeCall(ctx, to, from, callbackURL)
}

func (f *fakeTwilioClient) ListCalls(ctx context.Context, limit int) ([]twilio.Call, error) {
	if limit < len(f.calls) {
		return f.calls[:limit], nil
	}
	return f.calls, nil
}

func TestSMSSendToolValidateEnforcesE164AndBodyLength(t *testing.T) {
	tool := NewSMSSendTool(nil)
	if err := tool.Validate(map[string]interface{}{"to": "+15551234567", "body": "hi"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := tool.Validate(map[string]interface{}{"to": "5551234567", "body": "hi"}); err == nil {
		t.Fatalf("Validate: expected error for non-E.164 number")
	}
	if err := tool.Validate(map[string]interface{}{"to": "+15551234567"}); err == nil {
		t.Fatalf("Validate: expected error for missing body")
	}
	longBody := make([]byte, 1601)
	if err := tool.Validate(map[string]interface{}{"to": "+15551234567", "body": string(longBody)}); err == nil {
		t.Fatalf("Validate: expected error for oversized body")
	}
}

func TestSMSSendToolExecuteSendsViaClient(t *testing.T) {
	client := &fakeTwilioClient{sendSMSFn: func(ctx context.Context, to, body string) (*twilio.Message, error) {
		return &twilio.Message{SID: "SM123", Status: "queued", To: to}, nil
	}}
	tool := NewSMSSendTool(client)
	call := toolcall.ToolCall{Type: "sms_send", Parameters: map[string]interface{}{"to": "+15551234567", "body": "hello"}}

	out, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["sid"] != "SM123" || out["status"] != "queued" {
		t.Fatalf("Execute: unexpected result %v", out)
	}
}

func TestSMSListToolExecuteRespectsLimit(t *testing.T) {
	client := &fakeTwilioClient{messages: []twilio.Message{{SID: "a"}, {SID: "b"}, {SID: "c"}}}
	tool := NewSMSListTool(client)
	call := toolcall.ToolCall{Type: "sms_list", Parameters: map[string]interface{}{"limit": float64(2)}}

	out, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	msgs, ok := out["messages"].([]map[string]interface{})
	if !ok || len(msgs) != 2 {
		t.Fatalf("Execute: expected 2 messages, got %v", out["messages"])
	}
}

func TestCallMakeToolValidateEnforcesE164AndURL(t *testing.T) {
	tool := NewCallMakeTool(nil)
	if err := tool.Validate(map[string]interface{}{"to": "+15551234567", "url": "https://example.com/twiml"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := tool.Validate(map[string]interface{}{"to": "+15551234567"}); err == nil {
		t.Fatalf("Validate: expected error for missing url")
	}
	if err := tool.Validate(map[string]interface{}{"to": "+15551234567", "from": "bad", "url": "u"}); err == nil {
		t.Fatalf("Validate: expected error for non-E.164 from")
	}
}

func TestCallMakeToolExecuteSendsViaClient(t *testing.T) {
	client := &fakeTwilioClient{makeCall: func(ctx context.Context, to, from, callbackURL string) (*twilio.Call, error) {
		return &twilio.Call{SID: "CA123", Status: "queued", To: to}, nil
	}}
	tool := NewCallMakeTool(client)
	call := toolcall.ToolCall{Type: "call_make", Parameters: map[string]interface{}{"to": "+15551234567", "url": "https://example.com/twiml"}}

	out, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["sid"] != "CA123" {
		t.Fatalf("Execute: unexpected result %v", out)
	}
}

func TestCallListToolExecuteRespectsDefaultLimit(t *testing.T) {
	client := &fakeTwilioClient{calls: []twilio.Call{{SID: "c1"}}}
	tool := NewCallListTool(client)
	call := toolcall.ToolCall{Type: "call_list", Parameters: map[string]interface{}{}}

	out, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	calls, ok := out["calls"].([]map[string]interface{})
	if !ok || len(calls) != 1 {
		t.Fatalf("Execute: expected 1 call, got %v", out["calls"])
	}
}
