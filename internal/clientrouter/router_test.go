package clientrouter

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/relaycore/agentcore/internal/platform/logger"
)

// fakeConn captures every frame sent to it and, when autoReply is set,
// synthesizes a matching Response back through the owning Router as soon
// as Send observes the command.
type fakeConn struct {
	mu       sync.Mutex
	sent     [][]byte
	closed   bool
	autoReply func(RemoteCommand) Response
	router   *Router
}

func (c *fakeConn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	c.sent = append(c.sent, payload)
	c.mu.Unlock()

	if c.autoReply == nil {
		return nil
	}
	var cmd RemoteCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	go c.router.HandleCommandResult(c.autoReply(cmd))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func testRouter(t *testing.T) *Router {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return New(log, time.Second)
}

func TestRouterSendCommandRoundTrips(t *testing.T) {
	r := testRouter(t)
	conn := &fakeConn{router: r, autoReply: func(cmd RemoteCommand) Response {
		return Response{ID: cmd.ID, Success: true, Result: map[string]interface{}{"echo": cmd.Type}}
	}}
	if err := r.RegisterAgent("agent-1", conn, nil); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	result, err := r.SendCommand(context.Background(), "ping", map[string]interface{}{}, "agent-1")
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if result["echo"] != "ping" {
		t.Fatalf("SendCommand: expected echo=ping, got %v", result)
	}
}

func TestRouterSendCommandNoAgentConnectedFails(t *testing.T) {
	r := testRouter(t)
	if _, err := r.SendCommand(context.Background(), "ping", nil, ""); err == nil {
		t.Fatalf("SendCommand: expected error with no agent registered")
	}
}

func TestRouterSendCommandUnknownAgentFails(t *testing.T) {
	r := testRouter(t)
	if _, err := r.SendCommand(context.Background(), "ping", nil, "ghost"); err == nil {
		t.Fatalf("SendCommand: expected error for an unregistered agent id")
	}
}

func TestRouterSendCommandDefaultsToAnyOnlineAgent(t *testing.T) {
	r := testRouter(t)
	conn := &fakeConn{router: r, autoReply: func(cmd RemoteCommand) Response {
		return Response{ID: cmd.ID, Success: true, Result: map[string]interface{}{"ok": true}}
	}}
	if err := r.RegisterAgent("agent-1", conn, nil); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	if _, err := r.SendCommand(context.Background(), "ping", nil, ""); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
}

func TestRouterSendCommandPropagatesAgentError(t *testing.T) {
	r := testRouter(t)
	conn := &fakeConn{router: r, autoReply: func(cmd RemoteCommand) Response {
		return Response{ID: cmd.ID, Success: false, Error: "disk full"}
	}}
	if err := r.RegisterAgent("agent-1", conn, nil); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	if _, err := r.SendCommand(context.Background(), "writeFile", nil, "agent-1"); err == nil {
		t.Fatalf("SendCommand: expected the agent's error to propagate")
	}
}

func TestRouterSendCommandTimesOut(t *testing.T) {
	r := New(mustLogger(t), 20*time.Millisecond)
	conn := &fakeConn{router: r} // no autoReply: never resolves
	if err := r.RegisterAgent("agent-1", conn, nil); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	if _, err := r.SendCommand(context.Background(), "ping", nil, "agent-1"); err == nil {
		t.Fatalf("SendCommand: expected a timeout error")
	}
}

func TestRouterUnregisterAgentClosesConnection(t *testing.T) {
	r := testRouter(t)
	conn := &fakeConn{router: r}
	if err := r.RegisterAgent("agent-1", conn, nil); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	r.UnregisterAgent("agent-1")
	if !conn.closed {
		t.Fatalf("UnregisterAgent: expected the connection to be closed")
	}
	if _, err := r.SendCommand(context.Background(), "ping", nil, "agent-1"); err == nil {
		t.Fatalf("SendCommand: expected error after the agent is unregistered")
	}
}

func TestRouterTransportClosedRejectsPendingCalls(t *testing.T) {
	r := testRouter(t)
	conn := &fakeConn{router: r} // no autoReply: caller blocks until TransportClosed fires
	if err := r.RegisterAgent("agent-1", conn, nil); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.SendCommand(context.Background(), "ping", nil, "agent-1")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	r.TransportClosed("agent-1")

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("SendCommand: expected an error once the transport closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("SendCommand: never returned after TransportClosed")
	}
}

func TestRouterHeartbeatUnknownAgentFails(t *testing.T) {
	r := testRouter(t)
	if err := r.Heartbeat("ghost"); err == nil {
		t.Fatalf("Heartbeat: expected error for an unregistered agent")
	}
}

func mustLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}
