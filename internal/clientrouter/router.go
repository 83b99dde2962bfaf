// Package clientrouter implements the Client Router (spec.md §4.7): a
// multiplexed request/response layer over a persistent bidirectional
// connection to an external desktop-agent process. Grounded on the
// teacher's internal/realtime/bus correlation pattern (Bus.Publish +
// StartForwarder), generalized from fire-and-forget SSE fan-out to an
// awaited round-trip keyed by command id.
package clientrouter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/relaycore/agentcore/internal/platform/logger"
)

// Connection is the transport a registered agent communicates over; the
// router never touches sockets directly, only this narrow send contract.
type Connection interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
)

type Agent struct {
	ID            string
	Capabilities  []string
	Status        AgentStatus
	LastHeartbeat time.Time
	conn          Connection
	breaker       *gobreaker.CircuitBreaker
}

// RemoteCommand is the transient request frame sent to an agent
// (spec.md §3); Response is its matching reply frame.
type RemoteCommand struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type Response struct {
	ID      string                 `json:"id"`
	Success bool                   `json:"success"`
	Result  map[string]interface{} `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type pendingCall struct {
	resultCh chan Response
}

// Router owns the agent registry and the pending-command table. One
// process-wide instance; access to both maps is mutex-serialized, matching
// spec.md §5's "pending-commands table is in-process" shared-resource note.
type Router struct {
	log *logger.Logger

	mu     sync.RWMutex
	agents map[string]*Agent

	pendingMu sync.Mutex
	pending   map[string]*pendingCall

	defaultTimeout time.Duration
}

func New(log *logger.Logger, defaultTimeout time.Duration) *Router {
	if defaultTimeout <= 0 {
		defaultTimeout = 60 * time.Second
	}
	return &Router{
		log:            log.With("service", "ClientRouter"),
		agents:         make(map[string]*Agent),
		pending:        make(map[string]*pendingCall),
		defaultTimeout: defaultTimeout,
	}
}

// RegisterAgent records a live agent and its transport connection. A
// per-agent circuit breaker guards against a wedged link flooding
// sendCommand with doomed round-trips (grounded on jordigilh-kubernaut's
// gobreaker usage around an external call).
func (r *Router) RegisterAgent(agentID string, conn Connection, capabilities []string) error {
	if agentID == "" {
		return fmt.Errorf("clientrouter: agentId required")
	}
	if conn == nil {
		return fmt.Errorf("clientrouter: connection required")
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "agent:" + agentID,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentID] = &Agent{
		ID:            agentID,
		Capabilities:  capabilities,
		Status:        AgentOnline,
		LastHeartbeat: time.Now(),
		conn:          conn,
		breaker:       cb,
	}
	r.log.Info("agent registered", "agentId", agentID, "capabilities", capabilities)
	return nil
}

// UnregisterAgent removes the agent from the registry and closes its
// connection. Calls still pending against it are not rejected here; each
// resolves through HandleCommandResult, its context, or its timeout.
func (r *Router) UnregisterAgent(agentID string) {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if ok {
		delete(r.agents, agentID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	_ = agent.conn.Close()
	r.log.Info("agent unregistered", "agentId", agentID)
}

func (r *Router) Heartbeat(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return fmt.Errorf("clientrouter: unknown agent %q", agentID)
	}
	agent.LastHeartbeat = time.Now()
	agent.Status = AgentOnline
	return nil
}

func (r *Router) agentFor(agentID string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if agentID == "" {
		for _, a := range r.agents {
			if a.Status == AgentOnline {
				return a, nil
			}
		}
		return nil, fmt.Errorf("clientrouter: no agent connected")
	}
	agent, ok := r.agents[agentID]
	if !ok || agent.Status != AgentOnline {
		return nil, fmt.Errorf("clientrouter: agent %q is not connected", agentID)
	}
	return agent, nil
}

// SendCommand assigns a unique id, transmits the command, and blocks until
// either HandleCommandResult resolves it, ctx is cancelled, or the
// per-command timeout (default 60s, spec.md §5) elapses.
func (r *Router) SendCommand(ctx context.Context, cmdType string, payload map[string]interface{}, agentID string) (map[string]interface{}, error) {
	agent, err := r.agentFor(agentID)
	if err != nil {
		return nil, err
	}

	cmd := RemoteCommand{ID: uuid.NewString(), Type: cmdType, Payload: payload}

	call := &pendingCall{resultCh: make(chan Response, 1)}
	r.pendingMu.Lock()
	r.pending[cmd.ID] = call
	r.pendingMu.Unlock()
	defer func() {
		r.pendingMu.Lock()
		delete(r.pending, cmd.ID)
		r.pendingMu.Unlock()
	}()

	_, sendErr := agent.breaker.Execute(func() (interface{}, error) {
		return nil, r.transmit(ctx, agent, cmd)
	})
	if sendErr != nil {
		return nil, fmt.Errorf("clientrouter: send failed: %w", sendErr)
	}

	timeout := r.defaultTimeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-call.resultCh:
		if !resp.Success {
			return nil, fmt.Errorf("clientrouter: agent error: %s", resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("clientrouter: command %q timed out after %s", cmdType, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Router) transmit(ctx context.Context, agent *Agent, cmd RemoteCommand) error {
	raw, err := encodeCommand(cmd)
	if err != nil {
		return err
	}
	return agent.conn.Send(ctx, raw)
}

// HandleCommandResult resolves a pending SendCommand call. Responses for
// unknown ids are dropped and logged (spec.md §4.7).
func (r *Router) HandleCommandResult(resp Response) {
	r.pendingMu.Lock()
	call, ok := r.pending[resp.ID]
	r.pendingMu.Unlock()
	if !ok {
		r.log.Warn("dropped response for unknown command id", "id", resp.ID)
		return
	}
	select {
	case call.resultCh <- resp:
	default:
	}
}

// TransportClosed marks an agent offline and rejects every command still
// pending in the table, whichever agent it was sent to, with a connection
// error.
func (r *Router) TransportClosed(agentID string) {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if ok {
		agent.Status = AgentOffline
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for id, call := range r.pending {
		select {
		case call.resultCh <- Response{ID: id, Success: false, Error: "agent transport closed"}:
		default:
		}
	}
}
