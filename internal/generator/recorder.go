package generator

import (
	"context"
	"sync"
)

// Recorder decorates a Generator, remembering the most recent request/
// response round-trip so the debug_echo tool (spec.md §4.5) can answer
// "what did the model actually see" without the dispatcher threading
// prompt history through every tool call.
type Recorder struct {
	inner Generator

	mu       sync.Mutex
	lastReq  Request
	lastResp Response
	seen     bool
}

func NewRecorder(inner Generator) *Recorder {
	return &Recorder{inner: inner}
}

func (r *Recorder) Name() string { return r.inner.Name() }

func (r *Recorder) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := r.inner.Generate(ctx, req)

	r.mu.Lock()
	r.lastReq = req
	if resp != nil {
		r.lastResp = *resp
	}
	r.seen = true
	r.mu.Unlock()

	return resp, err
}

// Last returns the most recently recorded request/response pair. ok is
// false if no Generate call has completed yet.
func (r *Recorder) Last() (Request, Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReq, r.lastResp, r.seen
}
