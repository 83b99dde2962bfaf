// Package generator wraps the opaque LLM capability a Worker drives: given
// a prompt (and optional system prompt), it returns text plus token
// accounting. This is the Generator of the GLOSSARY — everything about the
// model behind it is out of scope (spec.md §1).
package generator

import "context"

// Request is one round-trip's input.
type Request struct {
	SystemPrompt string
	Prompt       string
}

// Response is one round-trip's output.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator is the capability interface injected into the Worker Pool.
// Dispatcher code never reaches for a concrete LLM client directly, per
// spec.md §9's "shared service singleton" re-architecture note.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}
