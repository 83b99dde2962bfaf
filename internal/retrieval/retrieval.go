// Package retrieval defines the narrow consumer interface the rest of the
// core talks to for RAG-context ingestion. Building and querying the
// actual retrieval index (chunking, embeddings, vector search) is an
// explicit non-goal of spec.md §1; this package only specifies the seam a
// file_put/editor write opportunistically calls into as a best-effort side
// effect (spec.md §4.5).
package retrieval

import "context"

// Ingester is implemented by whatever indexing pipeline the surrounding
// system provides. A failing Ingest must never fail the tool call that
// triggered it (spec.md §4.5: "failure of that side effect is logged but
// does not mark the tool call failed").
type Ingester interface {
	Ingest(ctx context.Context, path string, content []byte, mimeType string) error
}

// NoopIngester discards everything; it is the default when no retrieval
// backend is configured.
type NoopIngester struct{}

func (NoopIngester) Ingest(context.Context, string, []byte, string) error { return nil }
