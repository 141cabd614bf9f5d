// Package agent defines the capability every worker behind the
// orchestrator satisfies: accept a query and a correlation id, produce
// an asynchronous stream of content chunks with a flagged final chunk.
package agent

import "context"

// StreamChunk is one element of an agent's output stream.
type StreamChunk struct {
	// Content is the incremental text produced by the agent.
	Content string
	// Done marks the final chunk of a run.
	Done bool
	// Err carries an agent failure. When set, the stream ends and the
	// executor marks the task failed.
	Err error
}

// Agent is an opaque asynchronous worker. Stream returns immediately;
// chunks arrive on the returned channel, which is closed after the
// final chunk. Implementations must honor ctx cancellation and must
// send at most one chunk with Err set, as the last element.
type Agent interface {
	// Name returns the registry name of the agent.
	Name() string
	// Stream runs the query. correlationID ties the run to its task
	// thread for logging and provider-side continuity.
	Stream(ctx context.Context, query, correlationID string) (<-chan StreamChunk, error)
}
