package service

import (
	"context"
)

// Invalidator flushes one cache layer that sits between the published
// catalog and its readers. The publish orchestrator invokes an ordered list
// of these; adding a cache layer means adding an implementation, not
// editing the orchestrator.
type Invalidator interface {
	// Name identifies the cache layer in diagnostics (e.g. "tag", "path", "memory").
	Name() string

	// Invalidate flushes the layer. A failure is collected and surfaced as a
	// warning by the caller, never treated as fatal on its own.
	Invalidate(ctx context.Context) error
}
