// Package delivery defines the transport-facing contracts of the project.
package delivery

import (
	"context"
)

// Delivery is a transport surface (HTTP server, worker, ...) managed by the
// application lifecycle.
type Delivery interface {
	Serve(ctx context.Context) error
}
