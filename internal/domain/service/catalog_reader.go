package service

import (
	"context"

	"roastery/internal/domain/entity"
)

// LiveCatalogReader fetches the catalog as the public read path currently
// serves it, bypassing any HTTP cache. The publish orchestrator polls it to
// confirm a just-published catalog is actually visible to customers.
type LiveCatalogReader interface {
	FetchLive(ctx context.Context) (entity.CatalogSnapshot, error)
}
