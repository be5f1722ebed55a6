// Package repository defines the persistence contracts of the domain layer.
package repository

import (
	"context"

	"roastery/internal/domain/entity"
)

// CatalogRepository is the durable-storage adapter for the published
// catalog artifact.
//
// Read returns an empty list for the intentionally-empty tombstone artifact;
// an unreachable store is a hard error, never an empty result. Write accepts
// an empty list as the explicit way to publish an empty catalog.
type CatalogRepository interface {
	Read(ctx context.Context) ([]entity.Product, error)
	Write(ctx context.Context, products []entity.Product) (entity.WriteReceipt, error)
}
