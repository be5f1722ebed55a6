package usecase

import (
	"context"

	"roastery/internal/domain/entity"
)

// CatalogFilter narrows a public catalog read. Matching is exact; the
// catalog does not define a richer query language.
type CatalogFilter struct {
	Category string
	Status   string
}

// FamilyView is the grouped rendering of the catalog for the admin and
// storefront family views.
type FamilyView struct {
	Families []entity.Family      `json:"families"`
	Singles  []entity.Product     `json:"singles"`
	Issues   []entity.FamilyIssue `json:"issues,omitempty"`
}

// CatalogUsecase serves the published catalog on the public read path,
// through the in-process cache.
type CatalogUsecase interface {
	// Products returns the published catalog, optionally filtered. With
	// fresh set the in-process cache is bypassed and repopulated, which is
	// what convergence polling relies on.
	Products(ctx context.Context, filter CatalogFilter, fresh bool) ([]entity.Product, error)

	// Families returns the published catalog grouped into families.
	Families(ctx context.Context, fresh bool) (FamilyView, error)
}
