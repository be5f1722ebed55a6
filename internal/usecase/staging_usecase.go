// Package usecase defines the application-layer contracts.
package usecase

import (
	"context"

	"roastery/internal/domain/entity"
	"roastery/internal/infra/codec"
)

// ProductPatch is a partial update applied to one staged product. Nil
// fields are left untouched.
type ProductPatch struct {
	Name               *string                `json:"productName,omitempty"`
	Category           *string                `json:"category,omitempty"`
	Status             *entity.ProductStatus  `json:"status,omitempty"`
	Price              *float64               `json:"price,omitempty"`
	OriginalPrice      *float64               `json:"originalPrice,omitempty"`
	Format             *string                `json:"format,omitempty"`
	Weight             *string                `json:"weight,omitempty"`
	RoastLevel         *string                `json:"roastLevel,omitempty"`
	Origin             *[]string              `json:"origin,omitempty"`
	TastingNotes       *[]string              `json:"tastingNotes,omitempty"`
	Featured           *bool                  `json:"featured,omitempty"`
	InStock            *bool                  `json:"inStock,omitempty"`
	ShippingFirst      *float64               `json:"shippingFirst,omitempty"`
	ShippingAdditional *float64               `json:"shippingAdditional,omitempty"`
	Images             *[]entity.ProductImage `json:"images,omitempty"`
}

// ImportReport summarizes a CSV import into the staging area.
type ImportReport struct {
	Imported int                `json:"imported"`
	Replaced bool               `json:"replaced"`
	Skipped  []codec.SkippedRow `json:"skipped,omitempty"`
}

// StagingUsecase is the operator's diffable working copy of the catalog.
//
// The staged catalog and its baseline (the last catalog known to be durably
// published) are owned exclusively by this store; the publish orchestrator
// is the only caller of Commit.
type StagingUsecase interface {
	// Load initializes both staged and baseline from the published catalog.
	Load(ctx context.Context) error

	// List returns the staged catalog in order.
	List() []entity.Product

	// Add stages a new product. Fails with ErrDuplicateSKU if the SKU is
	// already staged.
	Add(product entity.Product) error

	// Update applies a patch to a staged product. Fails with
	// ErrProductNotFound if the SKU is absent.
	Update(sku string, patch ProductPatch) (entity.Product, error)

	// Remove unstages a SKU. Removing an absent SKU is a no-op, tolerating
	// racing UI actions.
	Remove(sku string)

	// BulkRemove unstages every listed SKU, each with Remove semantics.
	BulkRemove(skus []string)

	// Diff computes the change set of staged against baseline.
	Diff() entity.ChangeSet

	// Dirty reports whether staged differs structurally from baseline. It
	// gates whether a publish is even offered.
	Dirty() bool

	// Discard resets staged to a deep copy of baseline.
	Discard()

	// ImportCSV merges (or, with replace, substitutes) parsed rows into the
	// staged catalog. Malformed rows are skipped and reported, never fatal.
	ImportCSV(data []byte, replace bool) (ImportReport, error)

	// ExportCSV encodes the staged catalog in the persisted artifact format.
	ExportCSV() ([]byte, error)

	// Snapshot returns deep copies of the staged and baseline catalogs.
	Snapshot() (staged, baseline []entity.Product)

	// Commit advances the baseline to the just-published catalog. Called
	// only by the publish orchestrator after a confirmed durable write.
	Commit(newBaseline []entity.Product)
}
