// Package impl contains the application-layer service implementations.
package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"roastery/internal/domain/entity"
	domainerrors "roastery/internal/domain/errors"
	"roastery/internal/domain/repository"
	"roastery/internal/infra/codec"
	"roastery/internal/usecase"

	"github.com/pkg/errors"
)

// stagingService holds the operator's working copy of the catalog. All
// mutations are synchronous and mutex-guarded; cross-session merge
// semantics are deliberately undefined (single-operator assumption).
type stagingService struct {
	mu          sync.Mutex
	staged      []entity.Product
	baseline    []entity.Product
	catalogRepo repository.CatalogRepository
	logger      *slog.Logger
}

// NewStagingService creates the staging store.
func NewStagingService(catalogRepo repository.CatalogRepository, logger *slog.Logger) usecase.StagingUsecase {
	return &stagingService{
		staged:      []entity.Product{},
		baseline:    []entity.Product{},
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// Load pulls the published catalog and resets both staged and baseline to it.
func (s *stagingService) Load(ctx context.Context) error {
	published, err := s.catalogRepo.Read(ctx)
	if err != nil {
		return errors.Wrap(err, "load published catalog")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseline = entity.CloneCatalog(published)
	s.staged = entity.CloneCatalog(published)

	s.logger.Info("Staging area loaded", slog.Int("products", len(published)))

	return nil
}

func (s *stagingService) List() []entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	return entity.CloneCatalog(s.staged)
}

func (s *stagingService) Add(product entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.staged {
		if existing.SKU == product.SKU {
			return domainerrors.ErrDuplicateSKU.WithDetails("sku: " + product.SKU)
		}
	}

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.TastingNotes == nil {
		product.TastingNotes = []string{}
	}
	if product.OriginalPrice == 0 {
		product.OriginalPrice = product.Price
	}
	normalizeImageOrder(product.Images)

	s.staged = append(s.staged, product.Clone())

	return nil
}

func (s *stagingService) Update(sku string, patch usecase.ProductPatch) (entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.staged {
		if s.staged[i].SKU != sku {
			continue
		}

		applyPatch(&s.staged[i], patch)
		s.staged[i].UpdatedAt = time.Now().UTC()

		return s.staged[i].Clone(), nil
	}

	return entity.Product{}, domainerrors.ErrProductNotFound.WithDetails("sku: " + sku)
}

// Remove is idempotent: unstaging an absent SKU is a no-op so racing UI
// actions never surface as errors.
func (s *stagingService) Remove(sku string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(sku)
}

func (s *stagingService) BulkRemove(skus []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sku := range skus {
		s.removeLocked(sku)
	}
}

func (s *stagingService) removeLocked(sku string) {
	for i := range s.staged {
		if s.staged[i].SKU == sku {
			s.staged = append(s.staged[:i], s.staged[i+1:]...)

			return
		}
	}
}

// Diff computes the change set of staged against baseline: present only in
// staged is new, present in both but deep-unequal is modified, present only
// in baseline is deleted.
func (s *stagingService) Diff() entity.ChangeSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	baselineBySKU := make(map[string]entity.Product, len(s.baseline))
	for _, p := range s.baseline {
		baselineBySKU[p.SKU] = p
	}

	stagedSKUs := make(map[string]struct{}, len(s.staged))
	var cs entity.ChangeSet
	for _, p := range s.staged {
		stagedSKUs[p.SKU] = struct{}{}
		base, exists := baselineBySKU[p.SKU]
		switch {
		case !exists:
			cs.New = append(cs.New, p.SKU)
		case !p.Equal(base):
			cs.Modified = append(cs.Modified, p.SKU)
		}
	}

	for _, p := range s.baseline {
		if _, still := stagedSKUs[p.SKU]; !still {
			cs.Deleted = append(cs.Deleted, p.SKU)
		}
	}

	return cs
}

func (s *stagingService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !entity.EqualCatalogs(s.staged, s.baseline)
}

func (s *stagingService) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = entity.CloneCatalog(s.baseline)
}

func (s *stagingService) ImportCSV(data []byte, replace bool) (usecase.ImportReport, error) {
	products, decodeReport, err := codec.Decode(data)
	if err != nil {
		return usecase.ImportReport{}, domainerrors.ErrImportFailed.WithDetails(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := usecase.ImportReport{Replaced: replace, Skipped: decodeReport.Skipped}

	if replace {
		s.staged = []entity.Product{}
	}

	index := make(map[string]int, len(s.staged))
	for i, p := range s.staged {
		index[p.SKU] = i
	}

	now := time.Now().UTC()
	for _, p := range products {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now

		if i, exists := index[p.SKU]; exists {
			// Imports win over earlier staged edits for the same SKU.
			s.staged[i] = p
		} else {
			index[p.SKU] = len(s.staged)
			s.staged = append(s.staged, p)
		}
		report.Imported++
	}

	s.logger.Info("CSV import staged",
		slog.Int("imported", report.Imported),
		slog.Int("skipped", len(report.Skipped)),
		slog.Bool("replace", replace),
	)

	return report, nil
}

func (s *stagingService) ExportCSV() ([]byte, error) {
	s.mu.Lock()
	staged := entity.CloneCatalog(s.staged)
	s.mu.Unlock()

	data, err := codec.Encode(staged)
	if err != nil {
		return nil, errors.Wrap(err, "export staged catalog")
	}

	return data, nil
}

func (s *stagingService) Snapshot() ([]entity.Product, []entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return entity.CloneCatalog(s.staged), entity.CloneCatalog(s.baseline)
}

func (s *stagingService) Commit(newBaseline []entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseline = entity.CloneCatalog(newBaseline)
}

func applyPatch(p *entity.Product, patch usecase.ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.OriginalPrice != nil {
		p.OriginalPrice = *patch.OriginalPrice
	}
	if patch.Format != nil {
		p.Format = *patch.Format
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.RoastLevel != nil {
		p.RoastLevel = *patch.RoastLevel
	}
	if patch.Origin != nil {
		p.Origin = append([]string(nil), (*patch.Origin)...)
	}
	if patch.TastingNotes != nil {
		p.TastingNotes = append([]string(nil), (*patch.TastingNotes)...)
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.InStock != nil {
		p.InStock = *patch.InStock
	}
	if patch.ShippingFirst != nil {
		p.ShippingFirst = *patch.ShippingFirst
	}
	if patch.ShippingAdditional != nil {
		p.ShippingAdditional = *patch.ShippingAdditional
	}
	if patch.Images != nil {
		p.Images = append([]entity.ProductImage(nil), (*patch.Images)...)
		normalizeImageOrder(p.Images)
	}
}

// normalizeImageOrder reassigns Order by slice position. The CSV artifact
// carries image order positionally, so staged products must agree with what
// a decode of their own export would produce.
func normalizeImageOrder(images []entity.ProductImage) {
	for i := range images {
		images[i].Order = i
	}
}
