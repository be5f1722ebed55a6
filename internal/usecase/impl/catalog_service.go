package impl

import (
	"context"
	"log/slog"
	"strings"

	"roastery/internal/domain/entity"
	"roastery/internal/domain/repository"
	"roastery/internal/domain/service"
	"roastery/internal/infra/cache"
	"roastery/internal/usecase"

	"github.com/pkg/errors"
)

// catalogService serves the published catalog on the public read path. All
// reads go through the in-process cache unless the caller asks for a fresh
// read, which is how convergence polling sees past the cache.
type catalogService struct {
	catalogRepo repository.CatalogRepository
	memCache    *cache.MemoryCache
	grouper     service.FamilyGrouper
	logger      *slog.Logger
}

// NewCatalogService creates the public catalog read service.
func NewCatalogService(
	catalogRepo repository.CatalogRepository,
	memCache *cache.MemoryCache,
	grouper service.FamilyGrouper,
	logger *slog.Logger,
) usecase.CatalogUsecase {
	return &catalogService{
		catalogRepo: catalogRepo,
		memCache:    memCache,
		grouper:     grouper,
		logger:      logger,
	}
}

func (s *catalogService) Products(ctx context.Context, filter usecase.CatalogFilter, fresh bool) ([]entity.Product, error) {
	products, err := s.catalog(ctx, fresh)
	if err != nil {
		return nil, err
	}

	return applyFilter(products, filter), nil
}

func (s *catalogService) Families(ctx context.Context, fresh bool) (usecase.FamilyView, error) {
	products, err := s.catalog(ctx, fresh)
	if err != nil {
		return usecase.FamilyView{}, err
	}

	families, singles, issues := s.grouper.Group(products)

	return usecase.FamilyView{
		Families: families,
		Singles:  singles,
		Issues:   issues,
	}, nil
}

func (s *catalogService) catalog(ctx context.Context, fresh bool) ([]entity.Product, error) {
	if !fresh {
		if cached, ok := s.memCache.Get(); ok {
			return cached, nil
		}
	}

	products, err := s.catalogRepo.Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read published catalog")
	}

	s.memCache.Set(products)
	s.logger.Debug("Catalog cache repopulated", slog.Int("products", len(products)))

	return products, nil
}

func applyFilter(products []entity.Product, filter usecase.CatalogFilter) []entity.Product {
	if filter.Category == "" && filter.Status == "" {
		return products
	}

	filtered := make([]entity.Product, 0, len(products))
	for _, p := range products {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.Status != "" && string(p.Status) != strings.ToLower(filter.Status) {
			continue
		}
		filtered = append(filtered, p)
	}

	return filtered
}
