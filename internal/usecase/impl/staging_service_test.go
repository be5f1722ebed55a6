package impl

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"roastery/internal/domain/entity"
	domainerrors "roastery/internal/domain/errors"
	"roastery/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usecasePatch(name *string, price *float64) usecase.ProductPatch {
	return usecase.ProductPatch{Name: name, Price: price}
}

// fakeCatalogRepository is an in-memory stand-in for the blob-backed
// repository. Write failures are injectable for pipeline tests.
type fakeCatalogRepository struct {
	mu        sync.Mutex
	published []entity.Product
	writeErr  error
	readErr   error
	writes    int
	reads     int
}

func (f *fakeCatalogRepository) Read(_ context.Context) ([]entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}

	return entity.CloneCatalog(f.published), nil
}

func (f *fakeCatalogRepository) Write(_ context.Context, products []entity.Product) (entity.WriteReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if f.writeErr != nil {
		return entity.WriteReceipt{}, f.writeErr
	}

	f.published = entity.CloneCatalog(products)

	return entity.WriteReceipt{
		Fingerprint:  "fp-test",
		ProductCount: len(products),
		Verified:     true,
	}, nil
}

func (f *fakeCatalogRepository) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reads
}

func (f *fakeCatalogRepository) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writes
}

func (f *fakeCatalogRepository) publishedCatalog() []entity.Product {
	f.mu.Lock()
	defer f.mu.Unlock()

	return entity.CloneCatalog(f.published)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProduct(sku, name string, price float64) entity.Product {
	return entity.Product{
		SKU:          sku,
		Name:         name,
		Category:     "blend",
		Status:       entity.StatusActive,
		Price:        price,
		InStock:      true,
		TastingNotes: []string{},
	}
}

type stagingFixtures struct {
	service *stagingService
	repo    *fakeCatalogRepository
}

func createTestStaging(t *testing.T, published ...entity.Product) stagingFixtures {
	t.Helper()

	repo := &fakeCatalogRepository{published: published}
	service := NewStagingService(repo, testLogger()).(*stagingService)
	require.NoError(t, service.Load(context.Background()))

	return stagingFixtures{service: service, repo: repo}
}

func TestStagingService_LoadInitializesBaseline(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100), testProduct("B", "Product B", 200))

	assert.Len(t, fx.service.List(), 2)
	assert.False(t, fx.service.Dirty())
	assert.True(t, fx.service.Diff().Empty())
}

func TestStagingService_AddDuplicateSKU(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	err := fx.service.Add(testProduct("A", "Product A Again", 150))
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DUPLICATE_SKU", appErr.ErrorCode())
	assert.Len(t, fx.service.List(), 1)
}

func TestStagingService_AddDefaults(t *testing.T) {
	fx := createTestStaging(t)

	product := testProduct("A", "Product A", 100)
	product.TastingNotes = nil
	require.NoError(t, fx.service.Add(product))

	staged := fx.service.List()
	require.Len(t, staged, 1)
	assert.NotNil(t, staged[0].TastingNotes)
	assert.InDelta(t, 100, staged[0].OriginalPrice, 0.001, "originalPrice defaults to price")
	assert.False(t, staged[0].CreatedAt.IsZero())
}

func TestStagingService_ImageOrderFollowsPosition(t *testing.T) {
	fx := createTestStaging(t)

	product := testProduct("A", "Product A", 100)
	product.Images = []entity.ProductImage{
		{URL: "https://cdn.example.com/a-front.jpg", Role: entity.ImageMain, Order: 5},
		{URL: "https://cdn.example.com/a-side.jpg", Role: entity.ImageGallery, Order: 2},
	}
	require.NoError(t, fx.service.Add(product))

	staged := fx.service.List()
	require.Len(t, staged, 1)
	require.Len(t, staged[0].Images, 2)
	assert.Equal(t, 0, staged[0].Images[0].Order, "order follows position, as it does through an export round trip")
	assert.Equal(t, 1, staged[0].Images[1].Order)

	patched := []entity.ProductImage{
		{URL: "https://cdn.example.com/a-side.jpg", Role: entity.ImageMain, Order: 9},
	}
	_, err := fx.service.Update("A", usecase.ProductPatch{Images: &patched})
	require.NoError(t, err)

	staged = fx.service.List()
	require.Len(t, staged, 1)
	require.Len(t, staged[0].Images, 1)
	assert.Equal(t, 0, staged[0].Images[0].Order)
}

func TestStagingService_UpdateAppliesPatch(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	newName := "Renamed"
	newPrice := 180.0
	updated, err := fx.service.Update("A", usecasePatch(&newName, &newPrice))
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.InDelta(t, 180, updated.Price, 0.001)
	assert.True(t, fx.service.Dirty())

	staged := fx.service.List()
	require.Len(t, staged, 1)
	assert.Equal(t, "Renamed", staged[0].Name)
}

func TestStagingService_UpdateNotFound(t *testing.T) {
	fx := createTestStaging(t)

	_, err := fx.service.Update("GHOST", usecasePatch(nil, nil))
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PRODUCT_NOT_FOUND", appErr.ErrorCode())
	assert.Equal(t, 404, appErr.HTTPCode())
}

func TestStagingService_RemoveIsIdempotent(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	fx.service.Remove("A")
	fx.service.Remove("A")
	fx.service.Remove("NEVER-EXISTED")

	assert.Empty(t, fx.service.List())
	assert.Equal(t, []string{"A"}, fx.service.Diff().Deleted)
}

func TestStagingService_DiffClassifiesChanges(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100), testProduct("B", "Product B", 200))

	require.NoError(t, fx.service.Add(testProduct("C", "Product C", 300)))
	newPrice := 250.0
	_, err := fx.service.Update("B", usecasePatch(nil, &newPrice))
	require.NoError(t, err)
	fx.service.Remove("A")

	cs := fx.service.Diff()
	assert.Equal(t, []string{"C"}, cs.New)
	assert.Equal(t, []string{"B"}, cs.Modified)
	assert.Equal(t, []string{"A"}, cs.Deleted)
	assert.Equal(t, 3, cs.Total())
	assert.True(t, fx.service.Dirty())
}

func TestStagingService_AddThenRemoveIsNetNoop(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	require.NoError(t, fx.service.Add(testProduct("TMP", "Temporary", 50)))
	fx.service.Remove("TMP")

	assert.True(t, fx.service.Diff().Empty())
	assert.False(t, fx.service.Dirty())
}

func TestStagingService_DiscardRestoresBaseline(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	require.NoError(t, fx.service.Add(testProduct("B", "Product B", 200)))
	fx.service.Remove("A")
	require.True(t, fx.service.Dirty())

	fx.service.Discard()

	assert.False(t, fx.service.Dirty())
	staged := fx.service.List()
	require.Len(t, staged, 1)
	assert.Equal(t, "A", staged[0].SKU)
}

func TestStagingService_ImportMergesAndReportsSkips(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	csv := strings.Join([]string{
		"sku,productName,category,price",
		"A,Product A Reimported,blend,120",
		"D,Product D,blend,400",
		",Missing SKU,blend,500",
	}, "\n")

	report, err := fx.service.ImportCSV([]byte(csv), false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Imported)
	assert.False(t, report.Replaced)
	require.Len(t, report.Skipped, 1)

	staged := fx.service.List()
	require.Len(t, staged, 2)
	assert.Equal(t, "Product A Reimported", staged[0].Name, "imports win over staged edits")
	assert.Equal(t, "D", staged[1].SKU)
}

func TestStagingService_ImportReplaceSubstitutes(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100), testProduct("B", "Product B", 200))

	csv := strings.Join([]string{
		"sku,productName,category,price",
		"Z,Product Z,blend,900",
	}, "\n")

	report, err := fx.service.ImportCSV([]byte(csv), true)
	require.NoError(t, err)
	assert.True(t, report.Replaced)

	staged := fx.service.List()
	require.Len(t, staged, 1)
	assert.Equal(t, "Z", staged[0].SKU)
}

func TestStagingService_ExportRoundTrip(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	data, err := fx.service.ExportCSV()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Product A")

	report, err := fx.service.ImportCSV(data, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Empty(t, report.Skipped)
}

func TestStagingService_CommitAdvancesBaselineOnly(t *testing.T) {
	fx := createTestStaging(t, testProduct("A", "Product A", 100))

	require.NoError(t, fx.service.Add(testProduct("B", "Product B", 200)))
	require.True(t, fx.service.Dirty())

	staged, _ := fx.service.Snapshot()
	fx.service.Commit(staged)

	assert.False(t, fx.service.Dirty())
	_, baseline := fx.service.Snapshot()
	assert.Len(t, baseline, 2)
}
