package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"roastery/config"
	"roastery/internal/domain/entity"
	domainerrors "roastery/internal/domain/errors"
	"roastery/internal/domain/service"
	"roastery/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvalidator records invalidation calls and can be primed to fail.
type fakeInvalidator struct {
	name  string
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) Name() string { return f.name }

func (f *fakeInvalidator) Invalidate(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	return f.err
}

func (f *fakeInvalidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// fakeLiveReader serves a configurable snapshot of the public read path.
type fakeLiveReader struct {
	mu       sync.Mutex
	snapshot entity.CatalogSnapshot
	err      error
	gate     chan struct{}
}

func (f *fakeLiveReader) FetchLive(ctx context.Context) (entity.CatalogSnapshot, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return entity.CatalogSnapshot{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshot, f.err
}

func (f *fakeLiveReader) serve(products []entity.Product) {
	skus := make([]string, 0, len(products))
	for _, p := range products {
		skus = append(skus, p.SKU)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshot = entity.CatalogSnapshot{Count: len(products), SKUs: skus}
	f.err = nil
}

type publishFixtures struct {
	service      usecase.PublishUsecase
	staging      usecase.StagingUsecase
	repo         *fakeCatalogRepository
	reader       *fakeLiveReader
	invalidators []*fakeInvalidator
}

func createTestPublish(t *testing.T, published ...entity.Product) publishFixtures {
	t.Helper()

	staging := createTestStaging(t, published...)
	reader := &fakeLiveReader{}
	invalidators := []*fakeInvalidator{
		{name: "tag"},
		{name: "path"},
		{name: "memory"},
	}

	cfg := &config.Config{}
	cfg.Publish.InvalidationTimeout = time.Second
	cfg.Publish.PollInterval = 5 * time.Millisecond
	cfg.Publish.PollCeiling = 150 * time.Millisecond
	cfg.Publish.ResetGrace = time.Hour

	ordered := make([]service.Invalidator, 0, len(invalidators))
	for _, inv := range invalidators {
		ordered = append(ordered, inv)
	}

	svc := NewPublishService(staging.service, staging.repo, ordered, reader, cfg, testLogger())

	return publishFixtures{
		service:      svc,
		staging:      staging.service,
		repo:         staging.repo,
		reader:       reader,
		invalidators: invalidators,
	}
}

func waitForPhase(t *testing.T, svc usecase.PublishUsecase, want entity.PublishPhase) entity.PublishStatus {
	t.Helper()

	var status entity.PublishStatus
	require.Eventually(t, func() bool {
		status = svc.Status()

		return status.Phase == want
	}, 5*time.Second, 2*time.Millisecond, "expected phase %s, last seen %s", want, status.Phase)

	return status
}

func TestPublishService_NothingToPublish(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))

	_, err := fx.service.Publish(context.Background())
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOTHING_TO_PUBLISH", appErr.ErrorCode())
	assert.Equal(t, entity.PhaseIdle, fx.service.Status().Phase)
}

func TestPublishService_HappyPath(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	staged, _ := fx.staging.Snapshot()
	fx.reader.serve(staged)

	status, err := fx.service.Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseValidating, status.Phase)
	require.NotNil(t, status.Diagnostics)
	assert.NotEmpty(t, status.Diagnostics.RunID)

	final := waitForPhase(t, fx.service, entity.PhaseComplete)
	assert.Equal(t, "Catalog published and confirmed live", final.Message)

	require.NotNil(t, final.Diagnostics)
	assert.True(t, final.Diagnostics.Converged)
	require.NotNil(t, final.Diagnostics.Receipt)
	assert.Equal(t, 2, final.Diagnostics.Receipt.ProductCount)
	require.Len(t, final.Diagnostics.Invalidations, 3)
	assert.Equal(t, "tag", final.Diagnostics.Invalidations[0].Layer)
	assert.Equal(t, "path", final.Diagnostics.Invalidations[1].Layer)
	assert.Equal(t, "memory", final.Diagnostics.Invalidations[2].Layer)
	for _, result := range final.Diagnostics.Invalidations {
		assert.False(t, result.Failed())
		assert.NotEmpty(t, result.Duration, "duration reads like the phase timings")
	}

	assert.Len(t, fx.repo.publishedCatalog(), 2)
	assert.False(t, fx.staging.Dirty(), "baseline advances after a confirmed write")
	for _, inv := range fx.invalidators {
		assert.Equal(t, 1, inv.callCount())
	}
}

func TestPublishService_ConcurrentPublishRejected(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	// Hold the convergence poll open so the first run stays active.
	gate := make(chan struct{})
	fx.reader.gate = gate
	staged, _ := fx.staging.Snapshot()
	fx.reader.serve(staged)

	_, err := fx.service.Publish(context.Background())
	require.NoError(t, err)

	waitForPhase(t, fx.service, entity.PhaseVerifying)

	_, err = fx.service.Publish(context.Background())
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PUBLISH_IN_FLIGHT", appErr.ErrorCode())

	close(gate)
	waitForPhase(t, fx.service, entity.PhaseComplete)
}

func TestPublishService_WriteFailureKeepsBaseline(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	fx.repo.mu.Lock()
	fx.repo.writeErr = errors.New("bucket unavailable")
	fx.repo.mu.Unlock()

	_, err := fx.service.Publish(context.Background())
	require.NoError(t, err)

	final := waitForPhase(t, fx.service, entity.PhaseError)
	assert.Contains(t, final.Message, "Durable catalog write failed")

	assert.True(t, fx.staging.Dirty(), "baseline must not advance on a failed write")
	assert.Len(t, fx.repo.publishedCatalog(), 1)
	for _, inv := range fx.invalidators {
		assert.Zero(t, inv.callCount(), "no cache invalidation after a failed write")
	}
}

func TestPublishService_RetryAfterFailure(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	fx.repo.mu.Lock()
	fx.repo.writeErr = errors.New("bucket unavailable")
	fx.repo.mu.Unlock()

	_, err := fx.service.Publish(context.Background())
	require.NoError(t, err)
	waitForPhase(t, fx.service, entity.PhaseError)

	fx.repo.mu.Lock()
	fx.repo.writeErr = nil
	fx.repo.mu.Unlock()
	staged, _ := fx.staging.Snapshot()
	fx.reader.serve(staged)

	_, err = fx.service.Retry(context.Background())
	require.NoError(t, err)

	final := waitForPhase(t, fx.service, entity.PhaseComplete)
	assert.True(t, final.Diagnostics.Converged)
	assert.Len(t, fx.repo.publishedCatalog(), 2)
	assert.False(t, fx.staging.Dirty())
}

func TestPublishService_RetryWithoutFailure(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))

	_, err := fx.service.Retry(context.Background())
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NO_RETRYABLE_PUBLISH", appErr.ErrorCode())
}

func TestPublishService_ClearErrorState(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	fx.repo.mu.Lock()
	fx.repo.writeErr = errors.New("bucket unavailable")
	fx.repo.mu.Unlock()

	_, err := fx.service.Publish(context.Background())
	require.NoError(t, err)
	waitForPhase(t, fx.service, entity.PhaseError)

	require.NoError(t, fx.service.Clear())
	assert.Equal(t, entity.PhaseIdle, fx.service.Status().Phase)

	// Clearing an idle machine stays a no-op.
	require.NoError(t, fx.service.Clear())
	assert.Equal(t, entity.PhaseIdle, fx.service.Status().Phase)
}

func TestPublishService_ConvergenceCeilingCompletesWithCaveat(t *testing.T) {
	stale := testProduct("A", "Product A", 100)
	fx := createTestPublish(t, stale)
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	// The read path keeps serving the old catalog for the whole ceiling.
	fx.reader.serve([]entity.Product{stale})

	_, err := fx.service.Publish(context.Background())
	require.NoError(t, err)

	final := waitForPhase(t, fx.service, entity.PhaseComplete)
	assert.Equal(t, "Catalog saved, but not yet confirmed live", final.Message)
	assert.False(t, final.Diagnostics.Converged)
	assert.GreaterOrEqual(t, final.Diagnostics.PollAttempts, 1)

	// The write itself succeeded, so the baseline advanced regardless.
	assert.False(t, fx.staging.Dirty())
	assert.Len(t, fx.repo.publishedCatalog(), 2)
}

func TestPublishService_InvalidationFailureIsNotFatal(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	fx.invalidators[0].err = errors.New("revalidation endpoint returned 500")

	staged, _ := fx.staging.Snapshot()
	fx.reader.serve(staged)

	_, err := fx.service.Publish(context.Background())
	require.NoError(t, err)

	final := waitForPhase(t, fx.service, entity.PhaseComplete)

	require.Len(t, final.Diagnostics.Invalidations, 3)
	assert.True(t, final.Diagnostics.Invalidations[0].Failed())
	assert.Contains(t, final.Diagnostics.Invalidations[0].Err, "revalidation endpoint")
	assert.False(t, final.Diagnostics.Invalidations[1].Failed())
	assert.False(t, final.Diagnostics.Invalidations[2].Failed())
}

func TestPublishService_StructuralValidationFailure(t *testing.T) {
	fx := createTestPublish(t)

	// A SKU-less product cannot enter through Add, so inject it directly
	// into the staged catalog via import-style state.
	require.NoError(t, fx.staging.Add(testProduct("A", "Product A", 100)))
	svc := fx.staging.(*stagingService)
	svc.mu.Lock()
	svc.staged = append(svc.staged, entity.Product{Name: "No SKU", Category: "blend", Price: 10})
	svc.mu.Unlock()

	_, err := fx.service.Publish(context.Background())
	require.NoError(t, err)

	final := waitForPhase(t, fx.service, entity.PhaseError)
	assert.Contains(t, final.Message, "structural validation")
	assert.Zero(t, fx.repo.writeCount(), "nothing may be written after validation fails")
}

func TestPublishService_CompleteAutoResets(t *testing.T) {
	fx := createTestPublish(t, testProduct("A", "Product A", 100))
	require.NoError(t, fx.staging.Add(testProduct("B", "Product B", 200)))

	// Rebuild with a short reset grace for this test.
	cfg := &config.Config{}
	cfg.Publish.InvalidationTimeout = time.Second
	cfg.Publish.PollInterval = 5 * time.Millisecond
	cfg.Publish.PollCeiling = 150 * time.Millisecond
	cfg.Publish.ResetGrace = 20 * time.Millisecond

	ordered := make([]service.Invalidator, 0, len(fx.invalidators))
	for _, inv := range fx.invalidators {
		ordered = append(ordered, inv)
	}
	svc := NewPublishService(fx.staging, fx.repo, ordered, fx.reader, cfg, testLogger())

	staged, _ := fx.staging.Snapshot()
	fx.reader.serve(staged)

	_, err := svc.Publish(context.Background())
	require.NoError(t, err)

	waitForPhase(t, svc, entity.PhaseComplete)
	waitForPhase(t, svc, entity.PhaseIdle)
}
