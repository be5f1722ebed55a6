package impl

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"roastery/config"
	"roastery/internal/domain/entity"
	domainerrors "roastery/internal/domain/errors"
	"roastery/internal/domain/repository"
	"roastery/internal/domain/service"
	"roastery/internal/usecase"
	"roastery/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// publishService is the single-flight state machine that persists the
// staged catalog, invalidates every dependent cache layer and polls the
// public read path until the new data is demonstrably live.
//
// "Durably stored" and "confirmed visible" are deliberately separate: the
// storage write and the read-cache invalidation are not transactionally
// linked, so the gap between them is made observable and bounded instead of
// silently assumed.
type publishService struct {
	mu           sync.Mutex
	phase        entity.PublishPhase
	message      string
	diag         *entity.PublishDiagnostics
	phaseStarted time.Time
	phaseTimings map[string]time.Duration

	// retained for operator-initiated retry with the same change set
	lastStaged  []entity.Product
	lastChanges entity.ChangeSet

	staging      usecase.StagingUsecase
	catalogRepo  repository.CatalogRepository
	invalidators []service.Invalidator
	reader       service.LiveCatalogReader
	logger       *slog.Logger
	opts         publishOptions
}

type publishOptions struct {
	invalidationTimeout time.Duration
	pollInterval        time.Duration
	pollCeiling         time.Duration
	resetGrace          time.Duration
}

// NewPublishService creates the publish orchestrator. The invalidator slice
// order is the issue order: tag-based first, then path-based, then the
// in-process cache.
func NewPublishService(
	staging usecase.StagingUsecase,
	catalogRepo repository.CatalogRepository,
	invalidators []service.Invalidator,
	reader service.LiveCatalogReader,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.PublishUsecase {
	opts := publishOptions{
		invalidationTimeout: cfg.Publish.InvalidationTimeout,
		pollInterval:        cfg.Publish.PollInterval,
		pollCeiling:         cfg.Publish.PollCeiling,
		resetGrace:          cfg.Publish.ResetGrace,
	}
	if opts.invalidationTimeout <= 0 {
		opts.invalidationTimeout = 15 * time.Second
	}
	if opts.pollInterval <= 0 {
		opts.pollInterval = 15 * time.Second
	}
	if opts.pollCeiling <= 0 {
		opts.pollCeiling = 5 * time.Minute
	}
	if opts.resetGrace <= 0 {
		opts.resetGrace = 10 * time.Second
	}

	return &publishService{
		phase:        entity.PhaseIdle,
		staging:      staging,
		catalogRepo:  catalogRepo,
		invalidators: invalidators,
		reader:       reader,
		logger:       logger,
		opts:         opts,
	}
}

// Publish starts a run for the current staged catalog. Concurrent requests
// are rejected outright: interleaved writes racing on the same durable
// artifact are worse than asking the operator to wait.
func (s *publishService) Publish(_ context.Context) (entity.PublishStatus, error) {
	staged, _ := s.staging.Snapshot()
	changes := s.staging.Diff()

	s.mu.Lock()
	if s.phase != entity.PhaseIdle {
		status := s.statusLocked()
		s.mu.Unlock()

		return status, domainerrors.ErrPublishInFlight
	}
	if changes.Empty() {
		status := s.statusLocked()
		s.mu.Unlock()

		return status, domainerrors.ErrNothingToPublish
	}

	s.beginLocked(staged, changes)
	status := s.statusLocked()
	s.mu.Unlock()

	go s.run(staged, changes)

	return status, nil
}

func (s *publishService) Status() entity.PublishStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statusLocked()
}

// Retry re-enters the pipeline from the top with the change set of the
// failed run.
func (s *publishService) Retry(_ context.Context) (entity.PublishStatus, error) {
	s.mu.Lock()
	if s.phase != entity.PhaseError {
		status := s.statusLocked()
		s.mu.Unlock()

		return status, domainerrors.ErrNoRetryablePublish
	}

	staged := entity.CloneCatalog(s.lastStaged)
	changes := s.lastChanges
	s.beginLocked(staged, changes)
	status := s.statusLocked()
	s.mu.Unlock()

	go s.run(staged, changes)

	return status, nil
}

// Clear returns a persisted error state to idle. Clearing any other state
// is a no-op.
func (s *publishService) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == entity.PhaseError {
		s.phase = entity.PhaseIdle
		s.message = ""
	}

	return nil
}

// beginLocked seeds a new run and moves the machine to validating. Callers
// hold the mutex.
func (s *publishService) beginLocked(staged []entity.Product, changes entity.ChangeSet) {
	s.phase = entity.PhaseValidating
	s.message = "Publishing catalog"
	s.phaseStarted = time.Now()
	s.phaseTimings = make(map[string]time.Duration)
	s.lastStaged = entity.CloneCatalog(staged)
	s.lastChanges = changes
	s.diag = &entity.PublishDiagnostics{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Changes:   changes,
	}
}

func (s *publishService) run(staged []entity.Product, changes entity.ChangeSet) {
	ctx, cancel := context.WithTimeout(context.Background(), s.overallTimeout())
	defer cancel()

	runID := s.currentRunID()
	logger := s.logger.With(slog.String("run_id", runID))
	logger.Info("Publish run started",
		slog.Int("new", len(changes.New)),
		slog.Int("modified", len(changes.Modified)),
		slog.Int("deleted", len(changes.Deleted)),
	)

	// validating: structural checks only. Business validation happened in
	// the staging form layer before anything reached this pipeline.
	if err := validateStructure(staged); err != nil {
		s.fail(logger, "Catalog failed structural validation", err)

		return
	}

	// saving: the durable write is the only hard failure point. The
	// baseline advances on a confirmed write, strictly before convergence,
	// so "saved" and "visible" stay distinct states.
	s.transition(entity.PhaseSaving)
	receipt, err := s.catalogRepo.Write(ctx, staged)
	if err != nil {
		s.fail(logger, "Durable catalog write failed", err)

		return
	}
	s.staging.Commit(staged)
	s.setReceipt(receipt)

	// revalidating: issue every layer even if one fails; failures are
	// collected into the diagnostics, not raised.
	s.transition(entity.PhaseRevalidating)
	results := s.invalidateAll(ctx, logger)
	s.setInvalidations(results)

	// verifying: bounded convergence poll against the public read path.
	s.transition(entity.PhaseVerifying)
	converged, attempts := s.awaitConvergence(ctx, logger, staged)

	s.complete(logger, converged, attempts)
}

// validateStructure rejects inputs that would corrupt the artifact itself.
func validateStructure(staged []entity.Product) error {
	seen := make(map[string]struct{}, len(staged))
	for _, p := range staged {
		if p.SKU == "" {
			return errors.New("staged catalog contains a product without a SKU")
		}
		if _, dup := seen[p.SKU]; dup {
			return errors.Errorf("staged catalog contains duplicate SKU %s", p.SKU)
		}
		seen[p.SKU] = struct{}{}
	}

	return nil
}

// invalidateAll fans out over the ordered invalidator list. Calls are
// issued in fixed order but awaited concurrently under a shared timeout, so
// one slow layer cannot stall the pipeline past its budget.
func (s *publishService) invalidateAll(ctx context.Context, logger *slog.Logger) []entity.InvalidationResult {
	invalidateCtx, cancel := context.WithTimeout(ctx, s.opts.invalidationTimeout)
	defer cancel()

	results := make([]entity.InvalidationResult, len(s.invalidators))

	var group errgroup.Group
	for i, invalidator := range s.invalidators {
		group.Go(func() error {
			started := time.Now()
			err := invalidator.Invalidate(invalidateCtx)

			result := entity.InvalidationResult{
				Layer:    invalidator.Name(),
				Duration: util.FormatDuration(time.Since(started)),
			}
			if err != nil {
				result.Err = err.Error()
				logger.Warn("Cache layer invalidation failed",
					slog.String("layer", invalidator.Name()),
					slog.Any("error", err),
				)
			}
			results[i] = result

			return nil
		})
	}
	//nolint:errcheck // goroutines report through results, never through errors
	group.Wait()

	return results
}

// awaitConvergence polls the public read path until it serves the
// just-published SKU set, or the ceiling passes.
func (s *publishService) awaitConvergence(ctx context.Context, logger *slog.Logger, staged []entity.Product) (bool, int) {
	want := make([]string, 0, len(staged))
	for _, p := range staged {
		want = append(want, p.SKU)
	}
	wantChecksum := skuChecksum(want)

	deadline := time.Now().Add(s.opts.pollCeiling)
	attempts := 0
	for {
		attempts++
		snapshot, err := s.reader.FetchLive(ctx)
		switch {
		case err != nil:
			logger.Warn("Convergence poll failed", slog.Int("attempt", attempts), slog.Any("error", err))
		case snapshot.Count == len(staged) && skuChecksum(snapshot.SKUs) == wantChecksum:
			logger.Info("Catalog confirmed live", slog.Int("attempts", attempts))

			return true, attempts
		default:
			logger.Debug("Catalog not yet live",
				slog.Int("attempt", attempts),
				slog.Int("served", snapshot.Count),
				slog.Int("expected", len(staged)),
			)
		}

		if time.Now().After(deadline) {
			return false, attempts
		}

		select {
		case <-ctx.Done():
			return false, attempts
		case <-time.After(s.opts.pollInterval):
		}
	}
}

// skuChecksum fingerprints a SKU set order-independently.
func skuChecksum(skus []string) string {
	sorted := append([]string(nil), skus...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))

	return fmt.Sprintf("%x", sum)
}

func (s *publishService) transition(next entity.PublishPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordPhaseLocked()
	s.phase = next
}

// complete ends the run. Reaching the poll ceiling without convergence is
// success-with-caveat, not an error: the durable write already happened and
// propagation-confirmation failure is advisory.
func (s *publishService) complete(logger *slog.Logger, converged bool, attempts int) {
	s.mu.Lock()
	s.recordPhaseLocked()
	s.phase = entity.PhaseComplete
	if converged {
		s.message = "Catalog published and confirmed live"
	} else {
		s.message = "Catalog saved, but not yet confirmed live"
	}
	s.diag.Converged = converged
	s.diag.PollAttempts = attempts
	s.finishDiagLocked()
	runID := s.diag.RunID
	s.mu.Unlock()

	logger.Info("Publish run complete", slog.Bool("converged", converged))

	// complete auto-resets to idle once the operator has had a moment to
	// see the result; error states persist until cleared.
	time.AfterFunc(s.opts.resetGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.phase == entity.PhaseComplete && s.diag != nil && s.diag.RunID == runID {
			s.phase = entity.PhaseIdle
			s.message = ""
		}
	})
}

func (s *publishService) fail(logger *slog.Logger, message string, err error) {
	s.mu.Lock()
	s.recordPhaseLocked()
	s.phase = entity.PhaseError
	s.message = message + ": " + err.Error()
	s.finishDiagLocked()
	s.mu.Unlock()

	logger.Error("Publish run failed", slog.Any("error", err))
}

func (s *publishService) setReceipt(receipt entity.WriteReceipt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diag.Receipt = &receipt
}

func (s *publishService) setInvalidations(results []entity.InvalidationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diag.Invalidations = results
}

func (s *publishService) currentRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.diag == nil {
		return ""
	}

	return s.diag.RunID
}

// recordPhaseLocked closes the timing of the phase being left.
func (s *publishService) recordPhaseLocked() {
	if s.phase != entity.PhaseIdle {
		s.phaseTimings[string(s.phase)] += time.Since(s.phaseStarted)
	}
	s.phaseStarted = time.Now()
}

func (s *publishService) finishDiagLocked() {
	s.diag.FinishedAt = time.Now().UTC()
	timings := make(map[string]string, len(s.phaseTimings))
	for phase, elapsed := range s.phaseTimings {
		timings[phase] = util.FormatDuration(elapsed)
	}
	s.diag.PhaseTimings = timings
}

func (s *publishService) statusLocked() entity.PublishStatus {
	status := entity.PublishStatus{
		Phase:   s.phase,
		Message: s.message,
	}
	if s.diag != nil {
		diagCopy := *s.diag
		status.Diagnostics = &diagCopy
	}

	return status
}

func (s *publishService) overallTimeout() time.Duration {
	return s.opts.pollCeiling + s.opts.invalidationTimeout + 2*time.Minute
}
