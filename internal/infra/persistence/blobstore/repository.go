package blobstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roastery/config"
	"roastery/internal/domain/entity"
	"roastery/internal/domain/repository"
	"roastery/internal/domain/service"
	"roastery/internal/infra/codec"
	"roastery/internal/util"

	"github.com/pkg/errors"
)

const catalogContentType = "text/csv; charset=utf-8"

type catalogRepository struct {
	store          service.ObjectStore
	logger         *slog.Logger
	key            string
	verifyAttempts int
	verifyBaseWait time.Duration
}

// NewCatalogRepository creates the blob-backed catalog repository.
func NewCatalogRepository(store service.ObjectStore, cfg *config.Config, logger *slog.Logger) repository.CatalogRepository {
	return &catalogRepository{
		store:          store,
		logger:         logger,
		key:            cfg.Blob.CatalogKey,
		verifyAttempts: cfg.Blob.VerifyAttempts,
		verifyBaseWait: cfg.Blob.VerifyBaseWait,
	}
}

// Read decodes the current published catalog. The header-only tombstone and
// a never-initialized store both decode to an empty list; any other failure
// is a hard error so callers never mistake "unreachable" for "empty".
func (r *catalogRepository) Read(ctx context.Context) ([]entity.Product, error) {
	data, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, service.ErrObjectNotFound) {
			return []entity.Product{}, nil
		}

		return nil, errors.Wrap(err, "fetch catalog artifact")
	}

	products, report, err := codec.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog artifact")
	}

	for _, skipped := range report.Skipped {
		r.logger.Warn("Dropped malformed catalog row",
			slog.Int("line", skipped.Line),
			slog.String("reason", skipped.Reason),
		)
	}

	return products, nil
}

// Write encodes and durably stores the catalog, then runs a bounded
// read-after-write verification loop. Verification exhausting its attempts
// is a soft warning on the receipt: the store accepted the write, so the
// publish may proceed to cache invalidation.
func (r *catalogRepository) Write(ctx context.Context, products []entity.Product) (entity.WriteReceipt, error) {
	data, err := codec.Encode(products)
	if err != nil {
		return entity.WriteReceipt{}, errors.Wrap(err, "encode catalog")
	}

	fingerprint := util.Checksum(data)
	if _, err := r.store.Put(ctx, r.key, data, service.PutOptions{
		ContentType:    catalogContentType,
		AllowOverwrite: true,
	}); err != nil {
		return entity.WriteReceipt{}, errors.Wrap(err, "store catalog artifact")
	}

	receipt := entity.WriteReceipt{
		Fingerprint:  fingerprint,
		SizeBytes:    int64(len(data)),
		ProductCount: len(products),
		WrittenAt:    time.Now().UTC(),
	}

	r.logger.Info("Catalog artifact written",
		slog.String("key", r.key),
		slog.Int("products", len(products)),
		slog.String("size", util.FormatBytes(receipt.SizeBytes)),
		slog.String("fingerprint", fingerprint),
	)

	if err := r.verify(ctx, fingerprint); err != nil {
		receipt.VerifyWarning = err.Error()
		r.logger.Warn("Catalog write not confirmed by read-after-write",
			slog.String("key", r.key),
			slog.String("warning", receipt.VerifyWarning),
		)
	} else {
		receipt.Verified = true
	}

	return receipt, nil
}

// verify re-reads the artifact with exponential backoff until its content
// matches what was written, or attempts run out.
func (r *catalogRepository) verify(ctx context.Context, fingerprint string) error {
	attempts := r.verifyAttempts
	if attempts <= 0 {
		attempts = 5
	}
	wait := r.verifyBaseWait
	if wait <= 0 {
		wait = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err := r.store.Get(ctx, r.key)
		switch {
		case err == nil && util.Checksum(data) == fingerprint:
			return nil
		case err != nil:
			lastErr = err
		default:
			lastErr = errors.New("artifact content does not match the written fingerprint")
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "verification cancelled")
		case <-time.After(wait):
		}
		wait *= 2
	}

	return fmt.Errorf("write not confirmed after %d attempts: %w", attempts, lastErr)
}
