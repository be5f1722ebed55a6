package cache

import (
	"context"
	"log/slog"

	"roastery/config"
	"roastery/internal/domain/service"

	"github.com/pkg/errors"
)

// tagInvalidator issues coarse tag-based invalidation: every page reading
// the catalog under a given tag is flushed at once.
type tagInvalidator struct {
	client *revalidateClient
	tags   []string
	logger *slog.Logger
}

// NewTagInvalidator creates the tag-based page cache invalidator.
func NewTagInvalidator(cfg *config.Config, logger *slog.Logger) service.Invalidator {
	return &tagInvalidator{
		client: newRevalidateClient(cfg, logger),
		tags:   cfg.Revalidate.Tags,
		logger: logger,
	}
}

func (i *tagInvalidator) Name() string {
	return "tag"
}

func (i *tagInvalidator) Invalidate(ctx context.Context) error {
	var failed error
	for _, tag := range i.tags {
		if err := i.client.post(ctx, revalidateRequest{Tag: tag}); err != nil {
			i.logger.Warn("Tag invalidation failed",
				slog.String("tag", tag),
				slog.Any("error", err),
			)
			failed = errors.Wrapf(err, "invalidate tag %s", tag)

			continue
		}
		i.logger.Debug("Tag invalidated", slog.String("tag", tag))
	}

	return failed
}
