package cache

import (
	"context"
	"log/slog"

	"roastery/config"
	"roastery/internal/domain/service"

	"github.com/pkg/errors"
)

// pathInvalidator flushes each known public route individually. It runs
// after the tag pass: tags catch the bulk, paths catch routes rendered
// outside the tagged readers.
type pathInvalidator struct {
	client *revalidateClient
	paths  []string
	logger *slog.Logger
}

// NewPathInvalidator creates the path-based page cache invalidator.
func NewPathInvalidator(cfg *config.Config, logger *slog.Logger) service.Invalidator {
	return &pathInvalidator{
		client: newRevalidateClient(cfg, logger),
		paths:  cfg.Revalidate.Paths,
		logger: logger,
	}
}

func (i *pathInvalidator) Name() string {
	return "path"
}

func (i *pathInvalidator) Invalidate(ctx context.Context) error {
	var failed error
	for _, path := range i.paths {
		if err := i.client.post(ctx, revalidateRequest{Path: path, Scope: "page"}); err != nil {
			i.logger.Warn("Path invalidation failed",
				slog.String("path", path),
				slog.Any("error", err),
			)
			failed = errors.Wrapf(err, "invalidate path %s", path)

			continue
		}
		i.logger.Debug("Path invalidated", slog.String("path", path))
	}

	return failed
}
