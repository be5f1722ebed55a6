package main

import (
	"context"
	"log/slog"
	"os"

	"roastery/config"
	"roastery/internal/delivery"
	"roastery/internal/delivery/http"
	"roastery/internal/delivery/http/router/handler"
	"roastery/internal/domain/service"
	"roastery/internal/infra/cache"
	"roastery/internal/infra/grouping"
	logs "roastery/internal/infra/log"
	"roastery/internal/infra/persistence/blobstore"
	"roastery/internal/infra/readpath"
	"roastery/internal/usecase"
	"roastery/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectHandler(),
		fx.Invoke(
			loadStaging,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		blobstore.NewBucket,
		blobstore.NewObjectStore,
		cache.NewMemoryCache,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			blobstore.NewCatalogRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			grouping.New,
			readpath.NewLiveCatalogReader,
			newInvalidators,
		),
	)
}

// newInvalidators fixes the cache invalidation fan-out order: CDN tags
// first, then path revalidation, then the in-process cache.
func newInvalidators(cfg *config.Config, logger *slog.Logger, memCache *cache.MemoryCache) []service.Invalidator {
	return []service.Invalidator{
		cache.NewTagInvalidator(cfg, logger),
		cache.NewPathInvalidator(cfg, logger),
		cache.NewMemoryInvalidator(memCache),
	}
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewStagingService,
			impl.NewPublishService,
			impl.NewCatalogService,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewCatalogHandler,
			handler.NewStagingHandler,
			handler.NewPublishHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// loadStaging seeds the staged catalog and its baseline from the published
// artifact before the HTTP surface accepts traffic.
func loadStaging(ctx context.Context, staging usecase.StagingUsecase, logger *slog.Logger) error {
	if err := staging.Load(ctx); err != nil {
		logger.Error("Failed to load staged catalog", slog.Any("error", err))

		return err
	}

	return nil
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
