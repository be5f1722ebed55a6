// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"roastery/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	CatalogHandler *handler.CatalogHandler
	StagingHandler *handler.StagingHandler
	PublishHandler *handler.PublishHandler
}

// router holds all the handlers that need to be registered.
type router struct {
	catalogHandler *handler.CatalogHandler
	stagingHandler *handler.StagingHandler
	publishHandler *handler.PublishHandler
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		catalogHandler: params.CatalogHandler,
		stagingHandler: params.StagingHandler,
		publishHandler: params.PublishHandler,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Public storefront read path
	apiGroup := e.Group("/api")
	{
		apiGroup.GET("/catalog", r.catalogHandler.ListProducts)
		apiGroup.GET("/catalog/families", r.catalogHandler.ListFamilies)
	}

	// Admin surface: staging area and publish pipeline
	adminGroup := e.Group("/admin")
	{
		stagingGroup := adminGroup.Group("/staging")
		stagingGroup.GET("", r.stagingHandler.List)
		stagingGroup.POST("/products", r.stagingHandler.Add)
		stagingGroup.PUT("/products/:sku", r.stagingHandler.Update)
		stagingGroup.DELETE("/products/:sku", r.stagingHandler.Remove)
		stagingGroup.POST("/products/bulk-delete", r.stagingHandler.BulkRemove)
		stagingGroup.GET("/diff", r.stagingHandler.Diff)
		stagingGroup.POST("/discard", r.stagingHandler.Discard)
		stagingGroup.POST("/import", r.stagingHandler.Import)
		stagingGroup.GET("/export", r.stagingHandler.Export)

		publishGroup := adminGroup.Group("/publish")
		publishGroup.POST("", r.publishHandler.Publish)
		publishGroup.GET("/status", r.publishHandler.Status)
		publishGroup.POST("/retry", r.publishHandler.Retry)
		publishGroup.POST("/clear", r.publishHandler.Clear)
	}
}
