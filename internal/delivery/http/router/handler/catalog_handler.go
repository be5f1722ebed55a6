// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"roastery/internal/delivery/http/response"
	"roastery/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// CatalogHandler serves the published catalog on the public read path.
type CatalogHandler struct {
	uc     usecase.CatalogUsecase
	logger *slog.Logger
}

// NewCatalogHandler is the constructor for CatalogHandler, injected by Fx.
func NewCatalogHandler(uc usecase.CatalogUsecase, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		uc:     uc,
		logger: logger,
	}
}

// ListProducts handles the public catalog listing request.
// Query parameters: category, status, fresh.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	filter := usecase.CatalogFilter{
		Category: c.QueryParam("category"),
		Status:   c.QueryParam("status"),
	}
	fresh := c.QueryParam("fresh") != ""

	products, err := h.uc.Products(c.Request().Context(), filter, fresh)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, products, "Catalog retrieved successfully")
}

// ListFamilies handles the grouped catalog view request.
func (h *CatalogHandler) ListFamilies(c echo.Context) error {
	fresh := c.QueryParam("fresh") != ""

	view, err := h.uc.Families(c.Request().Context(), fresh)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, view, "Catalog families retrieved successfully")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
