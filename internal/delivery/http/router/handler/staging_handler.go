package handler

import (
	"io"
	"log/slog"
	"net/http"

	"roastery/internal/delivery/http/response"
	"roastery/internal/domain/entity"
	"roastery/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// StagingHandler exposes the operator's staged working copy of the catalog.
type StagingHandler struct {
	uc     usecase.StagingUsecase
	logger *slog.Logger
}

// NewStagingHandler is the constructor for StagingHandler, injected by Fx.
func NewStagingHandler(uc usecase.StagingUsecase, logger *slog.Logger) *StagingHandler {
	return &StagingHandler{
		uc:     uc,
		logger: logger,
	}
}

// stagingView is the admin listing payload.
type stagingView struct {
	Products []entity.Product `json:"products"`
	Dirty    bool             `json:"dirty"`
	Changes  entity.ChangeSet `json:"changes"`
}

// List handles the staged catalog listing request.
func (h *StagingHandler) List(c echo.Context) error {
	view := stagingView{
		Products: h.uc.List(),
		Dirty:    h.uc.Dirty(),
		Changes:  h.uc.Diff(),
	}

	return response.Success(c, http.StatusOK, view, "Staged catalog retrieved successfully")
}

// Add handles staging a new product.
func (h *StagingHandler) Add(c echo.Context) error {
	var input entity.Product
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid product input")
	}

	if err := h.uc.Add(input); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, input, "Product staged successfully")
}

// Update handles a partial update of a staged product.
func (h *StagingHandler) Update(c echo.Context) error {
	sku := c.Param("sku")

	var patch usecase.ProductPatch
	if err := c.Bind(&patch); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid product patch")
	}

	updated, err := h.uc.Update(sku, patch)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, updated, "Product updated successfully")
}

// Remove handles unstaging a single SKU. Removing an absent SKU succeeds.
func (h *StagingHandler) Remove(c echo.Context) error {
	h.uc.Remove(c.Param("sku"))

	return response.Success(c, http.StatusOK, nil, "Product removed from staging")
}

// bulkRemoveInput is the payload for batch removal.
type bulkRemoveInput struct {
	SKUs []string `json:"skus" validate:"required"`
}

// BulkRemove handles unstaging a batch of SKUs.
func (h *StagingHandler) BulkRemove(c echo.Context) error {
	var input bulkRemoveInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid bulk remove input")
	}
	if err := c.Validate(&input); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "skus is required")
	}

	h.uc.BulkRemove(input.SKUs)

	return response.Success(c, http.StatusOK, map[string]int{"removed": len(input.SKUs)}, "Products removed from staging")
}

// Diff handles the staged-versus-baseline change set request.
func (h *StagingHandler) Diff(c echo.Context) error {
	view := map[string]any{
		"dirty":   h.uc.Dirty(),
		"changes": h.uc.Diff(),
	}

	return response.Success(c, http.StatusOK, view, "Change set computed successfully")
}

// Discard handles resetting the staged catalog to the baseline.
func (h *StagingHandler) Discard(c echo.Context) error {
	h.uc.Discard()

	return response.Success(c, http.StatusOK, nil, "Staged changes discarded")
}

// Import handles a CSV upload into the staging area. With replace=true the
// staged catalog is substituted instead of merged.
func (h *StagingHandler) Import(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "CSV file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errors.WithStack(err)
	}

	replace := c.QueryParam("replace") == "true"

	report, err := h.uc.ImportCSV(data, replace)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, report, "CSV imported successfully")
}

// Export handles downloading the staged catalog as CSV.
func (h *StagingHandler) Export(c echo.Context) error {
	data, err := h.uc.ExportCSV()
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)

	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
