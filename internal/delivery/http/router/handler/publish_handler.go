package handler

import (
	"log/slog"
	"net/http"

	"roastery/internal/delivery/http/response"
	"roastery/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// PublishHandler exposes the publish pipeline.
type PublishHandler struct {
	uc     usecase.PublishUsecase
	logger *slog.Logger
}

// NewPublishHandler is the constructor for PublishHandler, injected by Fx.
func NewPublishHandler(uc usecase.PublishUsecase, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{
		uc:     uc,
		logger: logger,
	}
}

// Publish starts a publish run for the staged catalog. The run progresses
// asynchronously; the response carries the accepted status.
func (h *PublishHandler) Publish(c echo.Context) error {
	status, err := h.uc.Publish(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, status, "Publish started")
}

// Status returns a snapshot of the publish state machine.
func (h *PublishHandler) Status(c echo.Context) error {
	return response.Success(c, http.StatusOK, h.uc.Status(), "Publish status retrieved successfully")
}

// Retry re-runs a failed publish with the same change set.
func (h *PublishHandler) Retry(c echo.Context) error {
	status, err := h.uc.Retry(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, status, "Publish retry started")
}

// Clear acknowledges a failed publish and returns the pipeline to idle.
func (h *PublishHandler) Clear(c echo.Context) error {
	if err := h.uc.Clear(); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Publish error cleared")
}
