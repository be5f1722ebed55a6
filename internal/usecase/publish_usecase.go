package usecase

import (
	"context"

	"roastery/internal/domain/entity"
)

// PublishUsecase drives the staged catalog to the durable store and the
// dependent caches, then confirms the public read path reflects it.
//
// Exactly one publish run may be active at a time; concurrent requests are
// rejected with ErrPublishInFlight, not queued.
type PublishUsecase interface {
	// Publish starts a publish run for the current staged catalog and
	// returns immediately with the accepted status. The run progresses
	// asynchronously through the state machine.
	Publish(ctx context.Context) (entity.PublishStatus, error)

	// Status returns a snapshot of the state machine.
	Status() entity.PublishStatus

	// Retry re-enters the pipeline from the top with the same change set.
	// Only valid from the error state.
	Retry(ctx context.Context) (entity.PublishStatus, error)

	// Clear returns a persisted error state to idle.
	Clear() error
}
