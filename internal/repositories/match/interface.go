package match

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/rallyrank/rallyrank/internal/repositories/match Repository

import (
	"context"

	"github.com/rallyrank/rallyrank/internal/models"
)

// Repository defines the interface for match data persistence
type Repository interface {
	// CreatePending stores a new pending match report and returns it with
	// its assigned ID
	CreatePending(ctx context.Context, input *CreatePendingInput) (*models.PendingMatch, error)

	// GetPending retrieves a pending match by ID without claiming it
	GetPending(ctx context.Context, input *GetPendingInput) (*models.PendingMatch, error)

	// TryClaim atomically claims a pending match for settlement. Under
	// concurrent callers racing on the same ID exactly one observes success;
	// all others get ErrPendingNotFound.
	TryClaim(ctx context.Context, input *TryClaimInput) (*models.PendingMatch, error)

	// Finalize writes a settled match to history and removes the claimed
	// pending report. Only valid after a successful TryClaim.
	Finalize(ctx context.Context, input *FinalizeInput) (*models.Match, error)

	// Discard removes a claimed pending report without writing history
	Discard(ctx context.Context, input *DiscardInput) error

	// GetFinalized retrieves a settled match by ID
	GetFinalized(ctx context.Context, input *GetFinalizedInput) (*models.Match, error)

	// GetHistory returns settled matches ordered by settlement time
	// descending, limited to Limit entries
	GetHistory(ctx context.Context, input *GetHistoryInput) (*GetHistoryOutput, error)

	// DeleteFinalized hard-deletes a history entry, reporting whether it existed
	DeleteFinalized(ctx context.Context, input *DeleteFinalizedInput) (bool, error)
}
