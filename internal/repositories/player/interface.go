package player

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/rallyrank/rallyrank/internal/repositories/player Repository

import (
	"context"

	"github.com/rallyrank/rallyrank/internal/models"
)

// Repository defines the interface for player data persistence
type Repository interface {
	// GetOrCreatePlayer fetches a player by ID, creating it with the default
	// rating on first interaction, and refreshes the name and handle mapping
	GetOrCreatePlayer(ctx context.Context, input *GetOrCreatePlayerInput) (*models.Player, error)

	// GetPlayer retrieves a player by ID
	GetPlayer(ctx context.Context, input *GetPlayerInput) (*models.Player, error)

	// ResolveHandle maps a display handle to a player ID
	ResolveHandle(ctx context.Context, input *ResolveHandleInput) (string, error)

	// AdjustRating atomically adds a delta to a player's continuous rating
	// and increments the win or loss counter
	AdjustRating(ctx context.Context, input *AdjustRatingInput) error

	// GetRoundedRating returns the stored rating rounded half-to-even
	GetRoundedRating(ctx context.Context, input *GetRoundedRatingInput) (int, error)

	// GetLeaderboard returns all players ordered by rating descending
	GetLeaderboard(ctx context.Context, input *GetLeaderboardInput) (*GetLeaderboardOutput, error)
}
