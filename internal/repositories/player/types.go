package player

import "github.com/rallyrank/rallyrank/internal/models"

// GetOrCreatePlayerInput contains parameters for fetching or creating a player
type GetOrCreatePlayerInput struct {
	PlayerID string
	Name     string
	Handle   string
}

// GetPlayerInput contains parameters for retrieving a player
type GetPlayerInput struct {
	PlayerID string
}

// ResolveHandleInput contains parameters for resolving a handle to a player ID
type ResolveHandleInput struct {
	Handle string
}

// AdjustRatingInput contains parameters for applying a rating delta.
// A positive delta counts as a win, anything else as a loss.
type AdjustRatingInput struct {
	PlayerID string
	Delta    int
}

// GetRoundedRatingInput contains parameters for reading a display rating
type GetRoundedRatingInput struct {
	PlayerID string
}

// GetLeaderboardInput contains parameters for reading the standings
type GetLeaderboardInput struct {
}

// GetLeaderboardOutput contains the standings ordered by rating descending
type GetLeaderboardOutput struct {
	Entries []*models.LeaderboardEntry
}
