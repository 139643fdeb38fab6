package settlement

import "context"

// Service defines the interface for match settlement operations
type Service interface {
	// RegisterPlayer fetches or creates a player on first interaction
	RegisterPlayer(ctx context.Context, input *RegisterPlayerInput) (*RegisterPlayerOutput, error)

	// SubmitResult validates a match report, stores it as pending, and arms
	// the expiry timer
	SubmitResult(ctx context.Context, input *SubmitResultInput) (*SubmitResultOutput, error)

	// Confirm settles a pending report on behalf of a participant
	Confirm(ctx context.Context, input *ConfirmInput) (*ConfirmOutput, error)

	// ExpirePending discards a pending report whose timer fired; a no-op if
	// the report was already settled
	ExpirePending(ctx context.Context, input *ExpirePendingInput) (*ExpirePendingOutput, error)

	// DeleteHistoryEntry hard-deletes a settled match on behalf of a
	// privileged requester
	DeleteHistoryEntry(ctx context.Context, input *DeleteHistoryEntryInput) (*DeleteHistoryEntryOutput, error)

	// GetLeaderboard returns the standings ordered by rating descending
	GetLeaderboard(ctx context.Context, input *GetLeaderboardInput) (*GetLeaderboardOutput, error)

	// GetPlayerStats returns one player's stats row, looked up by ID or handle
	GetPlayerStats(ctx context.Context, input *GetPlayerStatsInput) (*GetPlayerStatsOutput, error)

	// GetHistory returns recent settled matches, most recent first
	GetHistory(ctx context.Context, input *GetHistoryInput) (*GetHistoryOutput, error)
}
