package settlement

import (
	"github.com/rallyrank/rallyrank/internal/models"
)

// RegisterPlayerInput contains parameters for registering a player
type RegisterPlayerInput struct {
	PlayerID string
	Name     string
	Handle   string
}

// RegisterPlayerOutput contains the registered player
type RegisterPlayerOutput struct {
	Player *models.Player
}

// SubmitResultInput contains a parsed match report
type SubmitResultInput struct {
	Kind      models.MatchKind
	WinnerIDs []string
	LoserIDs  []string
	Score     string

	// ChannelID and MessageID locate the confirmation prompt so the expiry
	// notice can reference the original report
	ChannelID string
	MessageID string
}

// SubmitResultOutput contains the stored pending report
type SubmitResultOutput struct {
	Pending *models.PendingMatch
}

// ConfirmInput contains a confirmation event
type ConfirmInput struct {
	PendingID   int64
	RequesterID string
}

// ConfirmOutput describes a completed settlement for notification rendering
type ConfirmOutput struct {
	// Match is the written history entry
	Match *models.Match

	// Delta is the rating points moved from the losing to the winning side
	Delta int

	// WinnerRatings and LoserRatings hold the new rounded ratings keyed by
	// player ID
	WinnerRatings map[string]int
	LoserRatings  map[string]int
}

// ExpirePendingInput contains a timer event
type ExpirePendingInput struct {
	PendingID int64
}

// ExpirePendingOutput reports whether the report was discarded; Pending holds
// the discarded snapshot when Expired is true
type ExpirePendingOutput struct {
	Expired bool
	Pending *models.PendingMatch
}

// DeleteHistoryEntryInput contains an administrative delete request
type DeleteHistoryEntryInput struct {
	MatchID int64

	// RequesterIsPrivileged is determined by the transport layer
	RequesterIsPrivileged bool
}

// DeleteHistoryEntryOutput reports whether a history entry existed
type DeleteHistoryEntryOutput struct {
	Deleted bool
}

// GetLeaderboardInput contains parameters for reading the standings
type GetLeaderboardInput struct {
}

// GetLeaderboardOutput contains the standings ordered by rating descending
type GetLeaderboardOutput struct {
	Entries []*models.LeaderboardEntry
}

// GetPlayerStatsInput locates a player by ID or, if empty, by handle
type GetPlayerStatsInput struct {
	PlayerID string
	Handle   string
}

// GetPlayerStatsOutput contains one player's stats row
type GetPlayerStatsOutput struct {
	Stats *models.LeaderboardEntry
}

// GetHistoryInput contains parameters for listing settled matches; a
// non-positive limit uses the configured default
type GetHistoryInput struct {
	Limit int
}

// GetHistoryOutput contains settled matches, most recent first
type GetHistoryOutput struct {
	Matches []*models.Match
}
