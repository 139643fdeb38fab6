package match

import "github.com/rallyrank/rallyrank/internal/models"

// CreatePendingInput contains parameters for storing a pending match report
type CreatePendingInput struct {
	Kind      models.MatchKind
	WinnerIDs []string
	LoserIDs  []string
	Score     string
	ChannelID string
	MessageID string
}

// GetPendingInput contains parameters for reading a pending match
type GetPendingInput struct {
	PendingID int64
}

// TryClaimInput contains parameters for claiming a pending match
type TryClaimInput struct {
	PendingID int64

	// ClaimToken records who won the claim; useful when diagnosing a
	// finalize failure after a successful claim
	ClaimToken string
}

// FinalizeInput contains parameters for settling a claimed pending match
type FinalizeInput struct {
	PendingID int64
	Kind      models.MatchKind
	WinnerIDs []string
	LoserIDs  []string
	Score     string
}

// DiscardInput contains parameters for dropping a claimed pending match
type DiscardInput struct {
	PendingID int64
}

// GetFinalizedInput contains parameters for reading a settled match
type GetFinalizedInput struct {
	MatchID int64
}

// GetHistoryInput contains parameters for listing settled matches
type GetHistoryInput struct {
	Limit int
}

// GetHistoryOutput contains settled matches, most recent first
type GetHistoryOutput struct {
	Matches []*models.Match
}

// DeleteFinalizedInput contains parameters for hard-deleting a history entry
type DeleteFinalizedInput struct {
	MatchID int64
}
