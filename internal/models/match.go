package models

import (
	"time"
)

// MatchKind identifies the team layout of a match
type MatchKind string

const (
	// MatchKindSingles is a 1v1 match
	MatchKindSingles MatchKind = "singles"

	// MatchKindDoubles is a 2v2 match
	MatchKindDoubles MatchKind = "doubles"
)

// TeamSize returns the number of players per side, or 0 for an unknown kind
func (k MatchKind) TeamSize() int {
	switch k {
	case MatchKindSingles:
		return 1
	case MatchKindDoubles:
		return 2
	default:
		return 0
	}
}

// PendingStatus represents the lifecycle state of a pending match
type PendingStatus string

const (
	// PendingStatusPending indicates the report is awaiting confirmation or expiry
	PendingStatusPending PendingStatus = "pending"

	// PendingStatusClaimed indicates a settler has exclusively claimed the report
	PendingStatusClaimed PendingStatus = "claimed"
)

// PendingMatch is a submitted match report awaiting confirmation or expiry.
// It is consumed exactly once: either finalized into a Match or discarded.
type PendingMatch struct {
	// ID is the unique, monotonically assigned report ID
	ID int64

	// Kind is the team layout of the reported match
	Kind MatchKind

	// WinnerIDs are the player IDs on the winning side, in reported order
	WinnerIDs []string

	// LoserIDs are the player IDs on the losing side, in reported order
	LoserIDs []string

	// Score is the raw reported score text
	Score string

	// Status is the lifecycle state of the report
	Status PendingStatus

	// ChannelID is the Discord channel the report was submitted in
	ChannelID string

	// MessageID is the Discord message carrying the confirmation prompt
	MessageID string

	// CreatedAt is when the report was submitted
	CreatedAt time.Time
}

// Participants returns winner and loser IDs as a single slice
func (p *PendingMatch) Participants() []string {
	ids := make([]string, 0, len(p.WinnerIDs)+len(p.LoserIDs))
	ids = append(ids, p.WinnerIDs...)
	ids = append(ids, p.LoserIDs...)
	return ids
}

// HasParticipant reports whether the given player took part in the match
func (p *PendingMatch) HasParticipant(playerID string) bool {
	for _, id := range p.Participants() {
		if id == playerID {
			return true
		}
	}
	return false
}

// Match is a settled match in the permanent history. Immutable once written;
// it can only be removed by an administrative hard delete.
type Match struct {
	// ID is the unique match ID
	ID int64

	// Kind is the team layout of the match
	Kind MatchKind

	// WinnerIDs are the player IDs on the winning side, in reported order
	WinnerIDs []string

	// LoserIDs are the player IDs on the losing side, in reported order
	LoserIDs []string

	// Score is the raw reported score text
	Score string

	// SettledAt is when the match was confirmed and settled
	SettledAt time.Time
}
