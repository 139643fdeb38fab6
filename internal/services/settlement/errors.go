package settlement

// SettlementError is a custom error type for settlement-related errors
type SettlementError string

// Error implements the error interface
func (e SettlementError) Error() string {
	return string(e)
}

// Define errors
const (
	// ErrInvalidParticipants is returned for a team-size mismatch
	ErrInvalidParticipants SettlementError = "invalid participants for match kind"

	// ErrDuplicateParticipant is returned when a player appears twice in a report
	ErrDuplicateParticipant SettlementError = "participants must be unique"

	// ErrUnknownParticipant is returned when a reported player is not registered
	ErrUnknownParticipant SettlementError = "unknown participant"

	// ErrEmptyScore is returned for a report without a score
	ErrEmptyScore SettlementError = "score cannot be empty"

	// ErrNotAuthorized is returned when the requester may not perform the action
	ErrNotAuthorized SettlementError = "not authorized"

	// ErrAlreadySettled is returned when a pending report was settled first by
	// someone else; an informational no-op for the loser of the claim race
	ErrAlreadySettled SettlementError = "match already settled"

	// ErrMatchNotFound is returned for operations on a nonexistent match
	ErrMatchNotFound SettlementError = "match not found"

	// ErrPlayerNotFound is returned for operations on a nonexistent player
	ErrPlayerNotFound SettlementError = "player not found"

	ErrNilConfig       SettlementError = "config cannot be nil"
	ErrNilPlayerRepo   SettlementError = "player repository cannot be nil"
	ErrNilMatchRepo    SettlementError = "match repository cannot be nil"
	ErrNilRatingEngine SettlementError = "rating engine cannot be nil"
	ErrNilScheduler    SettlementError = "scheduler cannot be nil"
)
