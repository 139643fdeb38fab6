package models

// LeaderboardEntry is a single row of the rating standings
type LeaderboardEntry struct {
	// PlayerID is the player's ID
	PlayerID string

	// Name is the player's display name
	Name string

	// Rating is the player's rating rounded half-to-even for display
	Rating int

	// Wins is the player's settled win count
	Wins int

	// Losses is the player's settled loss count
	Losses int
}
