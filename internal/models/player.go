package models

// DefaultRating is the rating assigned to a player on first interaction.
const DefaultRating = 1000

// Player represents a participant in the league
type Player struct {
	// ID is the Discord user ID of the player
	ID string

	// Name is the display name of the player
	Name string

	// Rating is the continuous Elo rating. Never displayed directly;
	// callers round it half-to-even for presentation.
	Rating float64

	// Wins is the number of settled matches the player won
	Wins int

	// Losses is the number of settled matches the player lost
	Losses int
}
