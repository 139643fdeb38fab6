package rating

import (
	"math"
)

const (
	// baseK is the K-factor floor applied to every match
	baseK = 15.0

	// kGapDivisor scales how much the rating gap widens the K-factor
	kGapDivisor = 100.0

	// logisticBase is the denominator of the standard Elo logistic curve
	logisticBase = 400.0
)

// Engine computes Elo rating deltas. It is stateless and safe for
// concurrent use.
type Engine struct{}

// Config for the rating engine
type Config struct{}

// New creates a new rating engine
func New(cfg *Config) *Engine {
	return &Engine{}
}

// KFactor returns the volatility coefficient for a match between the two
// ratings: K = 15 + |winner - loser| / 100. Wider skill gaps produce larger
// swings, rewarding upsets and dampening expected outcomes. Symmetric in
// its arguments.
func (e *Engine) KFactor(winnerRating, loserRating float64) float64 {
	return baseK + math.Abs(winnerRating-loserRating)/kGapDivisor
}

// ExpectedScore returns the winner's expected score on the standard
// base-400 logistic curve.
func (e *Engine) ExpectedScore(winnerRating, loserRating float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (loserRating-winnerRating)/logisticBase))
}

// Delta returns the rating points transferred from the losing side to the
// winning side. Always >= 0. The raw value is rounded half-to-even, so two
// evenly matched 1000-rated players swing by exactly 8 points.
func (e *Engine) Delta(winnerRating, loserRating float64) int {
	k := e.KFactor(winnerRating, loserRating)
	raw := k * (1.0 - e.ExpectedScore(winnerRating, loserRating))
	return int(math.RoundToEven(raw))
}

// TeamAverage returns the arithmetic mean of a team's member ratings, the
// single input used for each side of a doubles match.
func (e *Engine) TeamAverage(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings))
}
