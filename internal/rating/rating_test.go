package rating

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RatingEngineTestSuite struct {
	suite.Suite
	engine *Engine
}

func (s *RatingEngineTestSuite) SetupTest() {
	s.engine = New(&Config{})
}

func TestRatingEngineTestSuite(t *testing.T) {
	suite.Run(t, new(RatingEngineTestSuite))
}

func (s *RatingEngineTestSuite) TestKFactor() {
	s.InDelta(15.0, s.engine.KFactor(1000, 1000), 1e-9)
	s.InDelta(17.0, s.engine.KFactor(1200, 1000), 1e-9)
	s.InDelta(17.0, s.engine.KFactor(1000, 1200), 1e-9)
}

func (s *RatingEngineTestSuite) TestKFactorSymmetric() {
	pairs := [][2]float64{
		{1000, 1000},
		{1234, 987},
		{800, 1600},
		{1001.5, 999.25},
	}

	for _, p := range pairs {
		s.InDelta(s.engine.KFactor(p[0], p[1]), s.engine.KFactor(p[1], p[0]), 1e-9)
	}
}

func (s *RatingEngineTestSuite) TestExpectedScore() {
	// Equal ratings are a coin flip
	s.InDelta(0.5, s.engine.ExpectedScore(1000, 1000), 1e-9)

	// A 200 point favorite expects roughly 76%
	s.InDelta(0.7597, s.engine.ExpectedScore(1200, 1000), 1e-4)

	// Expected scores of the two perspectives sum to 1
	sum := s.engine.ExpectedScore(1200, 1000) + s.engine.ExpectedScore(1000, 1200)
	s.InDelta(1.0, sum, 1e-9)
}

func (s *RatingEngineTestSuite) TestDeltaEqualRatings() {
	// K=15, expected=0.5, raw=7.5: the 7.5 tie must round to the even 8
	s.Equal(8, s.engine.Delta(1000, 1000))
}

func (s *RatingEngineTestSuite) TestDeltaFavoriteWins() {
	// K=17, expected~0.7597, raw~4.086
	s.Equal(4, s.engine.Delta(1200, 1000))
}

func (s *RatingEngineTestSuite) TestDeltaUpset() {
	// The underdog winning moves more points than the favorite winning
	upset := s.engine.Delta(1000, 1200)
	expected := s.engine.Delta(1200, 1000)
	s.Greater(upset, expected)
}

func (s *RatingEngineTestSuite) TestDeltaNeverNegative() {
	pairs := [][2]float64{
		{1000, 1000},
		{400, 2400},
		{2400, 400},
		{1050.75, 1049.25},
		{0, 0},
	}

	for _, p := range pairs {
		s.GreaterOrEqual(s.engine.Delta(p[0], p[1]), 0)
	}
}

func (s *RatingEngineTestSuite) TestTeamAverage() {
	s.InDelta(1000, s.engine.TeamAverage([]float64{1000}), 1e-9)
	s.InDelta(1100, s.engine.TeamAverage([]float64{1000, 1200}), 1e-9)
	s.InDelta(1003.5, s.engine.TeamAverage([]float64{1003, 1004}), 1e-9)
	s.InDelta(0, s.engine.TeamAverage(nil), 1e-9)
}
