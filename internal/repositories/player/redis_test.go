package player

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/rallyrank/rallyrank/internal/models"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	repo   Repository
	ctx    context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	// Create a new miniredis server for each test
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	// Create a Redis client connected to the miniredis server
	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	// Create the repository
	repo, err := NewRedis(&Config{
		RedisClient: s.client,
	})
	s.Require().NoError(err)
	s.repo = repo

	s.ctx = context.Background()
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) TestGetOrCreatePlayerCreatesWithDefaults() {
	player, err := s.repo.GetOrCreatePlayer(s.ctx, &GetOrCreatePlayerInput{
		PlayerID: "player-1",
		Name:     "Alice",
		Handle:   "alice",
	})
	s.Require().NoError(err)
	s.Require().NotNil(player)

	s.Equal("player-1", player.ID)
	s.Equal("Alice", player.Name)
	s.InDelta(float64(models.DefaultRating), player.Rating, 1e-9)
	s.Equal(0, player.Wins)
	s.Equal(0, player.Losses)
}

func (s *RedisRepositoryTestSuite) TestGetOrCreatePlayerKeepsExistingRating() {
	_, err := s.repo.GetOrCreatePlayer(s.ctx, &GetOrCreatePlayerInput{
		PlayerID: "player-1",
		Name:     "Alice",
		Handle:   "alice",
	})
	s.Require().NoError(err)

	err = s.repo.AdjustRating(s.ctx, &AdjustRatingInput{
		PlayerID: "player-1",
		Delta:    8,
	})
	s.Require().NoError(err)

	// A repeated interaction refreshes the name but never resets progress
	player, err := s.repo.GetOrCreatePlayer(s.ctx, &GetOrCreatePlayerInput{
		PlayerID: "player-1",
		Name:     "Alice Renamed",
		Handle:   "alice",
	})
	s.Require().NoError(err)

	s.Equal("Alice Renamed", player.Name)
	s.InDelta(1008, player.Rating, 1e-9)
	s.Equal(1, player.Wins)
}

func (s *RedisRepositoryTestSuite) TestGetPlayerNotFound() {
	_, err := s.repo.GetPlayer(s.ctx, &GetPlayerInput{
		PlayerID: "missing",
	})
	s.Require().ErrorIs(err, ErrPlayerNotFound)
}

func (s *RedisRepositoryTestSuite) TestResolveHandle() {
	_, err := s.repo.GetOrCreatePlayer(s.ctx, &GetOrCreatePlayerInput{
		PlayerID: "player-1",
		Name:     "Alice",
		Handle:   "alice",
	})
	s.Require().NoError(err)

	playerID, err := s.repo.ResolveHandle(s.ctx, &ResolveHandleInput{
		Handle: "alice",
	})
	s.Require().NoError(err)
	s.Equal("player-1", playerID)

	_, err = s.repo.ResolveHandle(s.ctx, &ResolveHandleInput{
		Handle: "nobody",
	})
	s.Require().ErrorIs(err, ErrHandleNotFound)
}

func (s *RedisRepositoryTestSuite) TestAdjustRatingWinAndLoss() {
	_, err := s.repo.GetOrCreatePlayer(s.ctx, &GetOrCreatePlayerInput{
		PlayerID: "player-1",
		Name:     "Alice",
	})
	s.Require().NoError(err)

	err = s.repo.AdjustRating(s.ctx, &AdjustRatingInput{
		PlayerID: "player-1",
		Delta:    8,
	})
	s.Require().NoError(err)

	err = s.repo.AdjustRating(s.ctx, &AdjustRatingInput{
		PlayerID: "player-1",
		Delta:    -4,
	})
	s.Require().NoError(err)

	player, err := s.repo.GetPlayer(s.ctx, &GetPlayerInput{
		PlayerID: "player-1",
	})
	s.Require().NoError(err)

	s.InDelta(1004, player.Rating, 1e-9)
	s.Equal(1, player.Wins)
	s.Equal(1, player.Losses)
}

func (s *RedisRepositoryTestSuite) TestAdjustRatingUnknownPlayer() {
	err := s.repo.AdjustRating(s.ctx, &AdjustRatingInput{
		PlayerID: "missing",
		Delta:    8,
	})
	s.Require().ErrorIs(err, ErrPlayerNotFound)
}

func (s *RedisRepositoryTestSuite) TestGetRoundedRatingHalfToEven() {
	_, err := s.repo.GetOrCreatePlayer(s.ctx, &GetOrCreatePlayerInput{
		PlayerID: "player-1",
		Name:     "Alice",
	})
	s.Require().NoError(err)

	// Drive the continuous rating to exact .5 ties and pin the tie-breaking
	s.mr.HSet("player:player-1", "rating", "1007.5")
	rounded, err := s.repo.GetRoundedRating(s.ctx, &GetRoundedRatingInput{
		PlayerID: "player-1",
	})
	s.Require().NoError(err)
	s.Equal(1008, rounded)

	s.mr.HSet("player:player-1", "rating", "1006.5")
	rounded, err = s.repo.GetRoundedRating(s.ctx, &GetRoundedRatingInput{
		PlayerID: "player-1",
	})
	s.Require().NoError(err)
	s.Equal(1006, rounded)
}

func (s *RedisRepositoryTestSuite) TestGetRoundedRatingNotFound() {
	_, err := s.repo.GetRoundedRating(s.ctx, &GetRoundedRatingInput{
		PlayerID: "missing",
	})
	s.Require().ErrorIs(err, ErrPlayerNotFound)
}

func (s *RedisRepositoryTestSuite) TestGetLeaderboardOrdering() {
	for _, p := range []struct {
		id    string
		name  string
		delta int
	}{
		{"player-1", "Alice", 8},
		{"player-2", "Bob", -8},
		{"player-3", "Carol", 20},
	} {
		_, err := s.repo.GetOrCreatePlayer(s.ctx, &GetOrCreatePlayerInput{
			PlayerID: p.id,
			Name:     p.name,
		})
		s.Require().NoError(err)

		err = s.repo.AdjustRating(s.ctx, &AdjustRatingInput{
			PlayerID: p.id,
			Delta:    p.delta,
		})
		s.Require().NoError(err)
	}

	out, err := s.repo.GetLeaderboard(s.ctx, &GetLeaderboardInput{})
	s.Require().NoError(err)
	s.Require().Len(out.Entries, 3)

	s.Equal("Carol", out.Entries[0].Name)
	s.Equal(1020, out.Entries[0].Rating)
	s.Equal("Alice", out.Entries[1].Name)
	s.Equal(1008, out.Entries[1].Rating)
	s.Equal("Bob", out.Entries[2].Name)
	s.Equal(992, out.Entries[2].Rating)
	s.Equal(1, out.Entries[2].Losses)
}

func (s *RedisRepositoryTestSuite) TestGetLeaderboardEmpty() {
	out, err := s.repo.GetLeaderboard(s.ctx, &GetLeaderboardInput{})
	s.Require().NoError(err)
	s.Empty(out.Entries)
}
