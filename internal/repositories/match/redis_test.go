package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	clockMocks "github.com/rallyrank/rallyrank/internal/common/clock/mocks"
	"github.com/rallyrank/rallyrank/internal/models"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr        *miniredis.Miniredis
	client    *redis.Client
	repo      Repository
	ctx       context.Context
	mockCtrl  *gomock.Controller
	mockClock *clockMocks.MockClock
	now       time.Time
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

	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = clockMocks.NewMockClock(s.mockCtrl)

	// Each Now() call advances a second so history ordering is deterministic
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time {
		s.now = s.now.Add(time.Second)
		return s.now
	}).AnyTimes()

	// Create the repository
	repo, err := NewRedis(&Config{
		RedisClient: s.client,
		Clock:       s.mockClock,
	})
	s.Require().NoError(err)
	s.repo = repo

	s.ctx = context.Background()
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) createSingles() *models.PendingMatch {
	pending, err := s.repo.CreatePending(s.ctx, &CreatePendingInput{
		Kind:      models.MatchKindSingles,
		WinnerIDs: []string{"player-1"},
		LoserIDs:  []string{"player-2"},
		Score:     "11-9",
		ChannelID: "channel-1",
		MessageID: "message-1",
	})
	s.Require().NoError(err)
	return pending
}

func (s *RedisRepositoryTestSuite) TestCreatePendingRoundTrip() {
	pending, err := s.repo.CreatePending(s.ctx, &CreatePendingInput{
		Kind:      models.MatchKindDoubles,
		WinnerIDs: []string{"player-1", "player-2"},
		LoserIDs:  []string{"player-3", "player-4"},
		Score:     "11-7",
		ChannelID: "channel-1",
		MessageID: "message-1",
	})
	s.Require().NoError(err)
	s.Require().NotNil(pending)
	s.Equal(models.PendingStatusPending, pending.Status)

	got, err := s.repo.GetPending(s.ctx, &GetPendingInput{PendingID: pending.ID})
	s.Require().NoError(err)

	// The exact kind, teams, order, and score must survive storage
	s.Equal(models.MatchKindDoubles, got.Kind)
	s.Equal([]string{"player-1", "player-2"}, got.WinnerIDs)
	s.Equal([]string{"player-3", "player-4"}, got.LoserIDs)
	s.Equal("11-7", got.Score)
	s.Equal("channel-1", got.ChannelID)
	s.Equal("message-1", got.MessageID)
}

func (s *RedisRepositoryTestSuite) TestCreatePendingAssignsMonotonicIDs() {
	first := s.createSingles()
	second := s.createSingles()
	s.Greater(second.ID, first.ID)
}

func (s *RedisRepositoryTestSuite) TestCreatePendingRejectsDuplicates() {
	// Same player on both sides of a doubles report
	_, err := s.repo.CreatePending(s.ctx, &CreatePendingInput{
		Kind:      models.MatchKindDoubles,
		WinnerIDs: []string{"player-1", "player-2"},
		LoserIDs:  []string{"player-2", "player-3"},
		Score:     "11-7",
	})
	s.Require().ErrorIs(err, ErrInvalidParticipants)

	// Duplicate within a single side
	_, err = s.repo.CreatePending(s.ctx, &CreatePendingInput{
		Kind:      models.MatchKindDoubles,
		WinnerIDs: []string{"player-1", "player-1"},
		LoserIDs:  []string{"player-2", "player-3"},
		Score:     "11-7",
	})
	s.Require().ErrorIs(err, ErrInvalidParticipants)

	// Nothing may have been written
	s.Empty(s.mr.Keys())
}

func (s *RedisRepositoryTestSuite) TestTryClaimExactlyOnce() {
	pending := s.createSingles()

	claimed, err := s.repo.TryClaim(s.ctx, &TryClaimInput{
		PendingID:  pending.ID,
		ClaimToken: "token-1",
	})
	s.Require().NoError(err)
	s.Equal(models.PendingStatusClaimed, claimed.Status)
	s.Equal(pending.WinnerIDs, claimed.WinnerIDs)

	// The loser of the race observes absence
	_, err = s.repo.TryClaim(s.ctx, &TryClaimInput{
		PendingID:  pending.ID,
		ClaimToken: "token-2",
	})
	s.Require().ErrorIs(err, ErrPendingNotFound)
}

func (s *RedisRepositoryTestSuite) TestTryClaimUnknownID() {
	_, err := s.repo.TryClaim(s.ctx, &TryClaimInput{
		PendingID:  42,
		ClaimToken: "token-1",
	})
	s.Require().ErrorIs(err, ErrPendingNotFound)
}

func (s *RedisRepositoryTestSuite) TestTryClaimConcurrentRace() {
	pending := s.createSingles()

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.repo.TryClaim(s.ctx, &TryClaimInput{
				PendingID:  pending.ID,
				ClaimToken: "race-token",
			}); err == nil {
				wins <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	s.Equal(1, count)
}

func (s *RedisRepositoryTestSuite) TestFinalizeWritesHistoryAndRemovesPending() {
	pending := s.createSingles()

	_, err := s.repo.TryClaim(s.ctx, &TryClaimInput{
		PendingID:  pending.ID,
		ClaimToken: "token-1",
	})
	s.Require().NoError(err)

	settled, err := s.repo.Finalize(s.ctx, &FinalizeInput{
		PendingID: pending.ID,
		Kind:      pending.Kind,
		WinnerIDs: pending.WinnerIDs,
		LoserIDs:  pending.LoserIDs,
		Score:     pending.Score,
	})
	s.Require().NoError(err)
	s.Require().NotNil(settled)

	// The pending row is gone for good
	_, err = s.repo.GetPending(s.ctx, &GetPendingInput{PendingID: pending.ID})
	s.Require().ErrorIs(err, ErrPendingNotFound)

	got, err := s.repo.GetFinalized(s.ctx, &GetFinalizedInput{MatchID: settled.ID})
	s.Require().NoError(err)
	s.Equal(pending.WinnerIDs, got.WinnerIDs)
	s.Equal(pending.LoserIDs, got.LoserIDs)
	s.Equal("11-9", got.Score)
}

func (s *RedisRepositoryTestSuite) TestDiscardLeavesNoTrace() {
	pending := s.createSingles()

	_, err := s.repo.TryClaim(s.ctx, &TryClaimInput{
		PendingID:  pending.ID,
		ClaimToken: "token-1",
	})
	s.Require().NoError(err)

	err = s.repo.Discard(s.ctx, &DiscardInput{PendingID: pending.ID})
	s.Require().NoError(err)

	_, err = s.repo.GetPending(s.ctx, &GetPendingInput{PendingID: pending.ID})
	s.Require().ErrorIs(err, ErrPendingNotFound)

	history, err := s.repo.GetHistory(s.ctx, &GetHistoryInput{Limit: 10})
	s.Require().NoError(err)
	s.Empty(history.Matches)
}

func (s *RedisRepositoryTestSuite) TestGetHistoryOrderAndLimit() {
	var settledIDs []int64
	for i := 0; i < 3; i++ {
		pending := s.createSingles()
		_, err := s.repo.TryClaim(s.ctx, &TryClaimInput{
			PendingID:  pending.ID,
			ClaimToken: "token",
		})
		s.Require().NoError(err)

		settled, err := s.repo.Finalize(s.ctx, &FinalizeInput{
			PendingID: pending.ID,
			Kind:      pending.Kind,
			WinnerIDs: pending.WinnerIDs,
			LoserIDs:  pending.LoserIDs,
			Score:     pending.Score,
		})
		s.Require().NoError(err)
		settledIDs = append(settledIDs, settled.ID)
	}

	history, err := s.repo.GetHistory(s.ctx, &GetHistoryInput{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(history.Matches, 2)

	// Most recent settlement first
	s.Equal(settledIDs[2], history.Matches[0].ID)
	s.Equal(settledIDs[1], history.Matches[1].ID)
}

func (s *RedisRepositoryTestSuite) TestDeleteFinalized() {
	pending := s.createSingles()
	_, err := s.repo.TryClaim(s.ctx, &TryClaimInput{
		PendingID:  pending.ID,
		ClaimToken: "token",
	})
	s.Require().NoError(err)

	settled, err := s.repo.Finalize(s.ctx, &FinalizeInput{
		PendingID: pending.ID,
		Kind:      pending.Kind,
		WinnerIDs: pending.WinnerIDs,
		LoserIDs:  pending.LoserIDs,
		Score:     pending.Score,
	})
	s.Require().NoError(err)

	existed, err := s.repo.DeleteFinalized(s.ctx, &DeleteFinalizedInput{MatchID: settled.ID})
	s.Require().NoError(err)
	s.True(existed)

	// A second delete finds nothing
	existed, err = s.repo.DeleteFinalized(s.ctx, &DeleteFinalizedInput{MatchID: settled.ID})
	s.Require().NoError(err)
	s.False(existed)

	history, err := s.repo.GetHistory(s.ctx, &GetHistoryInput{Limit: 10})
	s.Require().NoError(err)
	s.Empty(history.Matches)
}
