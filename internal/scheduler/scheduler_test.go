package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	clockMocks "github.com/rallyrank/rallyrank/internal/common/clock/mocks"
)

type SchedulerTestSuite struct {
	suite.Suite
	mr        *miniredis.Miniredis
	client    *redis.Client
	mockCtrl  *gomock.Controller
	mockClock *clockMocks.MockClock
	ctx       context.Context
	now       time.Time
	fired     []int64
	sched     *RedisScheduler
}

func (s *SchedulerTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = clockMocks.NewMockClock(s.mockCtrl)

	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.fired = nil

	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time {
		return s.now
	}).AnyTimes()

	sched, err := NewRedis(&Config{
		RedisClient: s.client,
		Clock:       s.mockClock,
		OnExpire: func(ctx context.Context, pendingID int64) {
			s.fired = append(s.fired, pendingID)
		},
	})
	s.Require().NoError(err)
	s.sched = sched
}

func (s *SchedulerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
	s.client.Close()
	s.mr.Close()
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) TestDoesNotFireBeforeDeadline() {
	err := s.sched.Schedule(s.ctx, 1, 2*time.Hour)
	s.Require().NoError(err)

	// One second short of the deadline
	s.now = s.now.Add(2*time.Hour - time.Second)
	s.Require().NoError(s.sched.fireDue(s.ctx))
	s.Empty(s.fired)
}

func (s *SchedulerTestSuite) TestFiresOnceAfterDeadline() {
	err := s.sched.Schedule(s.ctx, 1, 2*time.Hour)
	s.Require().NoError(err)

	s.now = s.now.Add(2*time.Hour + time.Minute)
	s.Require().NoError(s.sched.fireDue(s.ctx))
	s.Equal([]int64{1}, s.fired)

	// A later poll must not redeliver
	s.now = s.now.Add(time.Hour)
	s.Require().NoError(s.sched.fireDue(s.ctx))
	s.Equal([]int64{1}, s.fired)
}

func (s *SchedulerTestSuite) TestFiresOnlyDueEntries() {
	s.Require().NoError(s.sched.Schedule(s.ctx, 1, time.Hour))
	s.Require().NoError(s.sched.Schedule(s.ctx, 2, 3*time.Hour))

	s.now = s.now.Add(2 * time.Hour)
	s.Require().NoError(s.sched.fireDue(s.ctx))
	s.Equal([]int64{1}, s.fired)

	s.now = s.now.Add(2 * time.Hour)
	s.Require().NoError(s.sched.fireDue(s.ctx))
	s.Equal([]int64{1, 2}, s.fired)
}

func (s *SchedulerTestSuite) TestCancelDisarms() {
	s.Require().NoError(s.sched.Schedule(s.ctx, 1, time.Hour))
	s.Require().NoError(s.sched.Cancel(s.ctx, 1))

	s.now = s.now.Add(2 * time.Hour)
	s.Require().NoError(s.sched.fireDue(s.ctx))
	s.Empty(s.fired)
}

func (s *SchedulerTestSuite) TestDeadlinesSurviveNewScheduler() {
	s.Require().NoError(s.sched.Schedule(s.ctx, 7, time.Hour))

	// A fresh scheduler over the same store picks up the armed deadline,
	// as after a process restart
	var fired []int64
	replacement, err := NewRedis(&Config{
		RedisClient: s.client,
		Clock:       s.mockClock,
		OnExpire: func(ctx context.Context, pendingID int64) {
			fired = append(fired, pendingID)
		},
	})
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Hour)
	s.Require().NoError(replacement.fireDue(s.ctx))
	s.Equal([]int64{7}, fired)
}

func (s *SchedulerTestSuite) TestStartStop() {
	sched, err := NewRedis(&Config{
		RedisClient:  s.client,
		Clock:        s.mockClock,
		PollInterval: 10 * time.Millisecond,
		OnExpire:     func(ctx context.Context, pendingID int64) {},
	})
	s.Require().NoError(err)

	sched.Start()
	time.Sleep(30 * time.Millisecond)
	sched.Stop()
}
