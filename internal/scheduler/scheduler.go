// Package scheduler delivers one-shot expiry events for pending match
// reports. Deadlines live in a Redis sorted set, so they survive a process
// restart; a polling loop fires whatever has come due. An entry is fired by
// whichever poller wins the ZREM, giving at-most-once delivery even with
// several bot instances sharing the store.
package scheduler

//go:generate mockgen -package=mocks -destination=mocks/mock_scheduler.go github.com/rallyrank/rallyrank/internal/scheduler Scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rallyrank/rallyrank/internal/common/clock"
)

const (
	// deadlinesKey is the sorted set of pending IDs scored by expiry time
	deadlinesKey = "expiry:deadlines"

	// defaultPollInterval bounds how far past its deadline an entry can fire
	defaultPollInterval = 30 * time.Second
)

// ExpireFunc is invoked for a pending ID whose deadline has passed. It is
// called at most once per scheduled ID, strictly after the delay has elapsed.
type ExpireFunc func(ctx context.Context, pendingID int64)

// Scheduler arms and disarms expiry deadlines for pending match reports
type Scheduler interface {
	// Schedule arms a one-shot expiry for the pending ID after delay
	Schedule(ctx context.Context, pendingID int64, delay time.Duration) error

	// Cancel disarms a scheduled expiry. Losing a cancel is harmless: the
	// expiry callback becomes a no-op once the report has been claimed.
	Cancel(ctx context.Context, pendingID int64) error
}

// Config holds configuration for the Redis-backed scheduler
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// OnExpire is invoked for each due pending ID
	OnExpire ExpireFunc

	// Clock supplies the current time; defaults to the system clock
	Clock clock.Clock

	// PollInterval is how often due deadlines are checked; defaults to 30s
	PollInterval time.Duration
}

// RedisScheduler implements Scheduler on a durable Redis sorted set
type RedisScheduler struct {
	client       *redis.Client
	onExpire     ExpireFunc
	clock        clock.Clock
	pollInterval time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewRedis creates a new Redis-backed expiry scheduler
func NewRedis(cfg *Config) (*RedisScheduler, error) {
	// Validate config
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if cfg.OnExpire == nil {
		return nil, errors.New("expire callback cannot be nil")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = &clock.DefaultClock{}
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisScheduler{
		client:       cfg.RedisClient,
		onExpire:     cfg.OnExpire,
		clock:        clk,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Schedule arms a one-shot expiry for the pending ID after delay
func (s *RedisScheduler) Schedule(ctx context.Context, pendingID int64, delay time.Duration) error {
	deadline := s.clock.Now().Add(delay)

	err := s.client.ZAdd(ctx, deadlinesKey, redis.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: strconv.FormatInt(pendingID, 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule expiry: %w", err)
	}

	return nil
}

// Cancel disarms a scheduled expiry
func (s *RedisScheduler) Cancel(ctx context.Context, pendingID int64) error {
	err := s.client.ZRem(ctx, deadlinesKey, strconv.FormatInt(pendingID, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to cancel expiry: %w", err)
	}

	return nil
}

// Start launches the polling loop
func (s *RedisScheduler) Start() {
	go s.run()
}

// Stop halts the polling loop and waits for it to finish. Deadlines stay in
// Redis and fire after the next Start.
func (s *RedisScheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *RedisScheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.fireDue(context.Background()); err != nil {
				log.Printf("Error firing due expiries: %v", err)
			}
		}
	}
}

// fireDue invokes the callback for every deadline at or before now. The ZREM
// result arbitrates ownership: only the caller that actually removed the
// member fires it.
func (s *RedisScheduler) fireDue(ctx context.Context) error {
	now := s.clock.Now().UnixMilli()

	members, err := s.client.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list due expiries: %w", err)
	}

	for _, member := range members {
		removed, err := s.client.ZRem(ctx, deadlinesKey, member).Result()
		if err != nil {
			return fmt.Errorf("failed to take expiry %s: %w", member, err)
		}

		if removed == 0 {
			// Another poller (or a cancel) got there first
			continue
		}

		pendingID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			log.Printf("Dropping malformed expiry member %q: %v", member, err)
			continue
		}

		s.onExpire(ctx, pendingID)
	}

	return nil
}
