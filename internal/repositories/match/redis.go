package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rallyrank/rallyrank/internal/common/clock"
	"github.com/rallyrank/rallyrank/internal/models"
)

const (
	// Key prefixes for Redis
	pendingKeyPrefix      = "pending:"
	pendingClaimKeyPrefix = "pending:claim:"
	pendingCounterKey     = "pending:next_id"
	matchKeyPrefix        = "match:"
	matchCounterKey       = "match:next_id"
	historyKey            = "match:history"
)

// ErrPendingNotFound is returned when a pending match does not exist or has
// already been claimed
var ErrPendingNotFound = errors.New("pending match not found")

// ErrMatchNotFound is returned when a settled match is not found
var ErrMatchNotFound = errors.New("match not found")

// ErrInvalidParticipants is returned when the winner and loser sets overlap
// or contain duplicate IDs
var ErrInvalidParticipants = errors.New("participants must be unique")

// Config holds configuration for the Redis match repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// Clock supplies timestamps; defaults to the system clock
	Clock clock.Clock
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
	clock  clock.Clock
}

// NewRedis creates a new Redis-backed match repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	// Validate config
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = &clock.DefaultClock{}
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
		clock:  clk,
	}, nil
}

// CreatePending stores a new pending match report with a monotonically
// assigned ID
func (r *redisRepository) CreatePending(ctx context.Context, input *CreatePendingInput) (*models.PendingMatch, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if len(input.WinnerIDs) == 0 || len(input.LoserIDs) == 0 {
		return nil, errors.New("winner and loser IDs cannot be empty")
	}

	if input.Score == "" {
		return nil, errors.New("score cannot be empty")
	}

	// The winner and loser sets must be disjoint and duplicate free
	seen := make(map[string]struct{}, len(input.WinnerIDs)+len(input.LoserIDs))
	for _, id := range append(append([]string{}, input.WinnerIDs...), input.LoserIDs...) {
		if _, dup := seen[id]; dup {
			return nil, ErrInvalidParticipants
		}
		seen[id] = struct{}{}
	}

	pendingID, err := r.client.Incr(ctx, pendingCounterKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to assign pending ID: %w", err)
	}

	pending := &models.PendingMatch{
		ID:        pendingID,
		Kind:      input.Kind,
		WinnerIDs: input.WinnerIDs,
		LoserIDs:  input.LoserIDs,
		Score:     input.Score,
		Status:    models.PendingStatusPending,
		ChannelID: input.ChannelID,
		MessageID: input.MessageID,
		CreatedAt: r.clock.Now(),
	}

	if err := r.savePending(ctx, pending); err != nil {
		return nil, err
	}

	return pending, nil
}

// GetPending retrieves a pending match by ID without claiming it
func (r *redisRepository) GetPending(ctx context.Context, input *GetPendingInput) (*models.PendingMatch, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	pendingKey := fmt.Sprintf("%s%d", pendingKeyPrefix, input.PendingID)
	pendingJSON, err := r.client.Get(ctx, pendingKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrPendingNotFound
		}
		return nil, fmt.Errorf("failed to get pending match: %w", err)
	}

	var pending models.PendingMatch
	if err := json.Unmarshal([]byte(pendingJSON), &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending match: %w", err)
	}

	return &pending, nil
}

// TryClaim atomically claims a pending match. The claim marker is written
// with SETNX, so exactly one concurrent caller ever wins; everyone else gets
// ErrPendingNotFound. Confirmation and expiry both funnel through this, which
// is what keeps them mutually exclusive without any call-site locking.
func (r *redisRepository) TryClaim(ctx context.Context, input *TryClaimInput) (*models.PendingMatch, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	claimKey := fmt.Sprintf("%s%d", pendingClaimKeyPrefix, input.PendingID)
	claimed, err := r.client.SetNX(ctx, claimKey, input.ClaimToken, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending match: %w", err)
	}

	if !claimed {
		return nil, ErrPendingNotFound
	}

	pending, err := r.GetPending(ctx, &GetPendingInput{PendingID: input.PendingID})
	if err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			// The report was already settled and removed; drop the stray
			// marker we just wrote. Pending IDs are never reused, so this
			// cannot hand the claim to anyone else.
			r.client.Del(ctx, claimKey)
		}
		return nil, err
	}

	// Record the claimed status so a crash between claim and settlement is
	// visible in storage
	pending.Status = models.PendingStatusClaimed
	if err := r.savePending(ctx, pending); err != nil {
		return nil, err
	}

	return pending, nil
}

// Finalize writes the settled match to history and removes the claimed
// pending report
func (r *redisRepository) Finalize(ctx context.Context, input *FinalizeInput) (*models.Match, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	matchID, err := r.client.Incr(ctx, matchCounterKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to assign match ID: %w", err)
	}

	settled := &models.Match{
		ID:        matchID,
		Kind:      input.Kind,
		WinnerIDs: input.WinnerIDs,
		LoserIDs:  input.LoserIDs,
		Score:     input.Score,
		SettledAt: r.clock.Now(),
	}

	matchJSON, err := json.Marshal(settled)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match: %w", err)
	}

	pipe := r.client.Pipeline()

	matchKey := fmt.Sprintf("%s%d", matchKeyPrefix, matchID)
	pipe.Set(ctx, matchKey, matchJSON, 0)
	pipe.ZAdd(ctx, historyKey, redis.Z{
		Score:  float64(settled.SettledAt.UnixMilli()),
		Member: strconv.FormatInt(matchID, 10),
	})
	pipe.Del(ctx, fmt.Sprintf("%s%d", pendingKeyPrefix, input.PendingID))
	pipe.Del(ctx, fmt.Sprintf("%s%d", pendingClaimKeyPrefix, input.PendingID))

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to finalize match: %w", err)
	}

	return settled, nil
}

// Discard removes a claimed pending report without writing history
func (r *redisRepository) Discard(ctx context.Context, input *DiscardInput) error {
	if input == nil {
		return errors.New("input cannot be nil")
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, fmt.Sprintf("%s%d", pendingKeyPrefix, input.PendingID))
	pipe.Del(ctx, fmt.Sprintf("%s%d", pendingClaimKeyPrefix, input.PendingID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to discard pending match: %w", err)
	}

	return nil
}

// GetFinalized retrieves a settled match by ID
func (r *redisRepository) GetFinalized(ctx context.Context, input *GetFinalizedInput) (*models.Match, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	matchKey := fmt.Sprintf("%s%d", matchKeyPrefix, input.MatchID)
	matchJSON, err := r.client.Get(ctx, matchKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	var settled models.Match
	if err := json.Unmarshal([]byte(matchJSON), &settled); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &settled, nil
}

// GetHistory returns settled matches ordered by settlement time descending
func (r *redisRepository) GetHistory(ctx context.Context, input *GetHistoryInput) (*GetHistoryOutput, error) {
	if input == nil || input.Limit <= 0 {
		return nil, errors.New("input and a positive limit are required")
	}

	matchIDs, err := r.client.ZRevRange(ctx, historyKey, 0, int64(input.Limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history entries: %w", err)
	}

	if len(matchIDs) == 0 {
		return &GetHistoryOutput{
			Matches: []*models.Match{},
		}, nil
	}

	pipe := r.client.Pipeline()
	matchCommands := make([]*redis.StringCmd, len(matchIDs))

	for i, matchID := range matchIDs {
		matchCommands[i] = pipe.Get(ctx, fmt.Sprintf("%s%s", matchKeyPrefix, matchID))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get history matches: %w", err)
	}

	matches := make([]*models.Match, 0, len(matchIDs))
	for i, cmd := range matchCommands {
		matchJSON, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				// Deleted between listing and fetching
				continue
			}
			return nil, fmt.Errorf("failed to get match %s: %w", matchIDs[i], err)
		}

		var settled models.Match
		if err := json.Unmarshal([]byte(matchJSON), &settled); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match %s: %w", matchIDs[i], err)
		}

		matches = append(matches, &settled)
	}

	return &GetHistoryOutput{
		Matches: matches,
	}, nil
}

// DeleteFinalized hard-deletes a history entry, reporting whether it existed
func (r *redisRepository) DeleteFinalized(ctx context.Context, input *DeleteFinalizedInput) (bool, error) {
	if input == nil {
		return false, errors.New("input cannot be nil")
	}

	pipe := r.client.Pipeline()
	delCmd := pipe.Del(ctx, fmt.Sprintf("%s%d", matchKeyPrefix, input.MatchID))
	pipe.ZRem(ctx, historyKey, strconv.FormatInt(input.MatchID, 10))

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete match: %w", err)
	}

	return delCmd.Val() > 0, nil
}

// savePending marshals and stores a pending match
func (r *redisRepository) savePending(ctx context.Context, pending *models.PendingMatch) error {
	pendingJSON, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending match: %w", err)
	}

	pendingKey := fmt.Sprintf("%s%d", pendingKeyPrefix, pending.ID)
	if err := r.client.Set(ctx, pendingKey, pendingJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save pending match: %w", err)
	}

	return nil
}
