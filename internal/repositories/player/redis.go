package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rallyrank/rallyrank/internal/models"
)

const (
	// Key prefixes for Redis
	playerKeyPrefix = "player:"
	handleKeyPrefix = "handle:"
	leaderboardKey  = "leaderboard"

	// Player hash fields
	nameField   = "name"
	ratingField = "rating"
	winsField   = "wins"
	lossesField = "losses"
)

// ErrPlayerNotFound is returned when a player is not found
var ErrPlayerNotFound = errors.New("player not found")

// ErrHandleNotFound is returned when a handle has no player mapping
var ErrHandleNotFound = errors.New("handle not found")

// Config holds configuration for the Redis player repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed player repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	// Validate config
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
	}, nil
}

// GetOrCreatePlayer fetches a player, creating it with the default rating if
// it does not exist yet. The name and handle mapping are refreshed on every
// call so renamed players stay resolvable.
func (r *redisRepository) GetOrCreatePlayer(ctx context.Context, input *GetOrCreatePlayerInput) (*models.Player, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.New("input and player ID cannot be empty")
	}

	playerKey := fmt.Sprintf("%s%s", playerKeyPrefix, input.PlayerID)

	// HSETNX on the rating field doubles as the creation marker: it only
	// succeeds for a player that did not exist before.
	created, err := r.client.HSetNX(ctx, playerKey, ratingField, float64(models.DefaultRating)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize player: %w", err)
	}

	pipe := r.client.Pipeline()

	if input.Name != "" {
		pipe.HSet(ctx, playerKey, nameField, input.Name)
	}
	pipe.HSetNX(ctx, playerKey, winsField, 0)
	pipe.HSetNX(ctx, playerKey, lossesField, 0)

	// Keep the handle mapping current
	if input.Handle != "" {
		handleKey := fmt.Sprintf("%s%s", handleKeyPrefix, input.Handle)
		pipe.Set(ctx, handleKey, input.PlayerID, 0)
	}

	// A brand new player starts on the leaderboard at the default rating
	if created {
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{
			Score:  float64(models.DefaultRating),
			Member: input.PlayerID,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}

	return r.GetPlayer(ctx, &GetPlayerInput{PlayerID: input.PlayerID})
}

// GetPlayer retrieves a player by ID from Redis
func (r *redisRepository) GetPlayer(ctx context.Context, input *GetPlayerInput) (*models.Player, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.New("input and player ID cannot be empty")
	}

	playerKey := fmt.Sprintf("%s%s", playerKeyPrefix, input.PlayerID)
	fields, err := r.client.HGetAll(ctx, playerKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	if len(fields) == 0 {
		return nil, ErrPlayerNotFound
	}

	return playerFromHash(input.PlayerID, fields)
}

// ResolveHandle maps a display handle to a player ID
func (r *redisRepository) ResolveHandle(ctx context.Context, input *ResolveHandleInput) (string, error) {
	if input == nil || input.Handle == "" {
		return "", errors.New("input and handle cannot be empty")
	}

	handleKey := fmt.Sprintf("%s%s", handleKeyPrefix, input.Handle)
	playerID, err := r.client.Get(ctx, handleKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrHandleNotFound
		}
		return "", fmt.Errorf("failed to resolve handle: %w", err)
	}

	return playerID, nil
}

// AdjustRating atomically adds the delta to the player's continuous rating
// and bumps the win or loss counter. Each command is atomic per player key,
// so concurrent adjustments to the same player serialize inside Redis and
// adjustments to different players never contend.
func (r *redisRepository) AdjustRating(ctx context.Context, input *AdjustRatingInput) error {
	if input == nil || input.PlayerID == "" {
		return errors.New("input and player ID cannot be empty")
	}

	playerKey := fmt.Sprintf("%s%s", playerKeyPrefix, input.PlayerID)

	// Players are never deleted, so a missing key can only mean the caller
	// skipped registration.
	exists, err := r.client.Exists(ctx, playerKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check player: %w", err)
	}
	if exists == 0 {
		return ErrPlayerNotFound
	}

	statField := lossesField
	if input.Delta > 0 {
		statField = winsField
	}

	pipe := r.client.Pipeline()
	pipe.HIncrByFloat(ctx, playerKey, ratingField, float64(input.Delta))
	pipe.HIncrBy(ctx, playerKey, statField, 1)
	// The leaderboard ZSET is only used for ordering; the hash stays
	// authoritative for displayed values.
	pipe.ZIncrBy(ctx, leaderboardKey, float64(input.Delta), input.PlayerID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to adjust rating: %w", err)
	}

	return nil
}

// GetRoundedRating returns the stored continuous rating rounded half-to-even
// for display. The continuous value stays in Redis so repeated small deltas
// never lose precision to successive rounding.
func (r *redisRepository) GetRoundedRating(ctx context.Context, input *GetRoundedRatingInput) (int, error) {
	if input == nil || input.PlayerID == "" {
		return 0, errors.New("input and player ID cannot be empty")
	}

	playerKey := fmt.Sprintf("%s%s", playerKeyPrefix, input.PlayerID)
	raw, err := r.client.HGet(ctx, playerKey, ratingField).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrPlayerNotFound
		}
		return 0, fmt.Errorf("failed to get rating: %w", err)
	}

	rating, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rating %q: %w", raw, err)
	}

	return int(math.RoundToEven(rating)), nil
}

// GetLeaderboard returns all players ordered by rating descending
func (r *redisRepository) GetLeaderboard(ctx context.Context, input *GetLeaderboardInput) (*GetLeaderboardOutput, error) {
	playerIDs, err := r.client.ZRevRange(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard members: %w", err)
	}

	if len(playerIDs) == 0 {
		return &GetLeaderboardOutput{
			Entries: []*models.LeaderboardEntry{},
		}, nil
	}

	// Fetch all player hashes in one round trip
	pipe := r.client.Pipeline()
	playerCommands := make([]*redis.MapStringStringCmd, len(playerIDs))

	for i, playerID := range playerIDs {
		playerKey := fmt.Sprintf("%s%s", playerKeyPrefix, playerID)
		playerCommands[i] = pipe.HGetAll(ctx, playerKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard players: %w", err)
	}

	entries := make([]*models.LeaderboardEntry, 0, len(playerIDs))
	for i, cmd := range playerCommands {
		fields, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get player %s: %w", playerIDs[i], err)
		}

		if len(fields) == 0 {
			// Leaderboard member without a hash; skip rather than fail the
			// whole listing
			continue
		}

		player, err := playerFromHash(playerIDs[i], fields)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &models.LeaderboardEntry{
			PlayerID: player.ID,
			Name:     player.Name,
			Rating:   int(math.RoundToEven(player.Rating)),
			Wins:     player.Wins,
			Losses:   player.Losses,
		})
	}

	return &GetLeaderboardOutput{
		Entries: entries,
	}, nil
}

// playerFromHash builds a Player from its Redis hash fields
func playerFromHash(playerID string, fields map[string]string) (*models.Player, error) {
	player := &models.Player{
		ID:   playerID,
		Name: fields[nameField],
	}

	if raw, ok := fields[ratingField]; ok {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rating %q for player %s: %w", raw, playerID, err)
		}
		player.Rating = rating
	}

	if raw, ok := fields[winsField]; ok {
		wins, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse wins %q for player %s: %w", raw, playerID, err)
		}
		player.Wins = wins
	}

	if raw, ok := fields[lossesField]; ok {
		losses, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse losses %q for player %s: %w", raw, playerID, err)
		}
		player.Losses = losses
	}

	return player, nil
}
