package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rallyrank/rallyrank/internal/common/uuid"
	"github.com/rallyrank/rallyrank/internal/models"
	"github.com/rallyrank/rallyrank/internal/rating"
	matchRepo "github.com/rallyrank/rallyrank/internal/repositories/match"
	playerRepo "github.com/rallyrank/rallyrank/internal/repositories/player"
	"github.com/rallyrank/rallyrank/internal/scheduler"
)

const (
	// defaultConfirmTimeout is how long a report waits for confirmation
	defaultConfirmTimeout = 2 * time.Hour

	// defaultHistoryLimit is how many settled matches a history listing shows
	defaultHistoryLimit = 10
)

// Config holds configuration for the settlement service
type Config struct {
	// PlayerRepo persists players and ratings
	PlayerRepo playerRepo.Repository

	// MatchRepo persists pending reports and settled history
	MatchRepo matchRepo.Repository

	// RatingEngine computes rating deltas
	RatingEngine *rating.Engine

	// Scheduler arms expiry timers for pending reports
	Scheduler scheduler.Scheduler

	// UUIDGenerator mints claim tokens; defaults to random UUIDs
	UUIDGenerator uuid.UUID

	// ConfirmTimeout is how long a report waits for confirmation; defaults
	// to two hours
	ConfirmTimeout time.Duration

	// HistoryLimit is the default history listing size; defaults to 10
	HistoryLimit int
}

// service implements the Service interface
type service struct {
	playerRepo     playerRepo.Repository
	matchRepo      matchRepo.Repository
	engine         *rating.Engine
	scheduler      scheduler.Scheduler
	uuidGenerator  uuid.UUID
	confirmTimeout time.Duration
	historyLimit   int
}

// New creates a new settlement service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.PlayerRepo == nil {
		return nil, ErrNilPlayerRepo
	}

	if cfg.MatchRepo == nil {
		return nil, ErrNilMatchRepo
	}

	if cfg.RatingEngine == nil {
		return nil, ErrNilRatingEngine
	}

	if cfg.Scheduler == nil {
		return nil, ErrNilScheduler
	}

	uuidGenerator := cfg.UUIDGenerator
	if uuidGenerator == nil {
		uuidGenerator = uuid.New()
	}

	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = defaultConfirmTimeout
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	return &service{
		playerRepo:     cfg.PlayerRepo,
		matchRepo:      cfg.MatchRepo,
		engine:         cfg.RatingEngine,
		scheduler:      cfg.Scheduler,
		uuidGenerator:  uuidGenerator,
		confirmTimeout: confirmTimeout,
		historyLimit:   historyLimit,
	}, nil
}

// RegisterPlayer fetches or creates a player on first interaction
func (s *service) RegisterPlayer(ctx context.Context, input *RegisterPlayerInput) (*RegisterPlayerOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.New("input and player ID cannot be empty")
	}

	player, err := s.playerRepo.GetOrCreatePlayer(ctx, &playerRepo.GetOrCreatePlayerInput{
		PlayerID: input.PlayerID,
		Name:     input.Name,
		Handle:   input.Handle,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterPlayerOutput{Player: player}, nil
}

// SubmitResult validates a match report, stores it as pending, and arms the
// expiry timer
func (s *service) SubmitResult(ctx context.Context, input *SubmitResultInput) (*SubmitResultOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	teamSize := input.Kind.TeamSize()
	if teamSize == 0 {
		return nil, ErrInvalidParticipants
	}

	if len(input.WinnerIDs) != teamSize || len(input.LoserIDs) != teamSize {
		return nil, ErrInvalidParticipants
	}

	if input.Score == "" {
		return nil, ErrEmptyScore
	}

	// No player may appear twice across the full participant set
	participants := make([]string, 0, 2*teamSize)
	participants = append(participants, input.WinnerIDs...)
	participants = append(participants, input.LoserIDs...)

	seen := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		if _, dup := seen[id]; dup {
			return nil, ErrDuplicateParticipant
		}
		seen[id] = struct{}{}
	}

	// Every participant must already be registered
	for _, id := range participants {
		if _, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{PlayerID: id}); err != nil {
			if errors.Is(err, playerRepo.ErrPlayerNotFound) {
				return nil, ErrUnknownParticipant
			}
			return nil, err
		}
	}

	pending, err := s.matchRepo.CreatePending(ctx, &matchRepo.CreatePendingInput{
		Kind:      input.Kind,
		WinnerIDs: input.WinnerIDs,
		LoserIDs:  input.LoserIDs,
		Score:     input.Score,
		ChannelID: input.ChannelID,
		MessageID: input.MessageID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.scheduler.Schedule(ctx, pending.ID, s.confirmTimeout); err != nil {
		return nil, fmt.Errorf("failed to arm expiry for pending match %d: %w", pending.ID, err)
	}

	return &SubmitResultOutput{Pending: pending}, nil
}

// Confirm settles a pending report on behalf of a participant. The claim
// race through TryClaim makes confirmation and expiry mutually exclusive.
func (s *service) Confirm(ctx context.Context, input *ConfirmInput) (*ConfirmOutput, error) {
	if input == nil || input.RequesterID == "" {
		return nil, errors.New("input and requester ID cannot be empty")
	}

	// Authorization is checked on an unclaimed read so a rejected requester
	// never consumes the claim
	pending, err := s.matchRepo.GetPending(ctx, &matchRepo.GetPendingInput{PendingID: input.PendingID})
	if err != nil {
		if errors.Is(err, matchRepo.ErrPendingNotFound) {
			return nil, ErrAlreadySettled
		}
		return nil, err
	}

	if !pending.HasParticipant(input.RequesterID) {
		return nil, ErrNotAuthorized
	}

	claimed, err := s.matchRepo.TryClaim(ctx, &matchRepo.TryClaimInput{
		PendingID:  input.PendingID,
		ClaimToken: s.uuidGenerator.NewUUID(),
	})
	if err != nil {
		if errors.Is(err, matchRepo.ErrPendingNotFound) {
			return nil, ErrAlreadySettled
		}
		return nil, err
	}

	winnerRatings, err := s.teamRatings(ctx, claimed.WinnerIDs)
	if err != nil {
		return nil, s.critical(claimed.ID, err)
	}

	loserRatings, err := s.teamRatings(ctx, claimed.LoserIDs)
	if err != nil {
		return nil, s.critical(claimed.ID, err)
	}

	// One delta per match, computed on team averages and applied identically
	// to every member of each side: teammates move together
	delta := s.engine.Delta(s.engine.TeamAverage(winnerRatings), s.engine.TeamAverage(loserRatings))

	for _, id := range claimed.WinnerIDs {
		if err := s.playerRepo.AdjustRating(ctx, &playerRepo.AdjustRatingInput{
			PlayerID: id,
			Delta:    delta,
		}); err != nil {
			return nil, s.critical(claimed.ID, err)
		}
	}

	for _, id := range claimed.LoserIDs {
		if err := s.playerRepo.AdjustRating(ctx, &playerRepo.AdjustRatingInput{
			PlayerID: id,
			Delta:    -delta,
		}); err != nil {
			return nil, s.critical(claimed.ID, err)
		}
	}

	settled, err := s.matchRepo.Finalize(ctx, &matchRepo.FinalizeInput{
		PendingID: claimed.ID,
		Kind:      claimed.Kind,
		WinnerIDs: claimed.WinnerIDs,
		LoserIDs:  claimed.LoserIDs,
		Score:     claimed.Score,
	})
	if err != nil {
		return nil, s.critical(claimed.ID, err)
	}

	// Disarm the timer so a stray expiry notice never races the settlement
	// notice. Losing this cancel is harmless: the fired callback loses the
	// claim race and does nothing.
	if err := s.scheduler.Cancel(ctx, claimed.ID); err != nil {
		log.Printf("Failed to cancel expiry for settled match %d: %v", claimed.ID, err)
	}

	out := &ConfirmOutput{
		Match:         settled,
		Delta:         delta,
		WinnerRatings: make(map[string]int, len(claimed.WinnerIDs)),
		LoserRatings:  make(map[string]int, len(claimed.LoserIDs)),
	}

	for _, id := range claimed.WinnerIDs {
		rounded, err := s.playerRepo.GetRoundedRating(ctx, &playerRepo.GetRoundedRatingInput{PlayerID: id})
		if err != nil {
			return nil, err
		}
		out.WinnerRatings[id] = rounded
	}

	for _, id := range claimed.LoserIDs {
		rounded, err := s.playerRepo.GetRoundedRating(ctx, &playerRepo.GetRoundedRatingInput{PlayerID: id})
		if err != nil {
			return nil, err
		}
		out.LoserRatings[id] = rounded
	}

	return out, nil
}

// ExpirePending discards a pending report whose timer fired. If the report
// was already settled the claim race is lost and this is a silent no-op.
func (s *service) ExpirePending(ctx context.Context, input *ExpirePendingInput) (*ExpirePendingOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	claimed, err := s.matchRepo.TryClaim(ctx, &matchRepo.TryClaimInput{
		PendingID:  input.PendingID,
		ClaimToken: s.uuidGenerator.NewUUID(),
	})
	if err != nil {
		if errors.Is(err, matchRepo.ErrPendingNotFound) {
			return &ExpirePendingOutput{Expired: false}, nil
		}
		return nil, err
	}

	if err := s.matchRepo.Discard(ctx, &matchRepo.DiscardInput{PendingID: claimed.ID}); err != nil {
		return nil, s.critical(claimed.ID, err)
	}

	return &ExpirePendingOutput{
		Expired: true,
		Pending: claimed,
	}, nil
}

// DeleteHistoryEntry hard-deletes a settled match for a privileged requester
func (s *service) DeleteHistoryEntry(ctx context.Context, input *DeleteHistoryEntryInput) (*DeleteHistoryEntryOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if !input.RequesterIsPrivileged {
		return nil, ErrNotAuthorized
	}

	deleted, err := s.matchRepo.DeleteFinalized(ctx, &matchRepo.DeleteFinalizedInput{MatchID: input.MatchID})
	if err != nil {
		return nil, err
	}

	return &DeleteHistoryEntryOutput{Deleted: deleted}, nil
}

// GetLeaderboard returns the standings ordered by rating descending
func (s *service) GetLeaderboard(ctx context.Context, input *GetLeaderboardInput) (*GetLeaderboardOutput, error) {
	out, err := s.playerRepo.GetLeaderboard(ctx, &playerRepo.GetLeaderboardInput{})
	if err != nil {
		return nil, err
	}

	return &GetLeaderboardOutput{Entries: out.Entries}, nil
}

// GetPlayerStats returns one player's stats row, looked up by ID or handle
func (s *service) GetPlayerStats(ctx context.Context, input *GetPlayerStatsInput) (*GetPlayerStatsOutput, error) {
	if input == nil || (input.PlayerID == "" && input.Handle == "") {
		return nil, errors.New("input and a player ID or handle are required")
	}

	playerID := input.PlayerID
	if playerID == "" {
		resolved, err := s.playerRepo.ResolveHandle(ctx, &playerRepo.ResolveHandleInput{Handle: input.Handle})
		if err != nil {
			if errors.Is(err, playerRepo.ErrHandleNotFound) {
				return nil, ErrPlayerNotFound
			}
			return nil, err
		}
		playerID = resolved
	}

	player, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{PlayerID: playerID})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	rounded, err := s.playerRepo.GetRoundedRating(ctx, &playerRepo.GetRoundedRatingInput{PlayerID: playerID})
	if err != nil {
		return nil, err
	}

	return &GetPlayerStatsOutput{
		Stats: &models.LeaderboardEntry{
			PlayerID: player.ID,
			Name:     player.Name,
			Rating:   rounded,
			Wins:     player.Wins,
			Losses:   player.Losses,
		},
	}, nil
}

// GetHistory returns recent settled matches, most recent first
func (s *service) GetHistory(ctx context.Context, input *GetHistoryInput) (*GetHistoryOutput, error) {
	limit := s.historyLimit
	if input != nil && input.Limit > 0 {
		limit = input.Limit
	}

	out, err := s.matchRepo.GetHistory(ctx, &matchRepo.GetHistoryInput{Limit: limit})
	if err != nil {
		return nil, err
	}

	return &GetHistoryOutput{Matches: out.Matches}, nil
}

// teamRatings fetches the continuous ratings for one side of a match
func (s *service) teamRatings(ctx context.Context, playerIDs []string) ([]float64, error) {
	ratings := make([]float64, 0, len(playerIDs))
	for _, id := range playerIDs {
		player, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{PlayerID: id})
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, player.Rating)
	}
	return ratings, nil
}

// critical marks a storage failure after a successful claim. The pending
// report has been consumed and may be partially applied, so this must never
// pass silently.
func (s *service) critical(pendingID int64, err error) error {
	log.Printf("CRITICAL: settlement of pending match %d failed after claim: %v", pendingID, err)
	return fmt.Errorf("settlement of pending match %d failed after claim: %w", pendingID, err)
}
