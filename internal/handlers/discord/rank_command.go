package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rallyrank/rallyrank/internal/models"
	"github.com/rallyrank/rallyrank/internal/services/settlement"
)

// RankCommand handles the /rank command
type RankCommand struct {
	BaseCommand
	settlementService settlement.Service
	confirmWindow     time.Duration
}

// NewRankCommand creates a new rank command handler
func NewRankCommand(settlementService settlement.Service, confirmWindow time.Duration) *RankCommand {
	if confirmWindow <= 0 {
		confirmWindow = 2 * time.Hour
	}

	return &RankCommand{
		BaseCommand: BaseCommand{
			Name:        "rank",
			Description: "Rated match reporting and standings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "singles",
					Description: "Report a singles result",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "winner",
							Description: "The winning player",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "loser",
							Description: "The losing player",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "score",
							Description: "The final score, e.g. 11-9",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "doubles",
					Description: "Report a doubles result",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "winner1",
							Description: "First player on the winning team",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "winner2",
							Description: "Second player on the winning team",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "loser1",
							Description: "First player on the losing team",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "loser2",
							Description: "Second player on the losing team",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "score",
							Description: "The final score, e.g. 11-9",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Show the standings",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stats",
					Description: "Show a player's stats",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "player",
							Description: "The player to look up (defaults to you)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "history",
					Description: "Show recent settled matches",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "count",
							Description: "How many matches to show",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "deletematch",
					Description: "Delete a settled match from history (admin only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "match",
							Description: "The match number to delete",
							Required:    true,
						},
					},
				},
			},
		},
		settlementService: settlementService,
		confirmWindow:     confirmWindow,
	}
}

// Handle processes a Discord interaction for the rank command
func (c *RankCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}

	data := i.ApplicationCommandData()
	if data.Name != c.Name {
		return nil
	}

	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "singles":
		return c.handleResult(s, i, models.MatchKindSingles,
			[]*discordgo.User{opts["winner"].UserValue(s)},
			[]*discordgo.User{opts["loser"].UserValue(s)},
			opts["score"].StringValue())
	case "doubles":
		return c.handleResult(s, i, models.MatchKindDoubles,
			[]*discordgo.User{opts["winner1"].UserValue(s), opts["winner2"].UserValue(s)},
			[]*discordgo.User{opts["loser1"].UserValue(s), opts["loser2"].UserValue(s)},
			opts["score"].StringValue())
	case "leaderboard":
		return c.handleLeaderboard(s, i)
	case "stats":
		return c.handleStats(s, i, opts["player"])
	case "history":
		return c.handleHistory(s, i, opts["count"])
	case "deletematch":
		return c.handleDeleteMatch(s, i, opts["match"].IntValue())
	default:
		return errors.New("unknown subcommand")
	}
}

// optionMap indexes subcommand options by name
func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// handleResult registers the participants, stores the pending report, and
// posts the announcement with its confirm button
func (c *RankCommand) handleResult(s *discordgo.Session, i *discordgo.InteractionCreate, kind models.MatchKind, winners, losers []*discordgo.User, score string) error {
	ctx := context.Background()

	winnerIDs := make([]string, 0, len(winners))
	loserIDs := make([]string, 0, len(losers))

	// Players are registered on first mention
	for _, user := range winners {
		if err := c.registerUser(ctx, user); err != nil {
			log.Printf("Error registering player %s: %v", user.ID, err)
			return RespondWithError(s, i, "Failed to register a player. Please try again.")
		}
		winnerIDs = append(winnerIDs, user.ID)
	}
	for _, user := range losers {
		if err := c.registerUser(ctx, user); err != nil {
			log.Printf("Error registering player %s: %v", user.ID, err)
			return RespondWithError(s, i, "Failed to register a player. Please try again.")
		}
		loserIDs = append(loserIDs, user.ID)
	}

	out, err := c.settlementService.SubmitResult(ctx, &settlement.SubmitResultInput{
		Kind:      kind,
		WinnerIDs: winnerIDs,
		LoserIDs:  loserIDs,
		Score:     score,
		ChannelID: i.ChannelID,
	})
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrDuplicateParticipant):
			return RespondWithError(s, i, "A player cannot appear twice in the same match.")
		case errors.Is(err, settlement.ErrEmptyScore):
			return RespondWithError(s, i, "A score is required.")
		case errors.Is(err, settlement.ErrInvalidParticipants):
			return RespondWithError(s, i, "That is not a valid lineup for this match type.")
		default:
			log.Printf("Error submitting result: %v", err)
			return RespondWithError(s, i, "Failed to submit the result. Please try again.")
		}
	}

	confirmButton := discordgo.Button{
		Label:    "Confirm",
		Style:    discordgo.SuccessButton,
		CustomID: fmt.Sprintf("%s:%d", ButtonConfirmResult, out.Pending.ID),
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{renderPendingEmbed(out.Pending, c.confirmWindow)},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{confirmButton},
				},
			},
		},
	})
}

// handleLeaderboard handles the leaderboard subcommand
func (c *RankCommand) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	out, err := c.settlementService.GetLeaderboard(ctx, &settlement.GetLeaderboardInput{})
	if err != nil {
		log.Printf("Error getting leaderboard: %v", err)
		return RespondWithError(s, i, "Failed to load the leaderboard. Please try again.")
	}

	return RespondWithEmbed(s, i, renderLeaderboardEmbed(out.Entries))
}

// handleStats handles the stats subcommand
func (c *RankCommand) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate, playerOpt *discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()

	playerID := i.Member.User.ID
	if playerOpt != nil {
		playerID = playerOpt.UserValue(s).ID
	}

	out, err := c.settlementService.GetPlayerStats(ctx, &settlement.GetPlayerStatsInput{
		PlayerID: playerID,
	})
	if err != nil {
		if errors.Is(err, settlement.ErrPlayerNotFound) {
			return RespondWithEphemeralMessage(s, i, fmt.Sprintf("<@%s> hasn't played any rated matches yet.", playerID))
		}
		log.Printf("Error getting stats for %s: %v", playerID, err)
		return RespondWithError(s, i, "Failed to load stats. Please try again.")
	}

	return RespondWithEmbed(s, i, renderStatsEmbed(out.Stats))
}

// handleHistory handles the history subcommand
func (c *RankCommand) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate, countOpt *discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()

	input := &settlement.GetHistoryInput{}
	if countOpt != nil {
		input.Limit = int(countOpt.IntValue())
	}

	out, err := c.settlementService.GetHistory(ctx, input)
	if err != nil {
		log.Printf("Error getting history: %v", err)
		return RespondWithError(s, i, "Failed to load match history. Please try again.")
	}

	return RespondWithEmbed(s, i, renderHistoryEmbed(out.Matches))
}

// handleDeleteMatch handles the deletematch subcommand
func (c *RankCommand) handleDeleteMatch(s *discordgo.Session, i *discordgo.InteractionCreate, matchID int64) error {
	ctx := context.Background()

	isAdmin := i.Member.Permissions&discordgo.PermissionAdministrator != 0

	out, err := c.settlementService.DeleteHistoryEntry(ctx, &settlement.DeleteHistoryEntryInput{
		MatchID:               matchID,
		RequesterIsPrivileged: isAdmin,
	})
	if err != nil {
		if errors.Is(err, settlement.ErrNotAuthorized) {
			return RespondWithEphemeralMessage(s, i, "Only server admins can delete matches.")
		}
		log.Printf("Error deleting match %d: %v", matchID, err)
		return RespondWithError(s, i, "Failed to delete the match. Please try again.")
	}

	if !out.Deleted {
		return RespondWithEphemeralMessage(s, i, fmt.Sprintf("No match #%d found in history.", matchID))
	}

	return RespondWithEphemeralMessage(s, i, fmt.Sprintf("Match #%d deleted from history. Ratings are unchanged.", matchID))
}

// registerUser fetches or creates the player record for a Discord user
func (c *RankCommand) registerUser(ctx context.Context, user *discordgo.User) error {
	name := user.GlobalName
	if name == "" {
		name = user.Username
	}

	_, err := c.settlementService.RegisterPlayer(ctx, &settlement.RegisterPlayerInput{
		PlayerID: user.ID,
		Name:     name,
		Handle:   user.Username,
	})
	return err
}
