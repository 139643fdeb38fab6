package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rallyrank/rallyrank/internal/models"
	"github.com/rallyrank/rallyrank/internal/services/settlement"
)

// Component custom ID prefixes
const (
	// ButtonConfirmResult prefixes the confirm button; the pending report ID
	// follows the colon
	ButtonConfirmResult = "confirm_result"
)

// Bot represents the Discord bot instance
type Bot struct {
	session           *discordgo.Session
	commands          map[string]CommandHandler
	commandIDs        map[string]string // Maps command name to command ID
	settlementService settlement.Service
	config            *Config
}

// Config holds the configuration for the bot
type Config struct {
	// Discord bot token
	Token string

	// Application ID for the bot
	ApplicationID string

	// Optional guild ID for development (server-specific commands)
	GuildID string

	// Settlement service
	SettlementService settlement.Service

	// ConfirmWindow is shown in report announcements; it should match the
	// settlement service's confirmation timeout
	ConfirmWindow time.Duration
}

// New creates a new Discord bot
func New(cfg *Config) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Token == "" {
		return nil, errors.New("token cannot be empty")
	}

	if cfg.SettlementService == nil {
		return nil, errors.New("settlement service cannot be nil")
	}

	// Create a new Discord session
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	bot := &Bot{
		session:           session,
		commands:          make(map[string]CommandHandler),
		commandIDs:        make(map[string]string),
		settlementService: cfg.SettlementService,
		config:            cfg,
	}

	// Register the interaction handler
	session.AddHandler(bot.handleInteraction)

	return bot, nil
}

// Start initializes the Discord connection and registers commands
func (b *Bot) Start() error {
	// Open the websocket connection to Discord
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	// Register the rank command
	rankCmd := NewRankCommand(b.settlementService, b.config.ConfirmWindow)
	if err := b.RegisterCommand(rankCmd); err != nil {
		return fmt.Errorf("failed to register rank command: %w", err)
	}

	log.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop gracefully shuts down the Discord connection
func (b *Bot) Stop() error {
	// Remove all commands
	appID := b.config.ApplicationID
	if appID == "" {
		appID = b.session.State.User.ID
	}

	for cmdName, cmdID := range b.commandIDs {
		if err := b.session.ApplicationCommandDelete(appID, b.config.GuildID, cmdID); err != nil {
			log.Printf("Failed to delete command %s (ID: %s): %v", cmdName, cmdID, err)
		}
	}

	return b.session.Close()
}

// RegisterCommand registers a command with Discord
func (b *Bot) RegisterCommand(cmd CommandHandler) error {
	appID := b.config.ApplicationID
	if appID == "" {
		// Fall back to session user ID if application ID is not provided
		appID = b.session.State.User.ID
	}

	// If guild ID is provided, register the command for that specific guild.
	// Otherwise, register it globally.
	guildID := b.config.GuildID
	if guildID != "" {
		log.Printf("Registering command %s for guild %s", cmd.GetName(), guildID)
	} else {
		log.Printf("Registering command %s globally", cmd.GetName())
	}

	createdCmd, err := b.session.ApplicationCommandCreate(appID, guildID, cmd.GetCommand())
	if err != nil {
		return fmt.Errorf("failed to create command %s: %w", cmd.GetName(), err)
	}

	// Store the command handler and its ID
	b.commands[cmd.GetName()] = cmd
	b.commandIDs[cmd.GetName()] = createdCmd.ID

	return nil
}

// NotifyExpiry announces an expired report in the channel it was reported in
func (b *Bot) NotifyExpiry(pending *models.PendingMatch) {
	if pending.ChannelID == "" {
		return
	}

	if _, err := b.session.ChannelMessageSendEmbed(pending.ChannelID, renderExpiredEmbed(pending)); err != nil {
		log.Printf("Failed to announce expiry of report %d: %v", pending.ID, err)
	}
}

// handleInteraction handles Discord interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		// Handle slash commands
		if h, ok := b.commands[i.ApplicationCommandData().Name]; ok {
			if err := h.Handle(s, i); err != nil {
				log.Printf("Error handling command %s: %v", i.ApplicationCommandData().Name, err)
			}
		}
	case discordgo.InteractionMessageComponent:
		// Handle buttons and other components
		if err := b.handleComponentInteraction(s, i); err != nil {
			log.Printf("Error handling component interaction: %v", err)
		}
	}
}

// handleComponentInteraction handles button clicks
func (b *Bot) handleComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	customID := i.MessageComponentData().CustomID

	action, arg, _ := strings.Cut(customID, ":")
	switch action {
	case ButtonConfirmResult:
		pendingID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return RespondWithError(s, i, fmt.Sprintf("Malformed report ID: %s", arg))
		}
		return b.handleConfirmButton(s, i, pendingID)
	default:
		return RespondWithError(s, i, fmt.Sprintf("Unknown button: %s", customID))
	}
}

// handleConfirmButton settles a pending report on behalf of the clicking
// participant
func (b *Bot) handleConfirmButton(s *discordgo.Session, i *discordgo.InteractionCreate, pendingID int64) error {
	ctx := context.Background()
	userID := i.Member.User.ID

	out, err := b.settlementService.Confirm(ctx, &settlement.ConfirmInput{
		PendingID:   pendingID,
		RequesterID: userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrNotAuthorized):
			return RespondWithEphemeralMessage(s, i, "Only players in this match can confirm the result.")
		case errors.Is(err, settlement.ErrAlreadySettled):
			return RespondWithEphemeralMessage(s, i, "This report has already been settled or has expired.")
		default:
			log.Printf("Error confirming report %d: %v", pendingID, err)
			return RespondWithError(s, i, "Failed to confirm the result. Please try again.")
		}
	}

	// Replace the report announcement with the settlement notice, dropping
	// the confirm button
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{renderSettledEmbed(out)},
			Components: []discordgo.MessageComponent{},
		},
	})
}
