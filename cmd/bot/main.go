package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rallyrank/rallyrank/internal/handlers/discord"
	"github.com/rallyrank/rallyrank/internal/rating"
	"github.com/rallyrank/rallyrank/internal/repositories/match"
	"github.com/rallyrank/rallyrank/internal/repositories/player"
	"github.com/rallyrank/rallyrank/internal/scheduler"
	"github.com/rallyrank/rallyrank/internal/services/settlement"
)

func main() {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Initialize repositories
	playerRepo, err := player.NewRedis(&player.Config{
		RedisClient: redisClient,
	})
	if err != nil {
		log.Fatalf("Failed to create player repository: %v", err)
	}

	matchRepo, err := match.NewRedis(&match.Config{
		RedisClient: redisClient,
	})
	if err != nil {
		log.Fatalf("Failed to create match repository: %v", err)
	}

	// Initialize rating engine
	ratingEngine := rating.New(&rating.Config{})

	confirmTimeout, err := time.ParseDuration(getEnv("CONFIRM_TIMEOUT", "2h"))
	if err != nil {
		log.Fatalf("Invalid CONFIRM_TIMEOUT: %v", err)
	}

	// The scheduler callback reaches the settlement service and bot, both of
	// which are constructed afterwards. The captured variables are assigned
	// before the scheduler starts polling.
	var (
		settlementSvc settlement.Service
		bot           *discord.Bot
	)

	expiryScheduler, err := scheduler.NewRedis(&scheduler.Config{
		RedisClient: redisClient,
		OnExpire: func(ctx context.Context, pendingID int64) {
			out, err := settlementSvc.ExpirePending(ctx, &settlement.ExpirePendingInput{
				PendingID: pendingID,
			})
			if err != nil {
				log.Printf("Failed to expire pending match %d: %v", pendingID, err)
				return
			}
			if out.Expired {
				bot.NotifyExpiry(out.Pending)
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to create expiry scheduler: %v", err)
	}

	// Initialize settlement service
	settlementSvc, err = settlement.New(&settlement.Config{
		PlayerRepo:     playerRepo,
		MatchRepo:      matchRepo,
		RatingEngine:   ratingEngine,
		Scheduler:      expiryScheduler,
		ConfirmTimeout: confirmTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create settlement service: %v", err)
	}

	// Get Discord token from environment
	discordToken := getEnv("DISCORD_TOKEN", "")
	if discordToken == "" {
		log.Fatal("DISCORD_TOKEN environment variable is required")
	}

	// Get application ID for the bot
	applicationID := getEnv("APPLICATION_ID", "")

	// Get optional guild ID for development
	guildID := getEnv("GUILD_ID", "")

	// Initialize Discord bot
	bot, err = discord.New(&discord.Config{
		Token:             discordToken,
		ApplicationID:     applicationID,
		GuildID:           guildID,
		SettlementService: settlementSvc,
		ConfirmWindow:     confirmTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create Discord bot: %v", err)
	}

	// Start the bot
	if err := bot.Start(); err != nil {
		log.Fatalf("Failed to start Discord bot: %v", err)
	}

	// Deadlines armed before a restart are picked up here
	expiryScheduler.Start()

	// Wait for interrupt signal to gracefully shutdown
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Shutdown the scheduler first so no expiry fires mid-teardown
	expiryScheduler.Stop()

	if err := bot.Stop(); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("Bot has been shut down")
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
