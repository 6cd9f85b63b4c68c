package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vkcopy-bot/internal/auth"
	"vkcopy-bot/internal/config"
	"vkcopy-bot/internal/copier"
	"vkcopy-bot/internal/copyflow"
	"vkcopy-bot/internal/database"
	"vkcopy-bot/internal/database/models"
	"vkcopy-bot/internal/handlers"
	"vkcopy-bot/internal/locales"
	"vkcopy-bot/internal/poster"
	"vkcopy-bot/internal/vk"

	telegoBot "vkcopy-bot/bot"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize localization bundle
	locales.Init("ru")

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Connect to MongoDB
	client, db, err := database.ConnectDB(cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	defer func() {
		if err = client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
			sentry.CaptureException(err)
		} else {
			log.Println("Disconnected from MongoDB.")
		}
	}()

	// Create repository instances
	targetChatRepo := database.NewMongoTargetChatRepository(db)
	mongoLogger := database.NewMongoLogger(db)

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed the destination chat from the environment when nothing is
	// saved yet. /setchat still overrides it at runtime.
	if cfg.TargetChatID != "" {
		if _, err := targetChatRepo.GetTargetChat(ctx); err != nil {
			seedErr := targetChatRepo.SetTargetChat(ctx, models.TargetChat{ChatID: cfg.TargetChatID})
			if seedErr != nil {
				log.Printf("Failed to seed target chat from TARGET_CHAT_ID: %v", seedErr)
			} else {
				log.Printf("Seeded target chat %s from TARGET_CHAT_ID", cfg.TargetChatID)
			}
		}
	}

	// --- Bot Initialization ---
	// 1. Create the raw telego bot instance first
	var tgBot *telego.Bot
	if cfg.Debug {
		tgBot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		tgBot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	// 2. Create the VK API client
	vkClient := vk.NewClient(cfg.VKAccessToken, cfg.VKAPIVersion, cfg.RequestTimeout)

	// 3. Create the media poster and the copier on top of it
	mediaPoster := poster.New(tgBot, cfg.RequestTimeout)
	copyService, err := copier.New(vkClient, mediaPoster, mongoLogger)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create copier: %v", err)
	}

	// 4. Create the admin checker used by /setchat
	adminChecker, err := auth.NewAdminChecker(tgBot)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create admin checker: %v", err)
	}

	// 5. Create the copy flow manager
	flowManager := copyflow.NewManager(
		tgBot,
		vkClient,
		copyService,
		targetChatRepo,
		adminChecker,
	)

	// 6. Create message handler with dependencies
	messageHandler := handlers.NewMessageHandler(
		tgBot,
		cfg.Version,
		cfg.VKAPIVersion,
		targetChatRepo,
		mongoLogger,
		mongoLogger,
		flowManager,
	)

	// 7. Start long polling and create the bot wrapper
	updatesChan, err := tgBot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	appBot, err := telegoBot.New(telegoBot.BotDeps{
		Bot:         tgBot,
		UpdatesChan: updatesChan,
		Debug:       cfg.Debug,
		Handler:     messageHandler,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Register commands up front so they show before the first /start.
	if err := messageHandler.SetupCommands(ctx); err != nil {
		log.Printf("Failed to set bot commands on startup: %v", err)
	}

	// Start the bot wrapper's processing loop in a separate goroutine
	go appBot.Start(ctx)

	// Wait for context cancellation (e.g., SIGINT, SIGTERM)
	<-ctx.Done()

	log.Println("Shutting down bot...")
	appBot.Stop()

	log.Println("Bot shutdown complete.")
}
