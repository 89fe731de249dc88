// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-one-bot/internal/application"
	"telegram-one-bot/internal/config"
	"telegram-one-bot/internal/domain/ports/adapter"
	aiAdapters "telegram-one-bot/internal/infra/adapters/ai"
	regAdapters "telegram-one-bot/internal/infra/adapters/registry"
	speechAdapters "telegram-one-bot/internal/infra/adapters/speech"
	tele "telegram-one-bot/internal/infra/adapters/telegram"
	walletAdapters "telegram-one-bot/internal/infra/adapters/wallet"
	pg "telegram-one-bot/internal/infra/db/postgres"
	"telegram-one-bot/internal/infra/logging"
	"telegram-one-bot/internal/infra/memory"
	"telegram-one-bot/internal/infra/metrics"
	red "telegram-one-bot/internal/infra/redis"
	"telegram-one-bot/internal/infra/web"
	"telegram-one-bot/internal/usecase"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()
	creditsRepo := pg.NewCreditsRepo(pool)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Chain + price feed ----
	chain := walletAdapters.NewHarmonyClient(cfg.Payment.RPCURL, cfg.Payment.MasterAddress)
	priceFeed := red.NewPriceCache(redisClient, walletAdapters.NewCoinGeckoFeed(cfg.Payment.PriceFeedURL), cfg.Redis.TTL)

	// ---- Sessions ----
	sessions := memory.NewSessionStore(cfg.AI.DefaultModel)

	// ---- AI providers ----
	openaiAdapter, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.MaxTokens, cfg.AI.Temperature)
	if err != nil {
		logger.Fatal().Err(err).Msg("openai adapter")
	}
	byProvider := map[string]adapter.CompletionProvider{
		"openai": openaiAdapter,
	}
	if cfg.AI.GeminiKey != "" {
		geminiAdapter, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.MaxTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		byProvider["gemini"] = geminiAdapter
		logger.Info().Str("base", cfg.AI.GeminiURL).Msg("gemini provider enabled")
	}
	provider := aiAdapters.NewLimitedProvider(aiAdapters.NewMultiAdapter("openai", byProvider), cfg.AI.ConcurrentLimit)
	tokenizer := aiAdapters.NewTiktokenCounter()

	// ---- Telegram client + messenger ----
	botAPI, err := tele.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram auth")
	}
	messenger := tele.NewMessenger(botAPI)

	// ---- Use cases ----
	payments := usecase.NewPaymentsUseCase(
		chain, creditsRepo, priceFeed,
		cfg.Bot.UserWhitelist, cfg.Bot.NameWhitelist, cfg.Bot.GroupWhitelist,
		cfg.Payment.PriceAdjustment, cfg.Payment.MinBalanceCents, logger,
	)
	errs := usecase.NewErrorHandler(messenger, logger)
	queue := usecase.NewCompletionQueue(sessions, provider, tokenizer, payments, messenger, errs, cfg.Bot.TypingIndicator, logger)
	chatUC := usecase.NewChatUseCase(sessions, queue, payments, messenger, cfg.AI.DefaultModel, cfg.AI.ChatPrefixes, logger)
	imageUC := usecase.NewImageUseCase(sessions, openaiAdapter, provider, payments, messenger, errs, cfg.AI.NumImages, cfg.AI.ImageSize, logger)
	registryUC := usecase.NewRegistryUseCase(regAdapters.NewRelayClient(cfg.Registry.RelayURL), messenger, cfg.Registry.TLD, logger)
	ttsUC := usecase.NewTTSUseCase(speechAdapters.NewTTSClient(cfg.Speech.TTSURL, cfg.Speech.TTSKey), messenger, logger)
	transcribeUC := usecase.NewTranscribeUseCase(
		speechAdapters.NewJobClient(cfg.Speech.TranscribeURL, cfg.Speech.TranscribeKey),
		provider, payments, messenger, errs,
		cfg.AI.DefaultModel, cfg.Speech.PricePerSec, cfg.AI.WordLimit, logger,
	)

	// ---- Facade ----
	facade := application.NewBotFacade(chatUC, imageUC, registryUC, ttsUC, transcribeUC, cfg.Bot.Username)

	// ---- Telegram polling ----
	botAdapter, err := tele.NewRealBot(botAPI, &cfg.Bot, facade, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram bot")
	}
	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Admin / metrics HTTP server ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, !cfg.Runtime.Dev, cfg.Web.SessionTTL)
	srv := web.NewServer(sessions, creditsRepo, auth, cfg.Web.JWTSecret, logger)
	go func() {
		if err := srv.Run(ctx, cfg.Web.Port); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Str("version", version).Str("commit", commit).Msg("bot started")

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	botAdapter.StopPolling()
	cancel()
}
