package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-one-bot/internal/application"
	"telegram-one-bot/internal/config"
	"telegram-one-bot/internal/infra/metrics"
	"telegram-one-bot/internal/infra/redis"
)

// perUserLimit caps how many messages one user may send per window before the
// bot goes quiet on them.
const (
	perUserLimit  = 20
	perUserWindow = time.Minute
)

// RealBot polls Telegram for updates and feeds them through the facade with a
// bounded worker pool.
type RealBot struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	facade  *application.BotFacade
	limiter *redis.RateLimiter
	log     *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
	httpClient    *http.Client
}

// NewBotAPI authenticates against the Telegram Bot API. The client is shared
// between the poller and the messenger.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

func NewRealBot(bot *tgbotapi.BotAPI, cfg *config.BotConfig, facade *application.BotFacade, limiter *redis.RateLimiter, logger *zerolog.Logger) (*RealBot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	return &RealBot{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		limiter:       limiter,
		log:           logger,
		updateWorkers: workers,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// StartPolling begins polling Telegram for updates concurrently. It runs
// until ctx is canceled.
func (r *RealBot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("error handling update")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealBot) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealBot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	tgMsg := update.Message
	if tgMsg == nil || tgMsg.From == nil || tgMsg.Chat == nil {
		return nil
	}

	msg := application.IncomingMessage{
		ChatID:    tgMsg.Chat.ID,
		UserID:    tgMsg.From.ID,
		Username:  tgMsg.From.UserName,
		ChatType:  tgMsg.Chat.Type,
		MessageID: tgMsg.MessageID,
		Text:      tgMsg.Text,
	}
	if tgMsg.ReplyToMessage != nil {
		msg.RepliedTo = tgMsg.ReplyToMessage.Text
		msg.ThreadID = tgMsg.ReplyToMessage.MessageID
	}
	if tgMsg.Voice != nil {
		voice, err := r.downloadVoice(ctx, tgMsg.Voice)
		if err != nil {
			r.log.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("voice download failed")
			return err
		}
		msg.Voice = voice
	}

	if !r.facade.Supports(msg) {
		return nil
	}

	if r.limiter != nil && !isAdmin(r.cfg.AdminIDs, msg.UserID) {
		key := redis.UserCommandKey(msg.UserID, "message")
		allowed, err := r.limiter.Allow(ctx, key, perUserLimit, perUserWindow)
		if err != nil {
			r.log.Warn().Err(err).Msg("rate limiter unavailable, letting the message through")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return nil
		}
	}

	return r.facade.Dispatch(ctx, msg)
}

// isAdmin exempts configured admin accounts from the per-user limiter.
func isAdmin(adminIDs []int64, userID int64) bool {
	for _, id := range adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *RealBot) downloadVoice(ctx context.Context, voice *tgbotapi.Voice) (*application.VoiceNote, error) {
	url, err := r.bot.GetFileDirectURL(voice.FileID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &application.VoiceNote{
		Data:            data,
		Filename:        voice.FileID + ".ogg",
		DurationSeconds: float64(voice.Duration),
	}, nil
}
