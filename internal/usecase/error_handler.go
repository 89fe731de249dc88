// File: internal/usecase/error_handler.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/ports/adapter"
	"telegram-one-bot/internal/infra/metrics"
)

// MaxRetries bounds delivery attempts for transient transport errors.
const MaxRetries = 3

// suspensionFloor is the minimum bot-wide pause after a transport rate limit.
const suspensionFloor = 60 * time.Second

// ErrorHandler is the bot-wide error/retry envelope. Suspension state is
// shared across all sessions: while suspended, new prompt commands
// short-circuit with a "bot is suspended" reply instead of enqueueing.
type ErrorHandler struct {
	mu        sync.Mutex
	suspended bool

	messenger adapter.Messenger
	sleep     func(ctx context.Context, d time.Duration)
	log       *zerolog.Logger
}

func NewErrorHandler(messenger adapter.Messenger, logger *zerolog.Logger) *ErrorHandler {
	return &ErrorHandler{
		messenger: messenger,
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
		log: logger,
	}
}

// Suspended reports whether the bot is currently paused bot-wide.
func (h *ErrorHandler) Suspended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suspended
}

func (h *ErrorHandler) setSuspended(v bool) {
	h.mu.Lock()
	h.suspended = v
	h.mu.Unlock()
}

// OnError runs onStop (conversation amnesia) for every error class, then
// classifies err and reacts:
//   - transport rate limit: suspend bot-wide, sleep max(60s, 2x retry-after),
//     resume; the user is told how long the pause lasts
//   - transport permission error: the specific description is surfaced, no retry
//   - other transport errors: generic failure message, bounded retries, then
//     give up with a log entry only
//   - application errors: generic failure message
//
// Nothing propagates to the caller; one bad item must not halt the queue.
func (h *ErrorHandler) OnError(ctx context.Context, caller Caller, err error, retriesLeft int, onStop func()) {
	if err == nil {
		return
	}
	// Amnesia before anything else, whatever the class: a poisoned history
	// must not survive into the next exchange.
	if onStop != nil {
		onStop()
	}
	log := h.log.With().Int64("chat_id", caller.ChatID).Logger()

	var terr *adapter.TransportError
	if errors.As(err, &terr) {
		switch {
		case terr.IsRateLimit():
			delay := suspensionFloor
			if suggested := time.Duration(terr.RetryAfter) * time.Second * 2; suggested > delay {
				delay = suggested
			}
			log.Warn().Int("retry_after", terr.RetryAfter).Dur("delay", delay).
				Str("method", terr.Method).Msg("transport rate limit, suspending bot")
			h.setSuspended(true)
			metrics.IncSuspension()
			h.notify(ctx, caller, fmt.Sprintf("The bot is suspended for %.0f seconds due to rate limiting. Please try again later.", delay.Seconds()), retriesLeft)
			h.sleep(ctx, delay)
			h.setSuspended(false)
			return
		case terr.IsPermission():
			log.Warn().Int("code", terr.Code).Str("method", terr.Method).Msg(terr.Description)
			h.notify(ctx, caller, fmt.Sprintf("The bot does not have the required permissions: %s", terr.Description), retriesLeft)
			return
		default:
			if retriesLeft <= 0 {
				log.Error().Err(err).Msg("transport error, retries exhausted")
				return
			}
			log.Error().Err(err).Int("retries_left", retriesLeft).Msg("transport error")
			h.notify(ctx, caller, "Error handling your request. Please try again.", retriesLeft-1)
			return
		}
	}

	if errors.Is(err, domain.ErrNoCompletion) {
		log.Error().Err(err).Msg("provider returned no completion")
	} else {
		log.Error().Err(err).Msg("request failed")
	}
	h.notify(ctx, caller, "Error handling your request. Please try again.", retriesLeft)
}

// notify delivers a user-facing error message with a bounded retry loop
// (an explicit counter, not recursive callbacks).
func (h *ErrorHandler) notify(ctx context.Context, caller Caller, text string, retriesLeft int) {
	opts := &adapter.SendOptions{ThreadID: caller.ThreadID}
	for attempt := 0; attempt <= retriesLeft; attempt++ {
		if _, err := h.messenger.Reply(ctx, caller.ChatID, text, opts); err == nil {
			return
		} else if attempt == retriesLeft {
			h.log.Error().Err(err).Int64("chat_id", caller.ChatID).Msg("giving up on error notification")
		}
	}
}
