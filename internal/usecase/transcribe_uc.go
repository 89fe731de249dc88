// File: internal/usecase/transcribe_uc.go
package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

// defaultPerSecondCents is the metered rate for speech-to-text when the
// config does not set one.
const defaultPerSecondCents = 0.05

// summarizeThresholdChars is the transcript length past which a summary is
// produced alongside the full text.
const summarizeThresholdChars = 512

// defaultSummaryWords caps the summary length when the config sets no word limit.
const defaultSummaryWords = 100

const summarizeTemplate = "Summarize the following transcript in at most %d words:\n\n%s"

// TranscribeUseCase handles incoming voice notes: transcribe, optionally
// summarize, and meter per audio second.
type TranscribeUseCase struct {
	transcriber adapter.Transcriber
	provider    adapter.CompletionProvider
	payments    *PaymentsUseCase
	messenger   adapter.Messenger
	errs        *ErrorHandler
	model        string
	perSecCents  float64
	summaryWords int
	log          *zerolog.Logger
}

func NewTranscribeUseCase(
	transcriber adapter.Transcriber,
	provider adapter.CompletionProvider,
	payments *PaymentsUseCase,
	messenger adapter.Messenger,
	errs *ErrorHandler,
	modelName string,
	perSecCents float64,
	summaryWords int,
	logger *zerolog.Logger,
) *TranscribeUseCase {
	if perSecCents <= 0 {
		perSecCents = defaultPerSecondCents
	}
	if summaryWords <= 0 {
		summaryWords = defaultSummaryWords
	}
	return &TranscribeUseCase{
		transcriber:  transcriber,
		provider:     provider,
		payments:     payments,
		messenger:    messenger,
		errs:         errs,
		model:        modelName,
		perSecCents:  perSecCents,
		summaryWords: summaryWords,
		log:          logger,
	}
}

// EstimatePriceCents prices a voice note by its duration.
func (u *TranscribeUseCase) EstimatePriceCents(durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return math.Ceil(durationSeconds) * u.perSecCents * u.payments.PriceAdjustment()
}

// OnVoice transcribes one voice note. durationSeconds comes from the message
// metadata and drives the upfront balance check; the transcriber's reported
// duration drives settlement.
func (u *TranscribeUseCase) OnVoice(ctx context.Context, caller Caller, audio []byte, filename string, durationSeconds float64) error {
	if u.errs.Suspended() {
		_, _ = u.messenger.Reply(ctx, caller.ChatID, suspendedText, &adapter.SendOptions{ThreadID: caller.ThreadID})
		return nil
	}
	price := u.EstimatePriceCents(durationSeconds)
	ok, err := u.payments.HasBalance(ctx, caller, price)
	if err != nil {
		u.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return err
	}
	if !ok {
		u.notifyLowBalance(ctx, caller)
		return nil
	}

	u.messenger.SendTyping(ctx, caller.ChatID)
	transcript, err := u.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		u.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return err
	}
	if transcript.Text == "" {
		_, err := u.messenger.Reply(ctx, caller.ChatID, "Could not transcribe the voice message", &adapter.SendOptions{ThreadID: caller.ThreadID})
		return err
	}

	text := transcript.Text
	if len(text) > summarizeThresholdChars {
		if summary, err := u.summarize(ctx, text); err == nil && summary != "" {
			text = fmt.Sprintf("%s\n\nSummary:\n%s", text, summary)
		} else if err != nil {
			u.log.Warn().Err(err).Msg("transcript summarization failed")
		}
	}
	if _, err := u.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ThreadID: caller.ThreadID, ReplyTo: caller.MessageID}); err != nil {
		u.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return err
	}

	if transcript.DurationSeconds > 0 {
		price = u.EstimatePriceCents(transcript.DurationSeconds)
	}
	paid, err := u.payments.Pay(ctx, caller, price)
	if err != nil {
		u.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return err
	}
	if !paid {
		u.notifyLowBalance(ctx, caller)
	}
	return nil
}

func (u *TranscribeUseCase) summarize(ctx context.Context, text string) (string, error) {
	conversation := []model.ChatMessage{{
		Role:    model.RoleUser,
		Content: fmt.Sprintf(summarizeTemplate, u.summaryWords, text),
	}}
	result, err := u.provider.ChatCompletion(ctx, conversation, u.model)
	if err != nil {
		return "", err
	}
	if result.Completion == nil {
		return "", nil
	}
	return result.Completion.Content, nil
}

func (u *TranscribeUseCase) notifyLowBalance(ctx context.Context, caller Caller) {
	credits := "0.00"
	if bal, err := u.payments.EffectiveBalance(ctx, caller.AccountID); err == nil {
		credits = fmt.Sprintf("%.2f", bal.ONE(true))
	}
	text := replaceBalanceVars(notEnoughBalanceText, credits, u.payments.DepositAddress(caller.AccountID))
	_, _ = u.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID})
}
