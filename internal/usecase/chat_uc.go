// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
	"telegram-one-bot/internal/domain/ports/repository"
)

// ChatUseCase is the LLM-chat feature module: it shapes prompts, feeds the
// completion queue and owns the conversation commands (/ask, /new, /last,
// /end, bare prefixes).
type ChatUseCase struct {
	sessions  repository.SessionStore
	queue     *CompletionQueue
	payments  *PaymentsUseCase
	messenger adapter.Messenger

	defaultModel string
	prefixes     []string
	log          *zerolog.Logger
}

func NewChatUseCase(
	sessions repository.SessionStore,
	queue *CompletionQueue,
	payments *PaymentsUseCase,
	messenger adapter.Messenger,
	defaultModel string,
	prefixes []string,
	logger *zerolog.Logger,
) *ChatUseCase {
	return &ChatUseCase{
		sessions:     sessions,
		queue:        queue,
		payments:     payments,
		messenger:    messenger,
		defaultModel: defaultModel,
		prefixes:     prefixes,
		log:          logger,
	}
}

// HasPrefix returns the matched chat prefix, or "" when the text carries none.
// Prefixes let group members talk to the bot without a slash command.
func (c *ChatUseCase) HasPrefix(text string) string {
	lower := strings.ToLower(text)
	for _, p := range c.prefixes {
		if strings.HasPrefix(lower, p) {
			return p
		}
	}
	return ""
}

// PreparePrompt folds the replied-to message into the prompt so "explain
// this" on a forwarded text works.
func (c *ChatUseCase) PreparePrompt(prompt, repliedTo string) string {
	prompt = strings.TrimSpace(prompt)
	if p := c.HasPrefix(prompt); p != "" {
		prompt = strings.TrimSpace(prompt[len(p):])
	}
	if repliedTo != "" {
		return prompt + " " + repliedTo
	}
	return prompt
}

// OnAsk queues a prompt against the session's selected model. An empty prompt
// is queued too: the drain loop answers it with the last reply.
func (c *ChatUseCase) OnAsk(ctx context.Context, caller Caller, prompt, repliedTo string) error {
	sess := c.sessions.Get(caller.AccountID)
	modelName := sess.SelectedModel()
	if modelName == "" {
		modelName = c.defaultModel
	}
	return c.queue.Enqueue(ctx, caller, modelName, c.PreparePrompt(prompt, repliedTo), true)
}

// OnAskModel is OnAsk pinned to a specific model (/gpt4, /ask35 style).
func (c *ChatUseCase) OnAskModel(ctx context.Context, caller Caller, modelName, prompt, repliedTo string) error {
	c.sessions.Get(caller.AccountID).SetModel(modelName)
	return c.queue.Enqueue(ctx, caller, modelName, c.PreparePrompt(prompt, repliedTo), true)
}

// OnNew resets the conversation and immediately asks the prompt, if any.
func (c *ChatUseCase) OnNew(ctx context.Context, caller Caller, prompt, repliedTo string) error {
	sess := c.sessions.Get(caller.AccountID)
	sess.Reset()
	if strings.TrimSpace(prompt) == "" {
		return nil
	}
	return c.OnAsk(ctx, caller, prompt, repliedTo)
}

// OnLast shows the most recent reply without touching the queue.
func (c *ChatUseCase) OnLast(ctx context.Context, caller Caller) error {
	sess := c.sessions.Get(caller.AccountID)
	text := introText
	if last, ok := sess.Last(); ok {
		text = fmt.Sprintf("%s\n_%s_", lastReplyText, last.Content)
	}
	_, err := c.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID})
	return err
}

// OnEnd clears the conversation and reports what the session spent.
func (c *ChatUseCase) OnEnd(ctx context.Context, caller Caller) error {
	sess := c.sessions.Get(caller.AccountID)
	usage, priceCents := sess.Reset()
	onePrice, err := c.payments.ToONE(ctx, priceCents)
	if err != nil {
		c.log.Warn().Err(err).Msg("price feed unavailable for end-of-chat report")
		onePrice = 0
	}
	text := fmt.Sprintf("%s \n\n*%.2f ONE* spent (%d tokens)", chatEndText, onePrice, usage)
	_, err = c.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID})
	return err
}

// OnBalance reports the effective balance and deposit address.
func (c *ChatUseCase) OnBalance(ctx context.Context, caller Caller) error {
	bal, err := c.payments.EffectiveBalance(ctx, caller.AccountID)
	if err != nil {
		_, _ = c.messenger.Reply(ctx, caller.ChatID, "Failed to fetch your balance. Please try again.", nil)
		return err
	}
	text := fmt.Sprintf("Your balance: *%.2f ONE*\nDeposit address: `%s`",
		bal.ONE(true), c.payments.DepositAddress(caller.AccountID))
	_, err = c.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID})
	return err
}

// SelectModel pins a model for the session.
func (c *ChatUseCase) SelectModel(caller Caller, modelName string) error {
	if _, err := model.GetChatModel(modelName); err != nil {
		return err
	}
	c.sessions.Get(caller.AccountID).SetModel(modelName)
	return nil
}
