// File: internal/usecase/queue_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
	"telegram-one-bot/internal/domain/ports/repository"
	"telegram-one-bot/internal/infra/metrics"
)

// messageLimit is the platform's ceiling for one message. Streaming flushes
// that exceed it finalize the current message and continue in a new one.
const messageLimit = 4096

// streamFlushChars is how much new text accumulates between edits of the
// placeholder message while streaming.
const streamFlushChars = 80

const placeholder = "..."

// splitIndex picks where to break text longer than the message ceiling:
// the last newline in the window when one falls in its second half, else
// the ceiling itself backed off to a rune boundary.
func splitIndex(s string) int {
	cut := messageLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if i := strings.LastIndexByte(s[:cut], '\n'); i > messageLimit/2 {
		return i
	}
	return cut
}

// CompletionQueue is the single-flight-per-session dispatch pipeline: it
// serializes concurrent prompts through a per-session FIFO and, for each item,
// runs balance-check, completion, payment settlement and conversation append.
type CompletionQueue struct {
	sessions  repository.SessionStore
	provider  adapter.CompletionProvider
	tokenizer adapter.Tokenizer
	payments  *PaymentsUseCase
	messenger adapter.Messenger
	errs      *ErrorHandler
	typing    bool
	log       *zerolog.Logger
}

func NewCompletionQueue(
	sessions repository.SessionStore,
	provider adapter.CompletionProvider,
	tokenizer adapter.Tokenizer,
	payments *PaymentsUseCase,
	messenger adapter.Messenger,
	errs *ErrorHandler,
	typingIndicator bool,
	logger *zerolog.Logger,
) *CompletionQueue {
	return &CompletionQueue{
		sessions:  sessions,
		provider:  provider,
		tokenizer: tokenizer,
		payments:  payments,
		messenger: messenger,
		errs:      errs,
		typing:    typingIndicator,
		log:       logger,
	}
}

// Enqueue accepts a prompt for the caller's session and starts the drain loop
// unless one is already running, in which case the item just waits its turn.
// While the bot is suspended, nothing is enqueued.
func (q *CompletionQueue) Enqueue(ctx context.Context, caller Caller, modelName, content string, stream bool) error {
	if q.errs.Suspended() {
		_, _ = q.messenger.Reply(ctx, caller.ChatID, suspendedText, &adapter.SendOptions{ThreadID: caller.ThreadID})
		return domain.ErrBotSuspended
	}
	sess := q.sessions.Get(caller.AccountID)
	req := model.QueuedRequest{
		ID:        ulid.Make().String(),
		MessageID: caller.MessageID,
		Model:     modelName,
		Content:   strings.TrimSpace(content),
	}
	metrics.QueueDepth(sess.QueueLen() + 1)
	if sess.Enqueue(req) {
		go q.drain(ctx, caller, sess, stream)
	}
	return nil
}

// drain empties the session queue one item at a time, FIFO. Pop clears the
// processing flag atomically when the queue is empty, so a concurrent Enqueue
// either sees the flag still set or starts a fresh drain; no second loop can
// run for the same session in between.
func (q *CompletionQueue) drain(ctx context.Context, caller Caller, sess *model.Session, stream bool) {
	for {
		req, ok := sess.Pop()
		if !ok {
			return
		}
		if stop := q.processOne(ctx, caller, sess, req, stream); stop {
			// Empty-prompt short circuit: abandon the rest of this pass.
			// Leftover items stay queued until the next Enqueue.
			sess.StopDraining()
			return
		}
	}
}

// processOne runs one drain iteration. A true return stops the whole pass.
// Errors never escape: each iteration is wrapped so one bad item cannot halt
// the queue for subsequent items.
func (q *CompletionQueue) processOne(ctx context.Context, caller Caller, sess *model.Session, req model.QueuedRequest, stream bool) (stop bool) {
	chatModel, err := model.GetChatModel(req.Model)
	if err != nil {
		q.log.Error().Str("model", req.Model).Msg("unknown model, dropping request")
		return false
	}

	// Balance changes between queued items; check fresh every iteration.
	ok, err := q.payments.HasBalance(ctx, caller, chatModel.MinBalanceCents)
	if err != nil {
		q.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return false
	}
	if !ok {
		metrics.PrecheckBlocked(chatModel.Provider, req.Model)
		q.notifyLowBalance(ctx, caller)
		return false
	}

	if req.Content == "" {
		// Show the last reply (or the intro) and stop this drain pass.
		text := introText
		if last, ok := sess.Last(); ok {
			text = fmt.Sprintf("%s\n_%s_", lastReplyText, last.Content)
		}
		if _, err := q.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID}); err != nil {
			q.errs.OnError(ctx, caller, err, MaxRetries, nil)
		}
		return true
	}

	sess.Append(model.ChatMessage{Role: model.RoleUser, Content: req.Content, Model: req.Model})
	conversation := sess.Snapshot()

	var result model.CompletionResult
	if stream {
		result, conversation, err = q.completionGen(ctx, caller, conversation, chatModel)
	} else {
		result, conversation, err = q.promptGen(ctx, caller, conversation, chatModel)
	}
	if err != nil {
		q.errs.OnError(ctx, caller, err, MaxRetries, sess.Clear)
		return false
	}

	// Swap, not in-place mutation: other readers never observe a
	// half-updated history.
	sess.Swap(conversation)
	sess.AddSpend(result.Usage, result.PriceCents)

	paid, err := q.payments.Pay(ctx, caller, result.PriceCents)
	if err != nil {
		q.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return false
	}
	if !paid {
		// The completion is already delivered; never rolled back.
		q.notifyLowBalance(ctx, caller)
	}
	return false
}

// completionGen streams a completion into a live-updating message. The
// placeholder is edited as partial text arrives; when it would exceed the
// platform ceiling the current message is finalized and a continuation
// message takes over. Price is computed from actual token counts.
func (q *CompletionQueue) completionGen(ctx context.Context, caller Caller, conversation []model.ChatMessage, chatModel model.ChatModel) (model.CompletionResult, []model.ChatMessage, error) {
	opts := &adapter.SendOptions{ThreadID: caller.ThreadID}
	msgID, err := q.messenger.Reply(ctx, caller.ChatID, placeholder, opts)
	if err != nil {
		return model.CompletionResult{}, conversation, err
	}
	if q.typing {
		q.messenger.SendTyping(ctx, caller.ChatID)
	}

	var flushed int  // chars already shown in finalized messages
	var lastEdit int // chars shown in the live message at last edit

	// rollOver finalizes full messages until the unflushed tail fits under the
	// ceiling. No single edit ever exceeds messageLimit.
	rollOver := func(full string) error {
		for len(full)-flushed > messageLimit {
			tail := full[flushed:]
			cut := splitIndex(tail)
			if err := q.messenger.EditMessageText(ctx, caller.ChatID, msgID, tail[:cut], opts); err != nil {
				return err
			}
			flushed += cut
			if full[flushed] == '\n' {
				flushed++
			}
			id, err := q.messenger.Reply(ctx, caller.ChatID, placeholder, opts)
			if err != nil {
				return err
			}
			msgID = id
			lastEdit = flushed
		}
		return nil
	}

	onDelta := func(partial string) {
		// Mid-stream edits are best effort; failures surface on the final flush.
		if rollOver(partial) != nil {
			return
		}
		if len(partial)-lastEdit < streamFlushChars {
			return
		}
		if err := q.messenger.EditMessageText(ctx, caller.ChatID, msgID, partial[flushed:], opts); err == nil {
			lastEdit = len(partial)
		}
	}

	result, err := q.provider.ChatStreamCompletion(ctx, conversation, chatModel.Name, onDelta)
	if err != nil {
		return model.CompletionResult{}, conversation, err
	}
	if result.Completion == nil {
		return model.CompletionResult{}, conversation, domain.ErrNoCompletion
	}

	content := result.Completion.Content
	if err := rollOver(content); err != nil {
		return model.CompletionResult{}, conversation, err
	}
	if final := content[flushed:]; final != "" {
		if err := q.messenger.EditMessageText(ctx, caller.ChatID, msgID, final, opts); err != nil {
			return model.CompletionResult{}, conversation, err
		}
	}

	// Price from actual prompt+completion token counts; streaming providers
	// do not always report usage.
	prompt := conversation[len(conversation)-1].Content
	promptTokens := q.tokenizer.CountTokens(chatModel.Name, prompt)
	completionTokens := q.tokenizer.CountTokens(chatModel.Name, content)
	if result.Usage == 0 {
		result.Usage = promptTokens + completionTokens
	}
	if result.PriceCents == 0 {
		result.PriceCents = model.ChatPriceCents(chatModel, promptTokens, completionTokens)
	}
	metrics.ObserveChatUsage(chatModel.Provider, chatModel.Name, result.Usage, result.PriceCents)
	q.log.Info().Str("model", chatModel.Name).Int("tokens", result.Usage).
		Float64("price_cents", result.PriceCents).Msg("stream completion done")

	conversation = append(conversation, model.ChatMessage{
		Role:    model.RoleAssistant,
		Content: content,
		Model:   chatModel.Name,
	})
	return result, conversation, nil
}

// promptGen is the non-streaming path: placeholder, full result, one edit.
// The provider's price is authoritative here.
func (q *CompletionQueue) promptGen(ctx context.Context, caller Caller, conversation []model.ChatMessage, chatModel model.ChatModel) (model.CompletionResult, []model.ChatMessage, error) {
	if caller.ChatID == 0 {
		return model.CompletionResult{}, conversation, domain.ErrMissingChatID
	}
	opts := &adapter.SendOptions{ThreadID: caller.ThreadID}
	msgID, err := q.messenger.Reply(ctx, caller.ChatID, placeholder, opts)
	if err != nil {
		return model.CompletionResult{}, conversation, err
	}
	if q.typing {
		q.messenger.SendTyping(ctx, caller.ChatID)
	}

	result, err := q.provider.ChatCompletion(ctx, conversation, chatModel.Name)
	if err != nil {
		return model.CompletionResult{}, conversation, err
	}
	if result.Completion == nil {
		return model.CompletionResult{}, conversation, domain.ErrNoCompletion
	}
	if err := q.messenger.EditMessageText(ctx, caller.ChatID, msgID, result.Completion.Content, opts); err != nil {
		return model.CompletionResult{}, conversation, err
	}
	metrics.ObserveChatUsage(chatModel.Provider, chatModel.Name, result.Usage, result.PriceCents)

	conversation = append(conversation, *result.Completion)
	return result, conversation, nil
}

func (q *CompletionQueue) notifyLowBalance(ctx context.Context, caller Caller) {
	credits := "0.00"
	if bal, err := q.payments.EffectiveBalance(ctx, caller.AccountID); err == nil {
		credits = fmt.Sprintf("%.2f", bal.ONE(true))
	}
	text := replaceBalanceVars(notEnoughBalanceText, credits, q.payments.DepositAddress(caller.AccountID))
	if _, err := q.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID}); err != nil {
		q.errs.OnError(ctx, caller, err, MaxRetries, nil)
	}
}
