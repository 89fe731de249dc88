// File: internal/usecase/image_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
	"telegram-one-bot/internal/domain/ports/repository"
	"telegram-one-bot/internal/infra/metrics"
)

// imageSessionPrefix namespaces image sessions away from chat sessions so the
// two modules' queues never interleave.
const imageSessionPrefix = "img:"

// improvePromptTemplate is sent to the chat model on the enhanced path.
const improvePromptTemplate = "Improve this picture description using max 100 words and don't add additional text to the image: %s"

// ImageUseCase is the image-generation feature module. It shares the
// balance-gated dispatch pipeline: prompts are serialized through a
// per-session FIFO and each item runs balance-check, generation, settlement.
type ImageUseCase struct {
	sessions  repository.SessionStore
	images    adapter.ImageProvider
	provider  adapter.CompletionProvider
	payments  *PaymentsUseCase
	messenger adapter.Messenger
	errs      *ErrorHandler

	numImages int
	imageSize string
	log       *zerolog.Logger
}

func NewImageUseCase(
	sessions repository.SessionStore,
	images adapter.ImageProvider,
	provider adapter.CompletionProvider,
	payments *PaymentsUseCase,
	messenger adapter.Messenger,
	errs *ErrorHandler,
	numImages int,
	imageSize string,
	logger *zerolog.Logger,
) *ImageUseCase {
	if numImages <= 0 {
		numImages = 1
	}
	return &ImageUseCase{
		sessions:  sessions,
		images:    images,
		provider:  provider,
		payments:  payments,
		messenger: messenger,
		errs:      errs,
		numImages: numImages,
		imageSize: imageSize,
		log:       logger,
	}
}

// EstimatePriceCents reports the cost of one request upfront.
func (u *ImageUseCase) EstimatePriceCents(enhanced bool, chatModelName string) (float64, error) {
	img, err := model.GetImageModel(u.imageSize)
	if err != nil {
		return 0, err
	}
	var chat model.ChatModel
	if enhanced {
		if chat, err = model.GetChatModel(chatModelName); err != nil {
			return 0, err
		}
	}
	return model.ImagePriceCents(img, u.numImages, enhanced, chat) * u.payments.PriceAdjustment(), nil
}

// OnGenerate queues one image-generation request. enhanced runs the prompt
// through a chat completion first to enrich the description.
func (u *ImageUseCase) OnGenerate(ctx context.Context, caller Caller, prompt string, enhanced bool) error {
	if u.errs.Suspended() {
		_, _ = u.messenger.Reply(ctx, caller.ChatID, suspendedText, &adapter.SendOptions{ThreadID: caller.ThreadID})
		return domain.ErrBotSuspended
	}
	if prompt == "" {
		_, err := u.messenger.Reply(ctx, caller.ChatID, "Error: Missing prompt", &adapter.SendOptions{ThreadID: caller.ThreadID})
		return err
	}
	sess := u.sessions.Get(imageSessionPrefix + caller.AccountID)
	req := model.QueuedRequest{
		ID:        ulid.Make().String(),
		MessageID: caller.MessageID,
		Model:     u.imageSize,
		Content:   prompt,
	}
	if enhanced {
		req.NumSubAgents = 1
	}
	if sess.Enqueue(req) {
		go u.drain(ctx, caller, sess)
	}
	return nil
}

func (u *ImageUseCase) drain(ctx context.Context, caller Caller, sess *model.Session) {
	for {
		req, ok := sess.Pop()
		if !ok {
			return
		}
		u.processOne(ctx, caller, req)
	}
}

func (u *ImageUseCase) processOne(ctx context.Context, caller Caller, req model.QueuedRequest) {
	enhanced := req.NumSubAgents > 0

	price, err := u.EstimatePriceCents(enhanced, "gpt-4o")
	if err != nil {
		u.log.Error().Err(err).Str("size", req.Model).Msg("image pricing failed, dropping request")
		return
	}
	ok, err := u.payments.HasBalance(ctx, caller, price)
	if err != nil {
		u.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return
	}
	if !ok {
		metrics.PrecheckBlocked("openai", "dalle-2")
		u.notifyLowBalance(ctx, caller)
		return
	}

	prompt := req.Content
	if enhanced {
		improved, err := u.improvePrompt(ctx, prompt)
		if err != nil {
			u.errs.OnError(ctx, caller, err, MaxRetries, nil)
			return
		}
		if improved != "" {
			_, _ = u.messenger.Reply(ctx, caller.ChatID,
				fmt.Sprintf("The following description was added to your prompt: %s", improved),
				&adapter.SendOptions{ThreadID: caller.ThreadID})
			prompt = improved
		}
	}

	metrics.ObserveImageRequest(req.Model)
	urls, err := u.images.GenerateImages(ctx, prompt, u.numImages, u.imageSize)
	if err != nil {
		u.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return
	}
	for _, url := range urls {
		if err := u.messenger.SendPhoto(ctx, caller.ChatID, url, ""); err != nil {
			u.errs.OnError(ctx, caller, err, MaxRetries, nil)
			return
		}
	}

	paid, err := u.payments.Pay(ctx, caller, price)
	if err != nil {
		u.errs.OnError(ctx, caller, err, MaxRetries, nil)
		return
	}
	if !paid {
		u.notifyLowBalance(ctx, caller)
	}
}

func (u *ImageUseCase) improvePrompt(ctx context.Context, prompt string) (string, error) {
	conversation := []model.ChatMessage{{
		Role:    model.RoleUser,
		Content: fmt.Sprintf(improvePromptTemplate, prompt),
	}}
	result, err := u.provider.ChatCompletion(ctx, conversation, "gpt-4o")
	if err != nil {
		return "", err
	}
	if result.Completion == nil {
		return "", domain.ErrNoCompletion
	}
	return result.Completion.Content, nil
}

func (u *ImageUseCase) notifyLowBalance(ctx context.Context, caller Caller) {
	credits := "0.00"
	if bal, err := u.payments.EffectiveBalance(ctx, caller.AccountID); err == nil {
		credits = fmt.Sprintf("%.2f", bal.ONE(true))
	}
	text := replaceBalanceVars(notEnoughBalanceText, credits, u.payments.DepositAddress(caller.AccountID))
	_, _ = u.messenger.Reply(ctx, caller.ChatID, text, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID})
}
