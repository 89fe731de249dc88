package adapter

import (
	"context"

	"telegram-one-bot/internal/domain/model"
)

// CompletionProvider is the port for the opaque remote completion services.
// Both calls take the full conversation so far. Results carry the provider's
// own usage/price figures where it reports them; the pricing layer treats
// price as authoritative from whichever layer last touched it.
type CompletionProvider interface {
	// ChatCompletion performs a single-shot completion.
	ChatCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string) (model.CompletionResult, error)

	// ChatStreamCompletion streams the completion token by token. onDelta is
	// invoked with the accumulated text so far; the caller owns message
	// editing and platform length ceilings.
	ChatStreamCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string, onDelta func(partial string)) (model.CompletionResult, error)
}

// ImageProvider generates images from a prompt and returns their URLs.
type ImageProvider interface {
	GenerateImages(ctx context.Context, prompt string, numImages int, size string) ([]string, error)
}

// Tokenizer counts tokens for pricing on paths where the provider does not
// report usage.
type Tokenizer interface {
	CountTokens(modelName, text string) int
}
