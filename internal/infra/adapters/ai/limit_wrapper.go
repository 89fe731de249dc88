package ai

import (
	"context"

	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.CompletionProvider = (*limitedProvider)(nil)

type limitedProvider struct {
	inner adapter.CompletionProvider
	sem   chan struct{}
}

// NewLimitedProvider caps concurrent provider calls process-wide.
func NewLimitedProvider(inner adapter.CompletionProvider, maxConcurrent int) adapter.CompletionProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedProvider{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedProvider) ChatCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string) (model.CompletionResult, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.ChatCompletion(ctx, conversation, modelName)
}

func (l *limitedProvider) ChatStreamCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string, onDelta func(partial string)) (model.CompletionResult, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.ChatStreamCompletion(ctx, conversation, modelName, onDelta)
}
