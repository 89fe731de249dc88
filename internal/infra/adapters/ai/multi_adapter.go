package ai

import (
	"context"
	"strings"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.CompletionProvider = (*MultiAdapter)(nil)

// MultiAdapter routes completions to a provider by model name prefix.
type MultiAdapter struct {
	defaultProvider string // "openai" or "gemini"
	byProvider      map[string]adapter.CompletionProvider
}

func NewMultiAdapter(defaultProvider string, byProvider map[string]adapter.CompletionProvider) *MultiAdapter {
	return &MultiAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
	}
}

func (m *MultiAdapter) resolveProvider(modelName string) string {
	l := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiAdapter) pick(modelName string) adapter.CompletionProvider {
	if a := m.byProvider[m.resolveProvider(modelName)]; a != nil {
		return a
	}
	// last resort: first available
	for _, a := range m.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

func (m *MultiAdapter) ChatCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string) (model.CompletionResult, error) {
	a := m.pick(modelName)
	if a == nil {
		return model.CompletionResult{}, domain.ErrUnknownModel
	}
	return a.ChatCompletion(ctx, conversation, modelName)
}

func (m *MultiAdapter) ChatStreamCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string, onDelta func(partial string)) (model.CompletionResult, error) {
	a := m.pick(modelName)
	if a == nil {
		return model.CompletionResult{}, domain.ErrUnknownModel
	}
	return a.ChatStreamCompletion(ctx, conversation, modelName, onDelta)
}
