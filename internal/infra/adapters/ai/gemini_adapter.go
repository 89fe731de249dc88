package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.CompletionProvider = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client *genai.Client
	maxOut int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) ChatCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string) (model.CompletionResult, error) {
	chat, last, err := g.prepare(ctx, conversation, modelName)
	if err != nil {
		return model.CompletionResult{}, err
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: last})
	if err != nil {
		return model.CompletionResult{}, err
	}
	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return model.CompletionResult{}, domain.ErrNoCompletion
	}
	result := model.CompletionResult{
		Completion: &model.ChatMessage{Role: model.RoleAssistant, Content: text, Model: modelName},
	}
	if resp.UsageMetadata != nil {
		result.Usage = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

func (g *GeminiAdapter) ChatStreamCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string, onDelta func(partial string)) (model.CompletionResult, error) {
	chat, last, err := g.prepare(ctx, conversation, modelName)
	if err != nil {
		return model.CompletionResult{}, err
	}
	var text string
	var usage int
	for resp, err := range chat.SendMessageStream(ctx, genai.Part{Text: last}) {
		if err != nil {
			return model.CompletionResult{}, err
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			text += part.Text
			if onDelta != nil {
				onDelta(text)
			}
		}
		if resp.UsageMetadata != nil {
			usage = int(resp.UsageMetadata.TotalTokenCount)
		}
	}
	if text == "" {
		return model.CompletionResult{}, domain.ErrNoCompletion
	}
	return model.CompletionResult{
		Completion: &model.ChatMessage{Role: model.RoleAssistant, Content: text, Model: modelName},
		Usage:      usage,
	}, nil
}

func (g *GeminiAdapter) prepare(ctx context.Context, conversation []model.ChatMessage, modelName string) (*genai.Chat, string, error) {
	if len(conversation) == 0 {
		return nil, "", errors.New("gemini: no messages")
	}
	last := conversation[len(conversation)-1]
	if last.Role != model.RoleUser {
		return nil, "", errors.New("gemini: last message must be from user")
	}
	chat, err := g.client.Chats.Create(
		ctx,
		modelName,
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
		toGenAIHistory(conversation[:len(conversation)-1]),
	)
	if err != nil {
		return nil, "", err
	}
	return chat, last.Content, nil
}

func toGenAIHistory(msgs []model.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(string(m.Role)) {
		case "assistant", "model":
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
