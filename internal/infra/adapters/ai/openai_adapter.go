package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.CompletionProvider = (*OpenAIAdapter)(nil)
	_ adapter.ImageProvider      = (*OpenAIAdapter)(nil)
)

// OpenAIAdapter implements completions and image generation on the OpenAI API.
type OpenAIAdapter struct {
	client      openai.Client
	maxTokens   int
	temperature float64
}

func NewOpenAIAdapter(apiKey string, maxTokens int, temperature float64) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	return &OpenAIAdapter{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

func (o *OpenAIAdapter) params(conversation []model.ChatMessage, modelName string) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(conversation))
	for _, m := range conversation {
		switch m.Role {
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelName),
		Messages: messages,
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}
	return params
}

func (o *OpenAIAdapter) ChatCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string) (model.CompletionResult, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(conversation, modelName))
	if err != nil {
		return model.CompletionResult{}, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return model.CompletionResult{}, domain.ErrNoCompletion
	}
	return model.CompletionResult{
		Completion: &model.ChatMessage{
			Role:    model.RoleAssistant,
			Content: resp.Choices[0].Message.Content,
			Model:   modelName,
		},
		Usage: int(resp.Usage.TotalTokens),
	}, nil
}

func (o *OpenAIAdapter) ChatStreamCompletion(ctx context.Context, conversation []model.ChatMessage, modelName string, onDelta func(partial string)) (model.CompletionResult, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(conversation, modelName))
	defer stream.Close()

	var acc openai.ChatCompletionAccumulator
	var text string
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			text += delta
			if onDelta != nil {
				onDelta(text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return model.CompletionResult{}, err
	}
	if text == "" {
		return model.CompletionResult{}, domain.ErrNoCompletion
	}
	return model.CompletionResult{
		Completion: &model.ChatMessage{
			Role:    model.RoleAssistant,
			Content: text,
			Model:   modelName,
		},
		Usage: int(acc.Usage.TotalTokens),
	}, nil
}

func (o *OpenAIAdapter) GenerateImages(ctx context.Context, prompt string, numImages int, size string) ([]string, error) {
	if numImages <= 0 {
		numImages = 1
	}
	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModelDallE2,
		N:      openai.Int(int64(numImages)),
		Size:   openai.ImageGenerateParamsSize(size),
	})
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	if len(urls) == 0 {
		return nil, domain.ErrNoCompletion
	}
	return urls, nil
}
