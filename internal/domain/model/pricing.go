package model

import "telegram-one-bot/internal/domain"

// ChatModel describes a chat completion model and its USD price per 1k tokens.
type ChatModel struct {
	Name            string
	InputPrice      float64 // USD per 1k prompt tokens
	OutputPrice     float64 // USD per 1k completion tokens
	MaxContextSize  int
	ChargeableBy    string // "token"
	Provider        string // "openai" | "gemini"
	MinBalanceCents float64 // minimum effective balance to accept a request
}

// ImageModel describes an image generation model priced per image.
type ImageModel struct {
	Name       string
	Size       string
	PriceCents float64
}

var chatModels = map[string]ChatModel{
	"gpt-4": {
		Name: "gpt-4", InputPrice: 0.03, OutputPrice: 0.06,
		MaxContextSize: 8192, ChargeableBy: "token", Provider: "openai", MinBalanceCents: 8,
	},
	"gpt-4-32k": {
		Name: "gpt-4-32k", InputPrice: 0.06, OutputPrice: 0.12,
		MaxContextSize: 32768, ChargeableBy: "token", Provider: "openai", MinBalanceCents: 16,
	},
	"gpt-3.5-turbo": {
		Name: "gpt-3.5-turbo", InputPrice: 0.0015, OutputPrice: 0.002,
		MaxContextSize: 4096, ChargeableBy: "token", Provider: "openai", MinBalanceCents: 1,
	},
	"gpt-4o": {
		Name: "gpt-4o", InputPrice: 0.005, OutputPrice: 0.015,
		MaxContextSize: 128000, ChargeableBy: "token", Provider: "openai", MinBalanceCents: 4,
	},
	"gemini-1.5-pro": {
		Name: "gemini-1.5-pro", InputPrice: 0.0035, OutputPrice: 0.0105,
		MaxContextSize: 128000, ChargeableBy: "token", Provider: "gemini", MinBalanceCents: 4,
	},
}

var imageModels = map[string]ImageModel{
	"256x256":   {Name: "dalle-2", Size: "256x256", PriceCents: 1.6},
	"512x512":   {Name: "dalle-2", Size: "512x512", PriceCents: 1.8},
	"1024x1024": {Name: "dalle-2", Size: "1024x1024", PriceCents: 2.0},
}

// modelAliases maps command-safe shorthand (no hyphens allowed in bot
// commands) to canonical model names.
var modelAliases = map[string]string{
	"gpt":    "gpt-4",
	"gpt4":   "gpt-4",
	"gpt4o":  "gpt-4o",
	"chat":   "gpt-3.5-turbo",
	"gemini": "gemini-1.5-pro",
}

// GetChatModel looks up pricing for a chat model name or alias.
func GetChatModel(name string) (ChatModel, error) {
	if canonical, ok := modelAliases[name]; ok {
		name = canonical
	}
	m, ok := chatModels[name]
	if !ok {
		return ChatModel{}, domain.ErrUnknownModel
	}
	return m, nil
}

// ChatModelNames lists the known chat models.
func ChatModelNames() []string {
	out := make([]string, 0, len(chatModels))
	for name := range chatModels {
		out = append(out, name)
	}
	return out
}

// GetImageModel looks up image pricing by requested size.
func GetImageModel(size string) (ImageModel, error) {
	m, ok := imageModels[size]
	if !ok {
		return ImageModel{}, domain.ErrUnknownModel
	}
	return m, nil
}

// ChatPriceCents computes the cost of one completion in cents.
func ChatPriceCents(m ChatModel, promptTokens, completionTokens int) float64 {
	usd := m.InputPrice*float64(promptTokens) + m.OutputPrice*float64(completionTokens)
	return usd * 100 / 1000
}

// enhancedPromptTokens is the budget the prompt-improvement pass is assumed to
// spend each way (about 100 words).
const enhancedPromptTokens = 250

// ImagePriceCents computes the cost of an image request. Enhanced requests add
// the chat completion used to improve the prompt.
func ImagePriceCents(m ImageModel, numImages int, enhanced bool, chat ChatModel) float64 {
	if numImages <= 0 {
		numImages = 1
	}
	price := m.PriceCents * float64(numImages)
	if enhanced {
		price += ChatPriceCents(chat, enhancedPromptTokens, enhancedPromptTokens)
	}
	return price
}
