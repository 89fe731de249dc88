package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.Tokenizer = (*TiktokenCounter)(nil)

// TiktokenCounter counts tokens locally for pricing on paths where the
// provider does not report usage. Encoders are cached per model; unknown
// models fall back to cl100k_base.
type TiktokenCounter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{encoders: make(map[string]*tiktoken.Tiktoken)}
}

func (t *TiktokenCounter) CountTokens(modelName, text string) int {
	if text == "" {
		return 0
	}
	enc := t.encoder(modelName)
	if enc == nil {
		// crude fallback: ~4 chars per token
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *TiktokenCounter) encoder(modelName string) *tiktoken.Tiktoken {
	t.mu.Lock()
	defer t.mu.Unlock()
	if enc, ok := t.encoders[modelName]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return nil
		}
	}
	t.encoders[modelName] = enc
	return enc
}
