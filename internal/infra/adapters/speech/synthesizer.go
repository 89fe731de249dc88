package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.Synthesizer = (*TTSClient)(nil)

// TTSClient calls a text-to-speech HTTP endpoint and returns OGG/Opus bytes.
type TTSClient struct {
	client *resty.Client
}

func NewTTSClient(baseURL, apiKey string) *TTSClient {
	return &TTSClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetQueryParam("key", apiKey).
			SetTimeout(30 * time.Second),
	}
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"` // base64
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *TTSClient) Synthesize(ctx context.Context, text string, params adapter.VoiceParams) ([]byte, error) {
	body := map[string]interface{}{
		"input": map[string]string{"text": text},
		"voice": map[string]string{
			"languageCode": params.LanguageCode,
			"name":         params.VoiceName,
		},
		"audioConfig": map[string]string{"audioEncoding": "OGG_OPUS"},
	}
	if params.SSMLGender != "" {
		body["voice"].(map[string]string)["ssmlGender"] = params.SSMLGender
	}

	var out synthesizeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/v1/text:synthesize")
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("synthesize: http %d", resp.StatusCode())
	}
	if out.Error != nil {
		return nil, fmt.Errorf("synthesize: %s", out.Error.Message)
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("synthesize: decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesize: empty audio")
	}
	return audio, nil
}

// bytesReader is shared by the speech clients for multipart uploads.
func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }
