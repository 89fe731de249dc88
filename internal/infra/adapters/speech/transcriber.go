package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*JobClient)(nil)

// JobClient drives an async speech-to-text job API: submit the audio, then
// poll until the job leaves the running state.
type JobClient struct {
	client       *resty.Client
	pollInterval time.Duration
	pollBudget   time.Duration
}

func NewJobClient(baseURL, apiKey string) *JobClient {
	return &JobClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(apiKey).
			SetTimeout(30 * time.Second),
		pollInterval: 2 * time.Second,
		pollBudget:   3 * time.Minute,
	}
}

type jobCreated struct {
	ID string `json:"id"`
}

type jobStatus struct {
	Job struct {
		ID       string  `json:"id"`
		Status   string  `json:"status"` // running | done | rejected
		Duration float64 `json:"duration"`
	} `json:"job"`
}

type jobTranscript struct {
	Results []struct {
		Alternatives []struct {
			Content string `json:"content"`
		} `json:"alternatives"`
	} `json:"results"`
}

func (c *JobClient) Transcribe(ctx context.Context, audio []byte, filename string) (adapter.Transcript, error) {
	var created jobCreated
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("data_file", filename, bytesReader(audio)).
		SetMultipartFormData(map[string]string{
			"config": `{"type":"transcription","transcription_config":{"language":"auto"}}`,
		}).
		SetResult(&created).
		Post("/v2/jobs")
	if err != nil {
		return adapter.Transcript{}, fmt.Errorf("submit transcription: %w", err)
	}
	if resp.IsError() {
		return adapter.Transcript{}, fmt.Errorf("submit transcription: http %d", resp.StatusCode())
	}
	if created.ID == "" {
		return adapter.Transcript{}, fmt.Errorf("submit transcription: no job id")
	}

	status, err := c.waitDone(ctx, created.ID)
	if err != nil {
		return adapter.Transcript{}, err
	}
	text, err := c.fetchTranscript(ctx, created.ID)
	if err != nil {
		return adapter.Transcript{}, err
	}
	return adapter.Transcript{Text: text, DurationSeconds: status.Job.Duration}, nil
}

func (c *JobClient) waitDone(ctx context.Context, jobID string) (jobStatus, error) {
	deadline := time.Now().Add(c.pollBudget)
	for {
		var status jobStatus
		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&status).
			Get("/v2/jobs/" + jobID)
		if err != nil {
			return jobStatus{}, fmt.Errorf("poll transcription: %w", err)
		}
		if resp.IsError() {
			return jobStatus{}, fmt.Errorf("poll transcription: http %d", resp.StatusCode())
		}
		switch status.Job.Status {
		case "done":
			return status, nil
		case "rejected":
			return jobStatus{}, fmt.Errorf("transcription job %s rejected", jobID)
		}
		if time.Now().After(deadline) {
			return jobStatus{}, fmt.Errorf("transcription job %s timed out", jobID)
		}
		select {
		case <-ctx.Done():
			return jobStatus{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *JobClient) fetchTranscript(ctx context.Context, jobID string) (string, error) {
	var transcript jobTranscript
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("format", "json-v2").
		SetResult(&transcript).
		Get("/v2/jobs/" + jobID + "/transcript")
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch transcript: http %d", resp.StatusCode())
	}
	var text string
	for _, r := range transcript.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if text != "" {
			text += " "
		}
		text += r.Alternatives[0].Content
	}
	return text, nil
}
