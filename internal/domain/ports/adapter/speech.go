package adapter

import "context"

// Transcript is the result of one speech-to-text job.
type Transcript struct {
	Text            string
	DurationSeconds float64
}

// Transcriber turns voice notes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (Transcript, error)
}

// VoiceParams selects a synthesis voice.
type VoiceParams struct {
	LanguageCode string
	VoiceName    string
	SSMLGender   string
}

// Synthesizer turns text into spoken audio (OGG/Opus bytes).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, params VoiceParams) ([]byte, error)
}
