package adapter

import "context"

// SendOptions mirrors the subset of message extras the bot uses.
type SendOptions struct {
	ParseMode          string // "Markdown" or "" for plain text
	DisableLinkPreview bool
	ThreadID           int // forum topic, 0 when absent
	ReplyTo            int // message id to reply to, 0 when absent
}

// Messenger is the outbound messaging surface. Implementations classify
// transport failures into *TransportError so the error envelope can react.
type Messenger interface {
	Reply(ctx context.Context, chatID int64, text string, opts *SendOptions) (messageID int, err error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *SendOptions) error
	SendTyping(ctx context.Context, chatID int64)
	SendPhoto(ctx context.Context, chatID int64, url, caption string) error
	SendAudio(ctx context.Context, chatID int64, data []byte, filename string) error
}

// TransportError carries the error envelope the transport reports.
type TransportError struct {
	Code        int
	Description string
	RetryAfter  int // seconds, only set on rate-limit errors
	Method      string
}

func (e *TransportError) Error() string { return e.Description }

// IsRateLimit reports whether the transport asked the bot to back off.
func (e *TransportError) IsRateLimit() bool { return e.Code == 429 }

// IsPermission reports errors the bot cannot retry its way out of, like
// missing rights to post media in a group.
func (e *TransportError) IsPermission() bool { return e.Code == 400 || e.Code == 403 }
