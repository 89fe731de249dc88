// File: internal/application/bot_facade.go
package application

import (
	"context"
	"strings"

	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/infra/metrics"
	"telegram-one-bot/internal/usecase"
)

// VoiceNote is a downloaded voice message.
type VoiceNote struct {
	Data            []byte
	Filename        string
	DurationSeconds float64
}

// IncomingMessage is the transport-independent envelope the facade dispatches
// on. The Telegram adapter fills it from an update; tests build it directly.
type IncomingMessage struct {
	ChatID    int64
	UserID    int64
	Username  string
	ChatType  string // "private", "group", "supergroup"
	MessageID int
	ThreadID  int
	Text      string
	RepliedTo string // text of the replied-to message, if any
	Voice     *VoiceNote
}

// IsGroup reports whether the message came from a group chat.
func (m IncomingMessage) IsGroup() bool {
	return m.ChatType == "group" || m.ChatType == "supergroup"
}

// Command returns the leading slash command (lowercased, bot mention and
// arguments stripped) or "" when the text is not a command.
func (m IncomingMessage) Command() string {
	if !strings.HasPrefix(m.Text, "/") {
		return ""
	}
	cmd := m.Text[1:]
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

// Mention returns the @botname suffix on a command, "" when absent.
func (m IncomingMessage) Mention() string {
	if !strings.HasPrefix(m.Text, "/") {
		return ""
	}
	cmd := m.Text[1:]
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		return cmd[i+1:]
	}
	return ""
}

// Args returns everything after the command.
func (m IncomingMessage) Args() string {
	if i := strings.IndexByte(m.Text, ' '); i >= 0 {
		return strings.TrimSpace(m.Text[i+1:])
	}
	return ""
}

// BotFacade composes the feature use cases into one dispatch surface. The
// Telegram adapter forwards every update here and stays free of feature logic.
type BotFacade struct {
	Chat       *usecase.ChatUseCase
	Image      *usecase.ImageUseCase
	Registry   *usecase.RegistryUseCase
	TTS        *usecase.TTSUseCase
	Transcribe *usecase.TranscribeUseCase

	username string // our own bot mention, e.g. "one_bot"
}

func NewBotFacade(
	chat *usecase.ChatUseCase,
	image *usecase.ImageUseCase,
	registry *usecase.RegistryUseCase,
	tts *usecase.TTSUseCase,
	transcribe *usecase.TranscribeUseCase,
	username string,
) *BotFacade {
	return &BotFacade{
		Chat:       chat,
		Image:      image,
		Registry:   registry,
		TTS:        tts,
		Transcribe: transcribe,
		username:   strings.TrimPrefix(username, "@"),
	}
}

// addressedElsewhere reports a command that mentions a different bot, which
// happens in groups shared with other bots. Unset username accepts any mention.
func (b *BotFacade) addressedElsewhere(msg IncomingMessage) bool {
	if b.username == "" {
		return false
	}
	m := msg.Mention()
	return m != "" && !strings.EqualFold(m, b.username)
}

// caller builds the billing identity for a message. Group chats bill the
// group account; private chats bill the user.
func (b *BotFacade) caller(msg IncomingMessage) usecase.Caller {
	return usecase.Caller{
		AccountID: model.AccountID(msg.ChatID, msg.UserID, msg.ChatType),
		ChatID:    msg.ChatID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		IsGroup:   msg.IsGroup(),
		MessageID: msg.MessageID,
		ThreadID:  msg.ThreadID,
	}
}

// Supports reports whether Dispatch would act on the message at all. Group
// chats stay quiet for plain text that carries no chat prefix.
func (b *BotFacade) Supports(msg IncomingMessage) bool {
	if msg.Voice != nil {
		return true
	}
	if b.addressedElsewhere(msg) {
		return false
	}
	if cmd := msg.Command(); cmd != "" {
		return b.knownCommand(cmd)
	}
	if b.Chat.HasPrefix(msg.Text) != "" {
		return true
	}
	// bare text in a private chat goes to the default model
	return !msg.IsGroup() && strings.TrimSpace(msg.Text) != ""
}

func (b *BotFacade) knownCommand(cmd string) bool {
	switch cmd {
	case "start", "help", "ask", "new", "last", "end", "balance",
		"image", "imagen", "check", "visit", "renew", "cert", "nft":
		return true
	}
	if _, err := model.GetChatModel(cmd); err == nil {
		return true
	}
	return usecase.IsVoiceCommand(cmd)
}

// Dispatch routes one message to its feature module.
func (b *BotFacade) Dispatch(ctx context.Context, msg IncomingMessage) error {
	caller := b.caller(msg)

	if msg.Voice != nil {
		metrics.IncTelegramCommand("voice")
		return b.Transcribe.OnVoice(ctx, caller, msg.Voice.Data, msg.Voice.Filename, msg.Voice.DurationSeconds)
	}
	if b.addressedElsewhere(msg) {
		return nil
	}

	cmd := msg.Command()
	if cmd != "" {
		metrics.IncTelegramCommand(cmd)
	}
	switch cmd {
	case "start", "help":
		return b.Chat.OnNew(ctx, caller, "", "")
	case "ask":
		return b.Chat.OnAsk(ctx, caller, msg.Args(), msg.RepliedTo)
	case "new":
		return b.Chat.OnNew(ctx, caller, msg.Args(), msg.RepliedTo)
	case "last":
		return b.Chat.OnLast(ctx, caller)
	case "end":
		return b.Chat.OnEnd(ctx, caller)
	case "balance":
		return b.Chat.OnBalance(ctx, caller)
	case "image":
		return b.Image.OnGenerate(ctx, caller, msg.Args(), false)
	case "imagen":
		return b.Image.OnGenerate(ctx, caller, msg.Args(), true)
	case "check":
		return b.Registry.OnCheck(ctx, caller, msg.Args())
	case "visit":
		return b.Registry.OnVisit(ctx, caller, msg.Args())
	case "renew":
		return b.Registry.OnRenew(ctx, caller, msg.Args())
	case "cert":
		return b.Registry.OnCert(ctx, caller, msg.Args())
	case "nft":
		return b.Registry.OnNFT(ctx, caller, msg.Args())
	}
	if cmd != "" {
		// /gpt-4 style commands address a model directly
		if _, err := model.GetChatModel(cmd); err == nil {
			return b.Chat.OnAskModel(ctx, caller, cmd, msg.Args(), msg.RepliedTo)
		}
		if usecase.IsVoiceCommand(cmd) {
			return b.TTS.OnSpeak(ctx, caller, cmd, msg.RepliedTo)
		}
		return nil
	}

	// bare prefixes like "gpt what is..." and plain private-chat text
	if prefix := b.Chat.HasPrefix(msg.Text); prefix != "" {
		metrics.IncTelegramCommand("prefix")
		return b.Chat.OnAsk(ctx, caller, msg.Text, msg.RepliedTo)
	}
	if !msg.IsGroup() && strings.TrimSpace(msg.Text) != "" {
		return b.Chat.OnAsk(ctx, caller, msg.Text, msg.RepliedTo)
	}
	return nil
}
