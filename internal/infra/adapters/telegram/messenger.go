package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.Messenger = (*Messenger)(nil)

// Messenger is the outbound half of the transport. Every failure is run
// through classify so the error envelope can distinguish rate limits and
// permission problems from the rest.
type Messenger struct {
	bot *tgbotapi.BotAPI
}

func NewMessenger(bot *tgbotapi.BotAPI) *Messenger {
	return &Messenger{bot: bot}
}

func (m *Messenger) Reply(ctx context.Context, chatID int64, text string, opts *adapter.SendOptions) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if opts != nil {
		msg.ParseMode = opts.ParseMode
		msg.DisableWebPagePreview = opts.DisableLinkPreview
		switch {
		case opts.ReplyTo != 0:
			msg.ReplyToMessageID = opts.ReplyTo
		case opts.ThreadID != 0:
			// forum topics: replying into the thread's root keeps the
			// message inside the topic
			msg.ReplyToMessageID = opts.ThreadID
		}
	}
	sent, err := m.bot.Send(msg)
	if err != nil {
		return 0, classify(err, "sendMessage")
	}
	return sent.MessageID, nil
}

func (m *Messenger) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *adapter.SendOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if opts != nil {
		edit.ParseMode = opts.ParseMode
	}
	if _, err := m.bot.Send(edit); err != nil {
		return classify(err, "editMessageText")
	}
	return nil
}

func (m *Messenger) SendTyping(ctx context.Context, chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = m.bot.Request(action)
}

func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, url, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = caption
	if _, err := m.bot.Send(photo); err != nil {
		return classify(err, "sendPhoto")
	}
	return nil
}

func (m *Messenger) SendAudio(ctx context.Context, chatID int64, data []byte, filename string) error {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	if _, err := m.bot.Send(audio); err != nil {
		return classify(err, "sendAudio")
	}
	return nil
}
