package notify

import (
	"context"

	"mhrs-tracker/services/tracker"
)

type MessageSender interface {
	SendMessage(ctx context.Context, chatId string, text string) error
}

// Telegram sends events as chat messages. With an empty chat id the
// subscriber id of the tracker is the chat.
type Telegram struct {
	sender MessageSender
	chatId string
}

func NewTelegram(sender MessageSender, chatId string) Telegram {
	return Telegram{sender: sender, chatId: chatId}
}

func (t Telegram) Notify(ctx context.Context, event tracker.Event) error {
	chat := t.chatId
	if chat == "" {
		chat = string(event.Tracker.Subscriber)
	}
	return t.sender.SendMessage(ctx, chat, Text(event))
}
