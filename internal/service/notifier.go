package service

import (
	"vacation-sync/pkg/telegram"
)

// TelegramNotifier sends messages to one configured chat.
type TelegramNotifier struct {
	client *telegram.Client
	chatID int64
}

func NewTelegramNotifier(client *telegram.Client, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{client: client, chatID: chatID}
}

func (n *TelegramNotifier) Send(text string) error {
	return n.client.SendText(n.chatID, text)
}
