package handler

import (
	"context"
	"vacation-sync/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendText(chatID int64, text string) error
}

type Syncer interface {
	Run(ctx context.Context, opts service.RunOptions) service.Result
}

// Reporter builds the texts behind the query commands.
type Reporter interface {
	TodayReport() (string, error)
	OnVacationReport() (string, error)
	PendingReport() (string, error)
	SummaryReport() (string, error)
	StatusReport() (string, error)
}

type Handler struct {
	client  Sender
	syncer  Syncer
	reports Reporter
	// allowedChat restricts commands to the HR chat; 0 accepts any chat.
	allowedChat int64
}

func NewHandler(client Sender, syncer Syncer, reports Reporter, allowedChat int64) *Handler {
	return &Handler{
		client:      client,
		syncer:      syncer,
		reports:     reports,
		allowedChat: allowedChat,
	}
}

// HandleUpdates blocks until updates is closed.
func (h *Handler) HandleUpdates(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			continue
		}

		h.handleMessage(update.Message)
	}
}

func (h *Handler) handleMessage(message *tgbotapi.Message) {
	user := ""
	if message.From != nil {
		user = message.From.UserName
	}
	logrus.Infof("[%s] %s", user, message.Text)

	if !message.IsCommand() {
		return
	}

	if h.allowedChat != 0 && message.Chat.ID != h.allowedChat {
		logrus.WithField("chat_id", message.Chat.ID).Warn("Command from unauthorized chat")
		h.send(message.Chat.ID, "⛔ Este bot atende apenas o chat do RH.")
		return
	}

	h.handleCommand(message)
}

func (h *Handler) send(chatID int64, text string) {
	if err := h.client.SendText(chatID, text); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}
