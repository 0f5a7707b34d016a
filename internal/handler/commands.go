package handler

import (
	"context"
	"time"
	"vacation-sync/internal/models"
	"vacation-sync/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const syncTimeout = 30 * time.Minute

const helpText = `📋 Comandos disponíveis:

🔄 Sincronização:
/sync - Sincronizar a planilha (ignora se não houve alteração)
/forcesync - Sincronizar mesmo sem alteração
/status - Última sincronização

🏖️ Férias:
/hoje - Saídas e retornos de hoje
/ferias - Quem está de férias hoje
/pendentes - Férias com acessos pendentes
/resumo - Totais por sistema e saídas da semana

🛠 Utilitários:
/start - Iniciar o bot
/help - Mostrar esta mensagem`

func (h *Handler) handleCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start", "help":
		h.send(chatID, helpText)
	case "sync":
		h.runSync(chatID, false)
	case "forcesync":
		h.runSync(chatID, true)
	case "status":
		h.sendReport(chatID, "status", h.reports.StatusReport)
	case "hoje":
		h.sendReport(chatID, "hoje", h.reports.TodayReport)
	case "ferias":
		h.sendReport(chatID, "ferias", h.reports.OnVacationReport)
	case "pendentes":
		h.sendReport(chatID, "pendentes", h.reports.PendingReport)
	case "resumo":
		h.sendReport(chatID, "resumo", h.reports.SummaryReport)
	default:
		h.send(chatID, "❌ Comando desconhecido. Use /help para ver a lista de comandos.")
	}
}

func (h *Handler) runSync(chatID int64, force bool) {
	h.send(chatID, "⏳ Sincronizando a planilha...")

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	res := h.syncer.Run(ctx, service.RunOptions{Force: force, Trigger: models.TriggerTelegram})
	h.send(chatID, service.FormatSyncResult(res))
}

func (h *Handler) sendReport(chatID int64, command string, build func() (string, error)) {
	text, err := build()
	if err != nil {
		logrus.WithError(err).WithField("command", command).Error("Failed to build report")
		h.send(chatID, "❌ Erro ao consultar os dados: "+err.Error())
		return
	}
	h.send(chatID, text)
}
