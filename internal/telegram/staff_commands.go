package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/bquezada-bit/Silvacentinel/internal/analysis"
	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const helpText = "Comandos disponibles:\n/resumen - totales por estado\n/pendientes - últimas denuncias pendientes"

// HandleStaffCommand answers the read-only commands of the staff chat.
// Commands from any other chat are ignored.
func HandleStaffCommand(ctx context.Context, update *tgbotapi.Update, s storage.Storage, bot Sender, staffChatID int64, log *zap.Logger) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	if update.Message.Chat.ID != staffChatID {
		return
	}

	var responseText string
	switch update.Message.Command() {
	case "resumen":
		c, err := analysis.PublicCounters(ctx, s)
		if err != nil {
			log.Error("staff summary failed", zap.Error(err))
			responseText = "No se pudo calcular el resumen."
			break
		}
		responseText = fmt.Sprintf("Denuncias: %d\nPendientes: %d\nEn proceso: %d\nResueltas: %d\nRechazadas: %d",
			c.Total, c.Pending, c.InProgress, c.Resolved, c.Rejected)
	case "pendientes":
		list, err := s.ListComplaints(ctx, storage.ComplaintFilter{
			Status: models.StatusPending,
			Limit:  config.PublicRecentLimit,
		})
		if err != nil {
			log.Error("staff pending list failed", zap.Error(err))
			responseText = "No se pudo obtener la lista."
			break
		}
		if len(list) == 0 {
			responseText = "No hay denuncias pendientes."
			break
		}
		var b strings.Builder
		b.WriteString("Pendientes:")
		for _, c := range list {
			fmt.Fprintf(&b, "\n#%d %s (%s)", c.ID, c.Title, c.Priority.Label())
		}
		responseText = b.String()
	default:
		responseText = helpText
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, responseText)
	if _, err := bot.Send(msg); err != nil {
		log.Error("failed to answer staff command", zap.Error(err))
	}
}
