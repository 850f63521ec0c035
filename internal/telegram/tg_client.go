package telegram

import (
	"context"
	"fmt"
	"html"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StaffNotifier posts complaint events to the staff chat. Messages are
// queued and delivered by a single write pump so that a slow Telegram API
// never holds up a request.
type StaffNotifier struct {
	bot    Sender
	chatID int64
	send   chan tgbotapi.Chattable
	log    *zap.Logger
}

func NewStaffNotifier(bot Sender, chatID int64, log *zap.Logger) *StaffNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &StaffNotifier{
		bot:    bot,
		chatID: chatID,
		send:   make(chan tgbotapi.Chattable, 32),
		log:    log,
	}
}

// Run delivers queued messages until ctx is done.
func (n *StaffNotifier) Run(ctx context.Context) {
	defer n.log.Info("staff notifier stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.send:
			if _, err := n.bot.Send(msg); err != nil {
				n.log.Error("failed to send staff notification", zap.Error(err))
			}
		}
	}
}

func (n *StaffNotifier) ComplaintCreated(ctx context.Context, c *models.Complaint, owner *models.Account) {
	text := fmt.Sprintf("🌲 <b>Nueva denuncia #%d</b>\n%s\nCategoría: %s\nPrioridad: %s\nPor: %s",
		c.ID,
		html.EscapeString(c.Title),
		html.EscapeString(c.CategoryName()),
		c.Priority.Label(),
		html.EscapeString(username(owner)),
	)
	n.enqueue(text)
}

func (n *StaffNotifier) StatusChanged(ctx context.Context, c *models.Complaint, from, to models.Status, actor *models.Account) {
	text := fmt.Sprintf("🔄 Denuncia #%d: %s → <b>%s</b>\n%s\nPor: %s",
		c.ID,
		from.Label(),
		to.Label(),
		html.EscapeString(c.Title),
		html.EscapeString(username(actor)),
	)
	n.enqueue(text)
}

func (n *StaffNotifier) enqueue(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	select {
	case n.send <- msg:
	default:
		n.log.Warn("staff notification queue full, dropping message")
	}
}

func username(a *models.Account) string {
	if a == nil {
		return "desconocido"
	}
	return a.Username
}
