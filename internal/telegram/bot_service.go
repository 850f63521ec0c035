// Package telegram connects SilvaSentinel to a staff Telegram chat: new
// complaints and status changes are announced there, and staff can ask the
// bot for a quick summary.
package telegram

import (
	"context"
	"fmt"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotService owns the bot connection, the notifier and the command loop.
type BotService struct {
	BotAPI      *tgbotapi.BotAPI
	Storage     storage.Storage
	Notifier    *StaffNotifier
	StaffChatID int64
	Log         *zap.Logger
}

// NewBotService authorizes the bot with the configured token.
func NewBotService(cfg config.TelegramConfig, s storage.Storage, log *zap.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	bot.Debug = false
	log.Info("telegram bot authorized", zap.String("account", bot.Self.UserName))

	return &BotService{
		BotAPI:      bot,
		Storage:     s,
		Notifier:    NewStaffNotifier(bot, cfg.StaffChatID, log),
		StaffChatID: cfg.StaffChatID,
		Log:         log,
	}, nil
}

// Run starts the notifier pump and answers staff commands until ctx is done.
func (s *BotService) Run(ctx context.Context) {
	go s.Notifier.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	defer s.BotAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			HandleStaffCommand(ctx, &update, s.Storage, s.BotAPI, s.StaffChatID, s.Log)
		}
	}
}
