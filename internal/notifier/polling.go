package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// CommandHandler is called when a user command is received. A non-empty
// return value is sent back to the chat the command came from.
type CommandHandler func(ctx context.Context, chatID int64, text string) string

// Listen long-polls Telegram for commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) Listen(ctx context.Context, handler CommandHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.dispatch(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) dispatch(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	t.log.Info("received command", zap.Int64("chat_id", chatID), zap.String("text", text))

	reply := handler(ctx, chatID, text)
	if reply == "" {
		return
	}
	if err := t.Send(ctx, chatID, reply, nil); err != nil {
		t.log.Error("send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
