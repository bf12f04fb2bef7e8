package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram delivers redemption events as Telegram messages. The per-tenant
// notification target is a chat id in decimal form.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram creates a Telegram notifier from a bot token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Notify(ctx context.Context, target string, event RedemptionEvent) error {
	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing chat id %q: %w", target, err)
	}

	text := fmt.Sprintf("🔑 Key redeemed\nUser: %s\nProduct: %s\nKey: %s",
		event.RedeemerID, event.ProductID, event.MaskedKey)
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}
