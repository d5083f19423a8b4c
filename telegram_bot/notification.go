package telegram_bot

import (
	"context"

	"vpnbot/menus"
	"vpnbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Notifier отправляет пользователям уведомления о подписке
type Notifier struct {
	bot sender
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

func NewNotifier(bot sender) *Notifier {
	return &Notifier{bot: bot}
}

// NotifyExpired сообщает владельцу об окончании подписки
func (n *Notifier) NotifyExpired(ctx context.Context, user storage.User, sub storage.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(menus.ExpiredNotice(sub).Message(user.TelegramID)); err != nil {
		log.Printf("NOTIFICATION: Ошибка отправки уведомления TelegramID=%d, подписка %s: %v", user.TelegramID, sub.ID, err)
		return err
	}
	log.Printf("NOTIFICATION: Уведомление об окончании подписки %s отправлено TelegramID=%d", sub.ID, user.TelegramID)
	return nil
}

// LogNotifier пишет уведомления в лог, когда бот не запущен
type LogNotifier struct{}

func (LogNotifier) NotifyExpired(_ context.Context, user storage.User, sub storage.Subscription) error {
	log.Printf("NOTIFICATION: Подписка %s пользователя TelegramID=%d истекла", sub.ID, user.TelegramID)
	return nil
}
