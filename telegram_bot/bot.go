package telegram_bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// UpdateHandler обработчик обновлений Telegram
type UpdateHandler interface {
	HandleMessage(ctx context.Context, message *tgbotapi.Message)
	HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery)
}

// Bot представляет экземпляр Telegram бота
type Bot struct {
	API *tgbotapi.BotAPI
}

// NewBot создает новый экземпляр бота
func NewBot(token string) (*Bot, error) {
	log.Printf("TELEGRAM_BOT: Инициализация Telegram бота")

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	api.Debug = false
	log.Printf("TELEGRAM_BOT: Авторизован как @%s", api.Self.UserName)

	return &Bot{API: api}, nil
}

// Run читает обновления long polling до отмены контекста
func (b *Bot) Run(ctx context.Context, handler UpdateHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)
	log.Printf("TELEGRAM_BOT: Запущен канал обновлений Telegram")

	for {
		select {
		case <-ctx.Done():
			log.Printf("TELEGRAM_BOT: Остановка обработки обновлений")
			b.API.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			dispatch(ctx, handler, update)
		}
	}
}

func dispatch(ctx context.Context, handler UpdateHandler, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("TELEGRAM_BOT: Паника при обработке обновления %d: %v", update.UpdateID, r)
		}
	}()
	route(ctx, handler, update)
}

// route передает обновление обработчику; обновления без отправителя пропускаются
func route(ctx context.Context, handler UpdateHandler, update tgbotapi.Update) {
	if update.Message != nil && update.Message.From != nil {
		log.Printf("TELEGRAM_BOT: Получено сообщение от пользователя TelegramID=%d, текст='%s'", update.Message.From.ID, update.Message.Text)
		handler.HandleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		log.Printf("TELEGRAM_BOT: Получен callback от пользователя TelegramID=%d, данные='%s'", update.CallbackQuery.From.ID, update.CallbackQuery.Data)
		handler.HandleCallback(ctx, update.CallbackQuery)
	}
}

// Commands команды бокового меню
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "🚀 Запустить бота и открыть главное меню"},
		{Command: "plans", Description: "💳 Тарифы"},
		{Command: "subscribe", Description: "📝 Оформить подписку"},
		{Command: "status", Description: "📊 Состояние подписки"},
		{Command: "config", Description: "🔐 Ссылка для подключения"},
		{Command: "support", Description: "🆘 Поддержка"},
		{Command: "help", Description: "ℹ️ Список команд"},
	}
}

// SetBotCommands устанавливает команды бота в боковом меню
func (b *Bot) SetBotCommands() error {
	log.Printf("TELEGRAM_BOT: Настройка команд бота")

	config := tgbotapi.NewSetMyCommands(Commands()...)
	if _, err := b.API.Request(config); err != nil {
		log.Printf("TELEGRAM_BOT: Ошибка настройки команд: %v", err)
		return err
	}

	log.Printf("TELEGRAM_BOT: Команды бота успешно настроены")
	return nil
}
