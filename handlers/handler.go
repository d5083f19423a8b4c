package handlers

import (
	"context"
	"slices"
	"time"

	"vpnbot/menus"
	"vpnbot/storage"
	"vpnbot/xui"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Sender часть tgbotapi.BotAPI, которой пользуются обработчики
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Subscriptions операции с подписками
type Subscriptions interface {
	Subscribe(ctx context.Context, userID, planID string) (*storage.Subscription, error)
	Activate(ctx context.Context, subscriptionID string) (*storage.Subscription, error)
	Status(ctx context.Context, userID string) (*storage.Subscription, error)
}

// Panel операции панели для админских команд
type Panel interface {
	Settings() xui.Settings
	Probe(ctx context.Context, target string) error
	TestConnection(ctx context.Context, override xui.Settings) error
	GetInbounds(ctx context.Context) ([]xui.Inbound, error)
}

// Config параметры, которые нужны обработчикам
type Config struct {
	AdminIDs      []int64
	ConfigBaseURL string
	SupportLink   string
}

// Handler обрабатывает сообщения и callback-запросы бота
type Handler struct {
	bot   Sender
	store storage.Store
	subs  Subscriptions
	panel Panel
	cfg   Config
	now   func() time.Time
}

func New(bot Sender, store storage.Store, subs Subscriptions, panel Panel, cfg Config) *Handler {
	return &Handler{
		bot:   bot,
		store: store,
		subs:  subs,
		panel: panel,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (h *Handler) isAdmin(telegramID int64) bool {
	return slices.Contains(h.cfg.AdminIDs, telegramID)
}

func (h *Handler) send(chatID int64, menu menus.Menu) {
	if _, err := h.bot.Send(menu.Message(chatID)); err != nil {
		log.Printf("HANDLERS: Ошибка отправки сообщения в ChatID=%d: %v", chatID, err)
	}
}

func (h *Handler) sendText(chatID int64, text string) {
	h.send(chatID, menus.Menu{Text: text})
}

// edit заменяет сообщение с меню; если Telegram отказал, отправляет меню новым сообщением
func (h *Handler) edit(chatID int64, messageID int, menu menus.Menu) {
	if _, err := h.bot.Send(menu.Edit(chatID, messageID)); err != nil {
		log.Printf("HANDLERS: Ошибка редактирования сообщения ChatID=%d, MessageID=%d: %v", chatID, messageID, err)
		h.send(chatID, menu)
	}
}

// activeSubscription возвращает активную подписку пользователя или nil
func (h *Handler) activeSubscription(ctx context.Context, user *storage.User) *storage.Subscription {
	sub, err := h.subs.Status(ctx, user.ID)
	if err != nil {
		return nil
	}
	return sub
}
