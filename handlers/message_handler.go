package handlers

import (
	"context"
	"errors"
	"html"
	"strings"

	"vpnbot/menus"
	"vpnbot/services"
	"vpnbot/storage"
	"vpnbot/xui"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// HandleMessage обрабатывает входящие сообщения
func (h *Handler) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message == nil || message.From == nil {
		return
	}
	chatID := message.Chat.ID
	log.Printf("HANDLE_MESSAGE: Обработка сообщения от TelegramID=%d, ChatID=%d, Text='%s'", message.From.ID, chatID, message.Text)

	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		h.sendText(chatID, "❌ Не удалось получить данные пользователя, попробуйте позже")
		return
	}

	if !message.IsCommand() {
		h.sendText(chatID, "🤖 Я понимаю только команды. Список команд: /help")
		return
	}

	switch message.Command() {
	case "start":
		h.send(chatID, menus.MainMenu(*user, h.activeSubscription(ctx, user), h.cfg.SupportLink))
	case "help":
		h.send(chatID, menus.HelpMenu(h.isAdmin(user.TelegramID)))
	case "plans":
		h.sendPlans(ctx, chatID, false)
	case "subscribe":
		h.sendPlans(ctx, chatID, true)
	case "status":
		h.send(chatID, menus.StatusMenu(h.activeSubscription(ctx, user), h.now()))
	case "config":
		sub := h.activeSubscription(ctx, user)
		h.send(chatID, menus.ConfigMenu(sub, h.cfg.ConfigBaseURL, h.cfg.SupportLink))
		h.sendQR(chatID, sub)
	case "support":
		h.send(chatID, menus.SupportMenu(h.cfg.SupportLink))
	case "inbounds", "paneltest", "activate":
		h.handleAdminCommand(ctx, message, user)
	default:
		log.Printf("HANDLE_MESSAGE: Неизвестная команда '%s' от TelegramID=%d", message.Command(), user.TelegramID)
		h.sendText(chatID, "❓ Неизвестная команда. Список команд: /help")
	}
}

// sendQR отправляет QR-код ссылки на подписку, если она есть
func (h *Handler) sendQR(chatID int64, sub *storage.Subscription) {
	if sub == nil || sub.ClientID == "" || h.cfg.ConfigBaseURL == "" {
		return
	}
	link := menus.SubscriptionURL(h.cfg.ConfigBaseURL, sub.ClientID)
	file, err := menus.SubscriptionQR(link)
	if err != nil {
		log.Printf("HANDLE_MESSAGE: Ошибка генерации QR-кода для ChatID=%d: %v", chatID, err)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = "📷 Отсканируйте QR-код в приложении, чтобы добавить подписку"
	if _, err := h.bot.Send(photo); err != nil {
		log.Printf("HANDLE_MESSAGE: Ошибка отправки QR-кода в ChatID=%d: %v", chatID, err)
	}
}

func (h *Handler) sendPlans(ctx context.Context, chatID int64, withButtons bool) {
	plans, err := h.store.ListPlans(ctx, true)
	if err != nil {
		log.Printf("HANDLE_MESSAGE: Ошибка получения тарифов: %v", err)
		h.sendText(chatID, "❌ Не удалось загрузить тарифы, попробуйте позже")
		return
	}
	h.send(chatID, menus.PlansMenu(plans, withButtons))
}

func (h *Handler) handleAdminCommand(ctx context.Context, message *tgbotapi.Message, user *storage.User) {
	chatID := message.Chat.ID
	if !h.isAdmin(user.TelegramID) {
		log.Printf("HANDLE_MESSAGE: Пользователь TelegramID=%d не является админом, команда /%s отклонена", user.TelegramID, message.Command())
		h.sendText(chatID, "🚫 Доступ запрещён")
		return
	}

	switch message.Command() {
	case "inbounds":
		inbounds, err := h.panel.GetInbounds(ctx)
		if err != nil {
			log.Printf("HANDLE_MESSAGE: Ошибка получения inbounds: %v", err)
			h.sendText(chatID, "❌ "+panelFailure(err))
			return
		}
		h.send(chatID, menus.InboundsMenu(inbounds))

	case "paneltest":
		url := h.panel.Settings().URL
		if err := h.panel.Probe(ctx, url); err != nil {
			h.send(chatID, menus.PanelTestMenu(url, false, err))
			return
		}
		err := h.panel.TestConnection(ctx, xui.Settings{})
		h.send(chatID, menus.PanelTestMenu(url, true, err))

	case "activate":
		id := strings.TrimSpace(message.CommandArguments())
		if id == "" {
			h.sendText(chatID, "Использование: /activate &lt;id подписки&gt;")
			return
		}
		sub, err := h.subs.Activate(ctx, id)
		if err != nil {
			log.Printf("HANDLE_MESSAGE: Ошибка активации подписки %s: %v", id, err)
			h.sendText(chatID, "❌ "+activationFailure(err))
			return
		}
		log.Printf("HANDLE_MESSAGE: Подписка %s активирована администратором TelegramID=%d", sub.ID, user.TelegramID)
		h.send(chatID, menus.ActivatedMenu(sub))
		h.notifyOwner(ctx, sub)
	}
}

// notifyOwner сообщает владельцу подписки об активации
func (h *Handler) notifyOwner(ctx context.Context, sub *storage.Subscription) {
	owner, err := h.store.GetUser(ctx, sub.UserID)
	if err != nil {
		log.Printf("HANDLE_MESSAGE: Владелец подписки %s не найден: %v", sub.ID, err)
		return
	}
	h.send(owner.TelegramID, menus.ActivationNotice(sub))
}

func activationFailure(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "Подписка не найдена"
	case errors.Is(err, services.ErrInvalidTransition):
		return "Активировать можно только подписку в статусе pending"
	}
	var xerr *xui.Error
	if errors.As(err, &xerr) {
		return panelFailure(err)
	}
	return "Не удалось активировать подписку"
}

func panelFailure(err error) string {
	res := xui.AsResult(err)
	return "Панель: " + html.EscapeString(res.Message) + " (" + res.Code + ")"
}
