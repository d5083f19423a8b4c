package handlers

import (
	"context"
	"errors"
	"strings"

	"vpnbot/menus"
	"vpnbot/services"
	"vpnbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// HandleCallback обрабатывает callback-запросы
func (h *Handler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback == nil || callback.From == nil || callback.Message == nil {
		return
	}
	data := callback.Data
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	log.Printf("HANDLE_CALLBACK: Обработка callback, TelegramID=%d, Data='%s', ChatID=%d, MessageID=%d", callback.From.ID, data, chatID, messageID)

	user, err := h.ensureUser(ctx, callback.From)
	if err != nil {
		h.answer(callback.ID, "Ошибка получения данных")
		return
	}

	switch {
	case data == menus.CallbackMain:
		h.edit(chatID, messageID, menus.MainMenu(*user, h.activeSubscription(ctx, user), h.cfg.SupportLink))
	case data == menus.CallbackPlans:
		plans, err := h.store.ListPlans(ctx, true)
		if err != nil {
			log.Printf("HANDLE_CALLBACK: Ошибка получения тарифов: %v", err)
			h.answer(callback.ID, "Не удалось загрузить тарифы")
			return
		}
		h.edit(chatID, messageID, menus.PlansMenu(plans, true))
	case data == menus.CallbackStatus:
		h.edit(chatID, messageID, menus.StatusMenu(h.activeSubscription(ctx, user), h.now()))
	case data == menus.CallbackConfig:
		h.edit(chatID, messageID, menus.ConfigMenu(h.activeSubscription(ctx, user), h.cfg.ConfigBaseURL, h.cfg.SupportLink))
	case data == menus.CallbackDownload:
		h.edit(chatID, messageID, menus.DownloadMenu())
	case data == menus.CallbackIOS:
		h.edit(chatID, messageID, menus.IOSMenu())
	case data == menus.CallbackAndroid:
		h.edit(chatID, messageID, menus.AndroidMenu())
	case strings.HasPrefix(data, menus.CallbackPlanPrefix):
		planID := strings.TrimPrefix(data, menus.CallbackPlanPrefix)
		if !h.subscribe(ctx, callback, user, planID) {
			return
		}
	default:
		log.Printf("HANDLE_CALLBACK: Неизвестный callback '%s' от TelegramID=%d", data, user.TelegramID)
		h.answer(callback.ID, "Неизвестная команда")
		return
	}
	h.answer(callback.ID, "")
}

// subscribe создает заявку на подписку. false означает, что ответ на callback уже отправлен.
func (h *Handler) subscribe(ctx context.Context, callback *tgbotapi.CallbackQuery, user *storage.User, planID string) bool {
	chatID := callback.Message.Chat.ID

	plan, err := h.store.GetPlan(ctx, planID)
	if err != nil {
		log.Printf("HANDLE_CALLBACK: Тариф %s не найден: %v", planID, err)
		h.answer(callback.ID, "Тариф не найден")
		return false
	}

	sub, err := h.subs.Subscribe(ctx, user.ID, planID)
	if err != nil {
		log.Printf("HANDLE_CALLBACK: Ошибка создания подписки TelegramID=%d, PlanID=%s: %v", user.TelegramID, planID, err)
		if errors.Is(err, services.ErrPlanInactive) {
			h.answer(callback.ID, "Тариф больше не доступен")
		} else {
			h.answer(callback.ID, "Не удалось создать заявку")
		}
		return false
	}

	log.Printf("HANDLE_CALLBACK: Создана заявка %s на тариф %s для TelegramID=%d", sub.ID, plan.Name, user.TelegramID)
	h.edit(chatID, callback.Message.MessageID, menus.SubscribedMenu(sub, plan))
	h.notifyAdmins(sub, plan, user)
	return true
}

// notifyAdmins сообщает администраторам о новой заявке
func (h *Handler) notifyAdmins(sub *storage.Subscription, plan *storage.Plan, user *storage.User) {
	for _, adminID := range h.cfg.AdminIDs {
		h.send(adminID, menus.NewRequestNotice(sub, plan, user))
	}
}

func (h *Handler) answer(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("HANDLE_CALLBACK: Ошибка ответа на callback %s: %v", callbackID, err)
	}
}
