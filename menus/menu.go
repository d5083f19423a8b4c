package menus

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Menu текст экрана бота вместе с inline-клавиатурой
type Menu struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// Message собирает новое сообщение с меню
func (m Menu) Message(chatID int64) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, m.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if m.Keyboard != nil {
		msg.ReplyMarkup = m.Keyboard
	}
	return msg
}

// Edit заменяет содержимое уже отправленного сообщения
func (m Menu) Edit(chatID int64, messageID int) tgbotapi.EditMessageTextConfig {
	editMsg := tgbotapi.NewEditMessageText(chatID, messageID, m.Text)
	editMsg.ParseMode = tgbotapi.ModeHTML
	editMsg.ReplyMarkup = m.Keyboard
	return editMsg
}

func keyboard(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	k := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &k
}

func homeRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Главная", CallbackMain),
	)
}

// Данные callback-кнопок
const (
	CallbackMain     = "main"
	CallbackPlans    = "plans"
	CallbackStatus   = "status"
	CallbackConfig   = "config"
	CallbackDownload = "download_app"
	CallbackIOS      = "device_ios"
	CallbackAndroid  = "device_android"
	// CallbackPlanPrefix префикс выбора тарифа, за ним следует id тарифа
	CallbackPlanPrefix = "plan:"
)
