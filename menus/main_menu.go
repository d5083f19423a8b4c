package menus

import (
	"fmt"
	"html"
	"time"

	"vpnbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const dateLayout = "02.01.2006 15:04"

// MainMenu главное меню. sub равен nil, если активной подписки нет.
func MainMenu(user storage.User, sub *storage.Subscription, supportLink string) Menu {
	name := user.FirstName
	if name == "" {
		name = user.Username
	}
	text := fmt.Sprintf("🌟 Добро пожаловать, %s!\n\n", html.EscapeString(name))

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 Скачать приложение", CallbackDownload),
		),
	}

	if sub != nil && sub.EndDate != nil {
		text += fmt.Sprintf("✅ Подписка «%s» активна до %s\n\n", html.EscapeString(sub.PlanName), sub.EndDate.Format(dateLayout))
		text += "🚀 Чтобы подключиться:\n"
		text += "1️⃣ Скачайте приложение кнопкой ниже\n"
		text += "2️⃣ Откройте «Конфиг» и импортируйте ссылку на подписку"
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔐 Конфиг", CallbackConfig),
			tgbotapi.NewInlineKeyboardButtonData("📊 Статус", CallbackStatus),
		))
	} else {
		text += "🔐 У вас нет активной подписки\n"
		text += "💡 Выберите подходящий тариф и начните пользоваться безопасным интернетом!"
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💳 Тарифы", CallbackPlans),
	))
	if supportLink != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("❓ Поддержка", supportLink),
		))
	}
	return Menu{Text: text, Keyboard: keyboard(rows...)}
}

// StatusMenu состояние подписки пользователя
func StatusMenu(sub *storage.Subscription, now time.Time) Menu {
	if sub == nil || sub.EndDate == nil {
		return Menu{
			Text: "📭 Активной подписки нет.\n\nОформить её можно командой /subscribe",
			Keyboard: keyboard(
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💳 Тарифы", CallbackPlans)),
				homeRow(),
			),
		}
	}

	left := sub.EndDate.Sub(now)
	days := int(left.Hours() / 24)
	text := fmt.Sprintf("📊 Подписка «%s»\n\n", html.EscapeString(sub.PlanName))
	if sub.StartDate != nil {
		text += fmt.Sprintf("📅 Начало: %s\n", sub.StartDate.Format(dateLayout))
	}
	text += fmt.Sprintf("⏳ Активна до: %s\n", sub.EndDate.Format(dateLayout))
	text += fmt.Sprintf("🗓 Осталось дней: %d", days)

	return Menu{
		Text: text,
		Keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔐 Конфиг", CallbackConfig)),
			homeRow(),
		),
	}
}

// HelpMenu список команд
func HelpMenu(isAdmin bool) Menu {
	text := "ℹ️ <b>Команды</b>\n\n" +
		"/start - главное меню\n" +
		"/plans - список тарифов\n" +
		"/subscribe - оформить подписку\n" +
		"/status - состояние подписки\n" +
		"/config - ссылка для подключения\n" +
		"/support - связаться с поддержкой"
	if isAdmin {
		text += "\n\n🛠 <b>Администратор</b>\n\n" +
			"/inbounds - inbounds панели\n" +
			"/paneltest - проверить подключение к панели\n" +
			"/activate &lt;id&gt; - активировать подписку"
	}
	return Menu{Text: text}
}
