package menus

import (
	"fmt"
	"html"

	"vpnbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	qrcode "github.com/skip2/go-qrcode"
)

// SubscriptionURL ссылка на подписку клиента панели
func SubscriptionURL(baseURL, clientID string) string {
	return baseURL + clientID
}

// ConfigMenu данные для подключения по активной подписке
func ConfigMenu(sub *storage.Subscription, baseURL, supportLink string) Menu {
	if sub == nil || sub.ClientID == "" {
		return Menu{
			Text: "🔐 У вас нет активного конфига для подключения.\n\nОформить подписку: /subscribe",
			Keyboard: keyboard(
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💳 Тарифы", CallbackPlans)),
				homeRow(),
			),
		}
	}

	text := "🔐 <b>Ваш конфиг активен!</b>\n\n"
	if sub.EndDate != nil {
		text += fmt.Sprintf("📅 Активен до: %s\n", sub.EndDate.Format(dateLayout))
	}
	text += fmt.Sprintf("🆔 Клиент: <code>%s</code>\n", html.EscapeString(sub.ClientID))

	rows := [][]tgbotapi.InlineKeyboardButton{}
	if baseURL != "" {
		link := SubscriptionURL(baseURL, sub.ClientID)
		text += fmt.Sprintf("🔗 Ссылка на подписку:\n<code>%s</code>\n\n", html.EscapeString(link))
		text += "💡 Скопируйте ссылку и импортируйте ее в приложение\n\n" +
			"📱 Подходящие приложения:\n" +
			"• Android: v2rayNG, Hiddify\n" +
			"• iOS и macOS: v2RayTun, Streisand, Hiddify\n" +
			"• Windows и Linux: Nekoray, Hiddify"
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Открыть подписку", link),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📱 Скачать приложение", CallbackDownload),
	))
	if supportLink != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("❓ Поддержка", supportLink),
		))
	}
	rows = append(rows, homeRow())
	return Menu{Text: text, Keyboard: keyboard(rows...)}
}

// SupportMenu кнопка перехода в поддержку
func SupportMenu(supportLink string) Menu {
	if supportLink == "" {
		return Menu{Text: "🆘 Поддержка временно недоступна."}
	}
	return Menu{
		Text: "🆘 Чтобы обратиться в поддержку, нажмите на кнопку ниже",
		Keyboard: keyboard(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🆘 Поддержка", supportLink),
		)),
	}
}

// SubscriptionQR PNG с QR-кодом ссылки на подписку
func SubscriptionQR(link string) (tgbotapi.FileBytes, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return tgbotapi.FileBytes{}, err
	}
	return tgbotapi.FileBytes{Name: "qrcode.png", Bytes: png}, nil
}
