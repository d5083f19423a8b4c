package menus

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DownloadMenu выбор устройства для скачивания приложения
func DownloadMenu() Menu {
	return Menu{
		Text: "📱 Скачать приложение\n\nКакое у вас устройство?",
		Keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🍎 iOS", CallbackIOS),
				tgbotapi.NewInlineKeyboardButtonData("🤖 Android", CallbackAndroid),
			),
			homeRow(),
		),
	}
}

// IOSMenu ссылки на App Store
func IOSMenu() Menu {
	return Menu{
		Text: "🍎 iOS\n\nВыберите ссылку для вашего региона:\n\n" +
			"🇷🇺 <b>App Store (Россия)</b>: для пользователей из России\n" +
			"🌍 <b>App Store (Другие регионы)</b>: для остальных стран",
		Keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🇷🇺 App Store (Россия)", "https://apps.apple.com/ru/app/v2raytun/id6476628951"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🌍 App Store (Другие регионы)", "https://apps.apple.com/us/app/v2raytun/id6476628951"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", CallbackDownload),
			),
			homeRow(),
		),
	}
}

// AndroidMenu ссылка на Google Play
func AndroidMenu() Menu {
	return Menu{
		Text: "🤖 Android\n\nСкачайте приложение из Google Play:",
		Keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🤖 Google Play", "https://play.google.com/store/apps/details?id=com.v2ray.ang"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", CallbackDownload),
			),
			homeRow(),
		),
	}
}
