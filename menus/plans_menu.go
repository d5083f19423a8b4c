package menus

import (
	"fmt"
	"html"
	"strings"

	"vpnbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// PlansMenu список тарифов. С withButtons каждому тарифу соответствует кнопка выбора.
func PlansMenu(plans []storage.Plan, withButtons bool) Menu {
	if len(plans) == 0 {
		return Menu{Text: "😔 Сейчас нет доступных тарифов. Загляните позже.", Keyboard: keyboard(homeRow())}
	}

	var b strings.Builder
	if withButtons {
		b.WriteString("💳 <b>Выберите тариф</b>\n\n")
	} else {
		b.WriteString("💳 <b>Тарифы</b>\n\n")
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(plans)+1)
	for _, p := range plans {
		fmt.Fprintf(&b, "• <b>%s</b>: %s₽ за %d дн.", html.EscapeString(p.Name), formatPrice(p.Price), p.DurationDays)
		if p.DeviceLimit > 0 {
			fmt.Fprintf(&b, ", устройств: %d", p.DeviceLimit)
		}
		if p.TrafficGB > 0 {
			fmt.Fprintf(&b, ", трафик: %d ГБ", p.TrafficGB)
		}
		b.WriteString("\n")
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s\n", html.EscapeString(p.Description))
		}
		if withButtons {
			label := fmt.Sprintf("%s - %s₽", p.Name, formatPrice(p.Price))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, CallbackPlanPrefix+p.ID),
			))
		}
	}
	if !withButtons {
		b.WriteString("\nОформить подписку: /subscribe")
	}
	rows = append(rows, homeRow())
	return Menu{Text: b.String(), Keyboard: keyboard(rows...)}
}

// SubscribedMenu подтверждение созданной заявки на подписку
func SubscribedMenu(sub *storage.Subscription, plan *storage.Plan) Menu {
	text := fmt.Sprintf("📝 Заявка на подписку «%s» создана.\n\n"+
		"🆔 Номер: <code>%s</code>\n"+
		"💰 Стоимость: %s₽\n\n"+
		"После подтверждения оплаты администратор активирует доступ и бот пришлет уведомление.",
		html.EscapeString(plan.Name), sub.ID, formatPrice(plan.Price))
	return Menu{Text: text, Keyboard: keyboard(homeRow())}
}

func formatPrice(price float64) string {
	if price == float64(int64(price)) {
		return fmt.Sprintf("%d", int64(price))
	}
	return fmt.Sprintf("%.2f", price)
}
