package menus

import (
	"fmt"
	"html"
	"strings"

	"vpnbot/storage"
	"vpnbot/xui"
)

// InboundsMenu сводка по inbounds панели
func InboundsMenu(inbounds []xui.Inbound) Menu {
	if len(inbounds) == 0 {
		return Menu{Text: "📭 На панели нет inbounds"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🛰 <b>Inbounds панели</b> (%d)\n\n", len(inbounds))
	for _, in := range inbounds {
		state := "🟢"
		if !in.Enable {
			state = "🔴"
		}
		clients := "?"
		if list, err := in.Clients(); err == nil {
			clients = fmt.Sprintf("%d", len(list))
		}
		fmt.Fprintf(&b, "%s <b>#%d</b> %s: %s:%d, клиентов: %s\n",
			state, in.ID, html.EscapeString(in.Remark), in.Protocol, in.Port, clients)
	}
	return Menu{Text: b.String()}
}

// PanelTestMenu результат проверки подключения к панели
func PanelTestMenu(url string, reachable bool, err error) Menu {
	if err == nil {
		return Menu{Text: fmt.Sprintf("✅ Панель %s доступна, авторизация успешна", html.EscapeString(url))}
	}
	res := xui.AsResult(err)
	stage := "авторизация"
	if !reachable {
		stage = "сетевая доступность"
	}
	return Menu{Text: fmt.Sprintf("❌ Проверка панели %s не прошла\n\nЭтап: %s\nКод: <code>%s</code>\nОшибка: %s",
		html.EscapeString(url), stage, res.Code, html.EscapeString(res.Message))}
}

// ActivatedMenu ответ администратору после активации подписки
func ActivatedMenu(sub *storage.Subscription) Menu {
	text := fmt.Sprintf("✅ Подписка <code>%s</code> активирована\n\nКлиент: <code>%s</code>\nInbound: %d",
		sub.ID, html.EscapeString(sub.ClientEmail), sub.InboundID)
	if sub.EndDate != nil {
		text += "\nДо: " + sub.EndDate.Format(dateLayout)
	}
	return Menu{Text: text}
}

// ActivationNotice уведомление владельцу о включенном доступе
func ActivationNotice(sub *storage.Subscription) Menu {
	text := fmt.Sprintf("🎉 Ваша подписка «%s» активирована!", html.EscapeString(sub.PlanName))
	if sub.EndDate != nil {
		text += "\n\n📅 Активна до: " + sub.EndDate.Format(dateLayout)
	}
	text += "\n\nДанные для подключения: /config"
	return Menu{Text: text}
}

// ExpiredNotice уведомление об окончании подписки
func ExpiredNotice(sub storage.Subscription) Menu {
	return Menu{Text: fmt.Sprintf("⏰ Срок подписки «%s» истек.\n\nЧтобы продолжить пользоваться VPN, оформите новую: /subscribe",
		html.EscapeString(sub.PlanName))}
}

// NewRequestNotice уведомление администратору о новой заявке
func NewRequestNotice(sub *storage.Subscription, plan *storage.Plan, user *storage.User) Menu {
	who := user.Username
	if who != "" {
		who = "@" + who
	} else {
		who = user.FirstName
	}
	return Menu{Text: fmt.Sprintf("🆕 Новая заявка на подписку\n\n"+
		"👤 %s (TelegramID=%d)\n"+
		"💳 Тариф: %s\n\n"+
		"Активировать: <code>/activate %s</code>",
		html.EscapeString(who), user.TelegramID, html.EscapeString(plan.Name), sub.ID)}
}
