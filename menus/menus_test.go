package menus

import (
	"testing"
	"time"

	"vpnbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbackData(k *tgbotapi.InlineKeyboardMarkup) []string {
	var out []string
	for _, row := range k.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

func TestPlansMenu_Buttons(t *testing.T) {
	plans := []storage.Plan{
		{ID: "p1", Name: "Неделя", Price: 79.5, DurationDays: 7},
		{ID: "p2", Name: "Месяц", Price: 199, DurationDays: 30, DeviceLimit: 3},
	}

	m := PlansMenu(plans, true)
	require.NotNil(t, m.Keyboard)
	assert.Equal(t, []string{"plan:p1", "plan:p2", CallbackMain}, callbackData(m.Keyboard))
	assert.Contains(t, m.Text, "79.50₽ за 7 дн.")
	assert.Contains(t, m.Text, "устройств: 3")

	m = PlansMenu(plans, false)
	assert.Equal(t, []string{CallbackMain}, callbackData(m.Keyboard))
	assert.Contains(t, m.Text, "/subscribe")
}

func TestPlansMenu_Empty(t *testing.T) {
	assert.Contains(t, PlansMenu(nil, true).Text, "нет доступных тарифов")
}

func TestMainMenu_EscapesName(t *testing.T) {
	m := MainMenu(storage.User{FirstName: "<b>Bob</b>"}, nil, "")
	assert.Contains(t, m.Text, "&lt;b&gt;Bob&lt;/b&gt;")
	assert.NotContains(t, callbackData(m.Keyboard), CallbackConfig)
}

func TestStatusMenu_DaysLeft(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(10*24*time.Hour + time.Hour)
	m := StatusMenu(&storage.Subscription{PlanName: "Месяц", EndDate: &end}, now)
	assert.Contains(t, m.Text, "Осталось дней: 10")
	assert.Contains(t, m.Text, "11.05.2025 13:00")
}

func TestConfigMenu_SubscriptionURL(t *testing.T) {
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sub := &storage.Subscription{ClientID: "abc-123", EndDate: &end}

	m := ConfigMenu(sub, "https://sub.example.com/", "")
	assert.Contains(t, m.Text, "https://sub.example.com/abc-123")

	m = ConfigMenu(sub, "", "")
	assert.NotContains(t, m.Text, "Ссылка на подписку")
}

func TestMenu_MessageAndEdit(t *testing.T) {
	m := DownloadMenu()

	msg := m.Message(42)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)

	edit := m.Edit(42, 7)
	assert.Equal(t, 7, edit.MessageID)
	assert.Same(t, m.Keyboard, edit.ReplyMarkup)
}

func TestSubscriptionQR(t *testing.T) {
	file, err := SubscriptionQR("https://sub.example.com/abc-123")
	require.NoError(t, err)
	assert.Equal(t, "qrcode.png", file.Name)
	assert.Greater(t, len(file.Bytes), 100)
	assert.Equal(t, []byte("\x89PNG"), file.Bytes[:4])
}
