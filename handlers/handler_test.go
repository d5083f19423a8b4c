package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"

	"vpnbot/services"
	"vpnbot/storage"
	"vpnbot/xui"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID = int64(111)
	userID  = int64(873925520)
)

type sentMessage struct {
	chatID int64
	text   string
	edit   bool
}

type fakeSender struct {
	mu        sync.Mutex
	messages  []sentMessage
	callbacks []tgbotapi.CallbackConfig
	photos    []tgbotapi.PhotoConfig
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		s.messages = append(s.messages, sentMessage{chatID: m.ChatID, text: m.Text})
	case tgbotapi.EditMessageTextConfig:
		s.messages = append(s.messages, sentMessage{chatID: m.ChatID, text: m.Text, edit: true})
	case tgbotapi.PhotoConfig:
		s.photos = append(s.photos, m)
	}
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		s.callbacks = append(s.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages, "бот ничего не отправил")
	return s.messages[len(s.messages)-1]
}

func (s *fakeSender) to(chatID int64) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, m := range s.messages {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type fakePanel struct {
	probeErr error
	loginErr error
	inbounds []xui.Inbound
	created  int
}

func (p *fakePanel) Settings() xui.Settings {
	return xui.Settings{URL: "http://panel.local:2053", Username: "admin", Password: "secret"}
}

func (p *fakePanel) Probe(context.Context, string) error { return p.probeErr }

func (p *fakePanel) TestConnection(context.Context, xui.Settings) error { return p.loginErr }

func (p *fakePanel) GetInbounds(context.Context) ([]xui.Inbound, error) { return p.inbounds, nil }

func (p *fakePanel) CreateClient(_ context.Context, inboundID int, email string, deviceLimit int, expiryTimeMs int64) (*xui.CreateClientResult, error) {
	p.created++
	return &xui.CreateClientResult{
		Success:   true,
		InboundID: inboundID,
		Client:    xui.NewClientEntry("7d1f0b1c-5a39-4a8e-9d55-0c9b8f1e2a77", email, deviceLimit, expiryTimeMs),
	}, nil
}

type env struct {
	h      *Handler
	sender *fakeSender
	store  *storage.Memory
	panel  *fakePanel
	subs   *services.SubscriptionService
	plan   *storage.Plan
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{sender: &fakeSender{}, store: storage.NewMemory(), panel: &fakePanel{}}
	e.subs = services.NewSubscriptionService(e.store, e.panel, 1)
	e.h = New(e.sender, e.store, e.subs, e.panel, Config{
		AdminIDs:      []int64{adminID},
		ConfigBaseURL: "https://sub.example.com/sub/",
		SupportLink:   "https://t.me/support_bot",
	})
	e.plan = &storage.Plan{Name: "Месяц", Price: 199, DurationDays: 30, DeviceLimit: 2, Active: true}
	require.NoError(t, e.store.CreatePlan(context.Background(), e.plan))
	return e
}

func command(from int64, text string) *tgbotapi.Message {
	name := strings.SplitN(text, " ", 2)[0]
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "Alice", UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func callback(from int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: from, FirstName: "Alice", UserName: "alice"},
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}
}

func TestStart_RegistersUser(t *testing.T) {
	e := newEnv(t)
	e.h.HandleMessage(context.Background(), command(userID, "/start"))

	user, err := e.store.GetUserByTelegramID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, storage.RoleUser, user.Role)

	msg := e.sender.last(t)
	assert.Equal(t, userID, msg.chatID)
	assert.Contains(t, msg.text, "Добро пожаловать, Alice")
	assert.Contains(t, msg.text, "нет активной подписки")
}

func TestStart_AdminRole(t *testing.T) {
	e := newEnv(t)
	e.h.HandleMessage(context.Background(), command(adminID, "/start"))

	user, err := e.store.GetUserByTelegramID(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, storage.RoleAdmin, user.Role)
}

func TestPlans_ListsActivePlans(t *testing.T) {
	e := newEnv(t)
	hidden := &storage.Plan{Name: "Архив", Price: 50, DurationDays: 7, Active: false}
	require.NoError(t, e.store.CreatePlan(context.Background(), hidden))

	e.h.HandleMessage(context.Background(), command(userID, "/plans"))

	text := e.sender.last(t).text
	assert.Contains(t, text, "Месяц")
	assert.Contains(t, text, "199₽ за 30 дн.")
	assert.NotContains(t, text, "Архив")
}

func TestSubscribeCallback_CreatesPendingSubscription(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.h.HandleCallback(ctx, callback(userID, "plan:"+e.plan.ID))

	user, err := e.store.GetUserByTelegramID(ctx, userID)
	require.NoError(t, err)
	subs, err := e.store.ListSubscriptionsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, storage.StatusPending, subs[0].Status)
	assert.Zero(t, e.panel.created, "заявка не должна выдавать доступ в панели")

	userMsgs := e.sender.to(userID)
	require.Len(t, userMsgs, 1)
	assert.True(t, userMsgs[0].edit)
	assert.Contains(t, userMsgs[0].text, subs[0].ID)

	adminMsgs := e.sender.to(adminID)
	require.Len(t, adminMsgs, 1)
	assert.Contains(t, adminMsgs[0].text, "/activate "+subs[0].ID)

	require.Len(t, e.sender.callbacks, 1)
	assert.Equal(t, "cb-1", e.sender.callbacks[0].CallbackQueryID)
	assert.Empty(t, e.sender.callbacks[0].Text)
}

func TestSubscribeCallback_UnknownPlan(t *testing.T) {
	e := newEnv(t)
	e.h.HandleCallback(context.Background(), callback(userID, "plan:missing"))

	require.Len(t, e.sender.callbacks, 1)
	assert.Equal(t, "Тариф не найден", e.sender.callbacks[0].Text)
	assert.Empty(t, e.sender.to(adminID))
}

func TestActivate_RequiresAdmin(t *testing.T) {
	e := newEnv(t)
	e.h.HandleMessage(context.Background(), command(userID, "/activate whatever"))

	assert.Contains(t, e.sender.last(t).text, "Доступ запрещён")
	assert.Zero(t, e.panel.created)
}

func TestActivate_ProvisionsAndNotifiesOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.h.HandleMessage(ctx, command(userID, "/start"))
	user, err := e.store.GetUserByTelegramID(ctx, userID)
	require.NoError(t, err)
	sub, err := e.subs.Subscribe(ctx, user.ID, e.plan.ID)
	require.NoError(t, err)

	e.h.HandleMessage(ctx, command(adminID, "/activate "+sub.ID))

	got, err := e.store.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusActive, got.Status)
	assert.Equal(t, 1, e.panel.created)

	adminMsgs := e.sender.to(adminID)
	require.NotEmpty(t, adminMsgs)
	assert.Contains(t, adminMsgs[len(adminMsgs)-1].text, "активирована")

	userMsgs := e.sender.to(userID)
	assert.Contains(t, userMsgs[len(userMsgs)-1].text, "Ваша подписка «Месяц» активирована")

	e.h.HandleMessage(ctx, command(userID, "/config"))
	assert.Contains(t, e.sender.last(t).text, "https://sub.example.com/sub/7d1f0b1c-5a39-4a8e-9d55-0c9b8f1e2a77")

	require.Len(t, e.sender.photos, 1)
	assert.Equal(t, userID, e.sender.photos[0].ChatID)
	qr, ok := e.sender.photos[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, []byte("\x89PNG"), qr.Bytes[:4])
}

func TestActivate_Twice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.h.HandleMessage(ctx, command(userID, "/start"))
	user, err := e.store.GetUserByTelegramID(ctx, userID)
	require.NoError(t, err)
	sub, err := e.subs.Subscribe(ctx, user.ID, e.plan.ID)
	require.NoError(t, err)
	_, err = e.subs.Activate(ctx, sub.ID)
	require.NoError(t, err)

	e.h.HandleMessage(ctx, command(adminID, "/activate "+sub.ID))
	assert.Contains(t, e.sender.last(t).text, "только подписку в статусе pending")
	assert.Equal(t, 1, e.panel.created)
}

func TestConfig_WithoutSubscription(t *testing.T) {
	e := newEnv(t)
	e.h.HandleMessage(context.Background(), command(userID, "/config"))
	assert.Contains(t, e.sender.last(t).text, "нет активного конфига")
	assert.Empty(t, e.sender.photos)
}

func TestPanelTest(t *testing.T) {
	cases := []struct {
		name     string
		probeErr error
		loginErr error
		want     []string
	}{
		{
			name: "успех",
			want: []string{"авторизация успешна"},
		},
		{
			name:     "панель недоступна",
			probeErr: &xui.Error{Message: "connection refused", Code: xui.CodeConnRefused},
			want:     []string{"сетевая доступность", xui.CodeConnRefused},
		},
		{
			name:     "неверный пароль",
			loginErr: &xui.Error{Message: "Неверные учетные данные", Code: xui.CodeAuthFailed},
			want:     []string{"Этап: авторизация", xui.CodeAuthFailed},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.panel.probeErr = tc.probeErr
			e.panel.loginErr = tc.loginErr

			e.h.HandleMessage(context.Background(), command(adminID, "/paneltest"))

			text := e.sender.last(t).text
			for _, w := range tc.want {
				assert.Contains(t, text, w)
			}
		})
	}
}

func TestInbounds(t *testing.T) {
	e := newEnv(t)
	e.panel.inbounds = []xui.Inbound{
		{ID: 1, Remark: "vless-main", Protocol: "vless", Port: 443, Enable: true,
			Settings: `{"clients":[{"id":"a","email":"a@x"},{"id":"b","email":"b@x"}]}`},
		{ID: 2, Remark: "old", Protocol: "vmess", Port: 8443},
	}

	e.h.HandleMessage(context.Background(), command(adminID, "/inbounds"))

	text := e.sender.last(t).text
	assert.Contains(t, text, "Inbounds панели</b> (2)")
	assert.Contains(t, text, "vless-main: vless:443, клиентов: 2")
	assert.Contains(t, text, "🔴 <b>#2</b>")
}

func TestUnknownInput(t *testing.T) {
	e := newEnv(t)
	e.h.HandleMessage(context.Background(), command(userID, "/nope"))
	assert.Contains(t, e.sender.last(t).text, "Неизвестная команда")

	plain := &tgbotapi.Message{From: &tgbotapi.User{ID: userID}, Chat: &tgbotapi.Chat{ID: userID}, Text: "привет"}
	e.h.HandleMessage(context.Background(), plain)
	assert.Contains(t, e.sender.last(t).text, "только команды")
}

func TestHelp_AdminSection(t *testing.T) {
	e := newEnv(t)
	e.h.HandleMessage(context.Background(), command(userID, "/help"))
	assert.NotContains(t, e.sender.last(t).text, "/paneltest")

	e.h.HandleMessage(context.Background(), command(adminID, "/help"))
	assert.Contains(t, e.sender.last(t).text, "/paneltest")
}
