package handlers

import (
	"context"

	"vpnbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ensureUser создает пользователя при первом обращении и обновляет имя при следующих
func (h *Handler) ensureUser(ctx context.Context, from *tgbotapi.User) (*storage.User, error) {
	role := storage.RoleUser
	if h.isAdmin(from.ID) {
		role = storage.RoleAdmin
	}
	user := &storage.User{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
		Role:       role,
	}
	if err := h.store.UpsertUser(ctx, user); err != nil {
		log.Printf("ENSURE_USER: Ошибка сохранения пользователя TelegramID=%d: %v", from.ID, err)
		return nil, err
	}
	return user, nil
}
