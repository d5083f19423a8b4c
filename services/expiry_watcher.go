package services

import (
	"context"
	"time"

	"vpnbot/storage"

	log "github.com/sirupsen/logrus"
)

// Notifier уведомляет владельца об окончании подписки
type Notifier interface {
	NotifyExpired(ctx context.Context, user storage.User, sub storage.Subscription) error
}

// ExpiryWatcher периодически переводит истекшие подписки в expired
type ExpiryWatcher struct {
	store    storage.Store
	notifier Notifier
	interval time.Duration
	now      func() time.Time
}

// NewExpiryWatcher создает наблюдатель. notifier может быть nil.
func NewExpiryWatcher(store storage.Store, notifier Notifier, interval time.Duration) *ExpiryWatcher {
	return &ExpiryWatcher{
		store:    store,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// Run выполняет проверку сразу и затем по расписанию, пока не завершится ctx
func (w *ExpiryWatcher) Run(ctx context.Context) error {
	log.Printf("EXPIRY_WATCHER: Запуск проверки подписок (интервал: %v)", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("EXPIRY_WATCHER: Проверка подписок остановлена")
			return nil
		case <-ticker.C:
			w.CheckOnce(ctx)
		}
	}
}

// CheckOnce помечает истекшие подписки и возвращает их количество
func (w *ExpiryWatcher) CheckOnce(ctx context.Context) int {
	expired, err := w.store.ListExpired(ctx, w.now())
	if err != nil {
		log.Printf("EXPIRY_WATCHER: Ошибка получения истекших подписок: %v", err)
		return 0
	}

	count := 0
	for i := range expired {
		sub := expired[i]
		sub.Status = storage.StatusExpired
		if err := w.store.UpdateSubscription(ctx, &sub); err != nil {
			log.Printf("EXPIRY_WATCHER: Ошибка обновления подписки %s: %v", sub.ID, err)
			continue
		}
		count++
		w.notify(ctx, sub)
	}

	if count > 0 {
		log.Printf("EXPIRY_WATCHER: Истекших подписок: %d", count)
	}
	return count
}

func (w *ExpiryWatcher) notify(ctx context.Context, sub storage.Subscription) {
	if w.notifier == nil {
		return
	}
	user, err := w.store.GetUser(ctx, sub.UserID)
	if err != nil {
		log.Printf("EXPIRY_WATCHER: Пользователь %s подписки %s не найден: %v", sub.UserID, sub.ID, err)
		return
	}
	if err := w.notifier.NotifyExpired(ctx, *user, sub); err != nil {
		log.Printf("EXPIRY_WATCHER: Ошибка отправки уведомления пользователю %d: %v", user.TelegramID, err)
	}
}
