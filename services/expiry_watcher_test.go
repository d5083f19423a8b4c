package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vpnbot/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	notified []string
	err      error
}

func (n *recordingNotifier) NotifyExpired(_ context.Context, user storage.User, sub storage.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, sub.ID)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notified)
}

func activeSubscription(t *testing.T, f *fixture, end time.Time) *storage.Subscription {
	t.Helper()
	start := end.Add(-time.Hour)
	sub := &storage.Subscription{UserID: f.user.ID, PlanID: f.plan.ID, Status: storage.StatusActive, StartDate: &start, EndDate: &end}
	require.NoError(t, f.store.CreateSubscription(context.Background(), sub))
	return sub
}

func TestExpiryWatcher_CheckOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expiredSub := activeSubscription(t, f, f.now.Add(-time.Minute))
	boundarySub := activeSubscription(t, f, f.now)
	liveSub := activeSubscription(t, f, f.now.Add(time.Hour))

	notifier := &recordingNotifier{}
	w := NewExpiryWatcher(f.store, notifier, time.Minute)
	w.now = func() time.Time { return f.now }

	assert.Equal(t, 2, w.CheckOnce(ctx))
	assert.ElementsMatch(t, []string{expiredSub.ID, boundarySub.ID}, notifier.notified)

	for id, want := range map[string]storage.SubscriptionStatus{
		expiredSub.ID:  storage.StatusExpired,
		boundarySub.ID: storage.StatusExpired,
		liveSub.ID:     storage.StatusActive,
	} {
		got, err := f.store.GetSubscription(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}

	assert.Equal(t, 0, w.CheckOnce(ctx), "повторная проверка не должна находить уже помеченные подписки")
}

func TestExpiryWatcher_NotifierErrorDoesNotStop(t *testing.T) {
	f := newFixture(t)
	activeSubscription(t, f, f.now.Add(-time.Hour))
	activeSubscription(t, f, f.now.Add(-2*time.Hour))

	notifier := &recordingNotifier{err: errors.New("chat not found")}
	w := NewExpiryWatcher(f.store, notifier, time.Minute)
	w.now = func() time.Time { return f.now }

	assert.Equal(t, 2, w.CheckOnce(context.Background()))
	assert.Equal(t, 2, notifier.count())
}

func TestExpiryWatcher_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	activeSubscription(t, f, f.now.Add(-time.Hour))

	notifier := &recordingNotifier{}
	w := NewExpiryWatcher(f.store, notifier, time.Hour)
	w.now = func() time.Time { return f.now }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond,
		"первая проверка должна выполняться сразу при запуске")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}
