package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertUserQuery(t *testing.T) {
	query, args, err := upsertUserQuery(&User{ID: "u1", TelegramID: 7, Username: "alice", Role: RoleUser}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO users (id,telegram_id,username,first_name,last_name,email,role) VALUES ($1,$2,$3,$4,$5,$6,$7)")
	assert.Contains(t, query, "ON CONFLICT (telegram_id) DO UPDATE")
	assert.Contains(t, query, "RETURNING id, email, role, created_at, updated_at")
	assert.Equal(t, []any{"u1", int64(7), "alice", "", "", "", "user"}, args)
}

func TestListPlansQuery(t *testing.T) {
	query, args, err := listPlansQuery(true).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "FROM plans WHERE active = $1 ORDER BY price ASC, name ASC")
	assert.Equal(t, []any{true}, args)

	query, args, err = listPlansQuery(false).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestListUsersQuery(t *testing.T) {
	query, _, err := listUsersQuery(20, 40).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "ORDER BY created_at DESC LIMIT 20 OFFSET 40")
}

func TestUpdateUserQuery(t *testing.T) {
	query, args, err := updateUserQuery(&User{ID: "u1", Email: "a@b.c", Role: RoleAdmin}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE users SET username = $1")
	assert.Contains(t, query, "WHERE id = $6")
	assert.Contains(t, query, "RETURNING telegram_id, created_at, updated_at")
	assert.Equal(t, []any{"", "", "", "a@b.c", "admin", "u1"}, args)
}

func TestListSubscriptionsQuery(t *testing.T) {
	query, args, err := listSubscriptionsQuery(StatusPending, 10, 20).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE status = $1")
	assert.Contains(t, query, "ORDER BY created_at DESC LIMIT 10 OFFSET 20")
	assert.Equal(t, []any{"pending"}, args)

	query, args, err = listSubscriptionsQuery("", 0, 0).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestActiveSubscriptionQuery(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := activeSubscriptionQuery("u1", now).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "end_date > $3")
	assert.Contains(t, query, "ORDER BY end_date DESC LIMIT 1")
	assert.ElementsMatch(t, []any{"u1", "active", now}, args)
}

func TestExpiredQuery(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := expiredQuery(now).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "status = $1")
	assert.Contains(t, query, "end_date <= $2")
	assert.Equal(t, []any{"active", now}, args)
}

func TestUpdateSubscriptionQuery(t *testing.T) {
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := updateSubscriptionQuery(&Subscription{ID: "s1", Status: StatusActive, EndDate: &end, ClientID: "c"}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE subscriptions SET status = $1")
	assert.Contains(t, query, "updated_at = NOW()")
	assert.Contains(t, query, "WHERE id = $7")
	assert.Len(t, args, 7)
	assert.Equal(t, "s1", args[6])
}

// TestPostgres_Integration запускается только при заданном PG_TEST_DSN
func TestPostgres_Integration(t *testing.T) {
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN не задан")
	}
	ctx := context.Background()

	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	user := &User{TelegramID: time.Now().UnixNano(), Username: "integration"}
	require.NoError(t, store.UpsertUser(ctx, user))

	plan := &Plan{Name: "Integration", DurationDays: 30, Price: 10.5, Active: true}
	require.NoError(t, store.CreatePlan(ctx, plan))

	now := time.Now().UTC().Truncate(time.Second)
	end := now.Add(time.Hour)
	sub := &Subscription{UserID: user.ID, PlanID: plan.ID, PlanName: plan.Name, Status: StatusActive, StartDate: &now, EndDate: &end}
	require.NoError(t, store.CreateSubscription(ctx, sub))

	active, err := store.ActiveSubscription(ctx, user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, active.ID)

	_, err = store.GetSubscription(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	listed, err := store.ListSubscriptions(ctx, StatusActive, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, listed)

	user.Role = RoleAdmin
	require.NoError(t, store.UpdateUser(ctx, user))
	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, got.Role)

	require.NoError(t, store.DeleteUser(ctx, user.ID))
	_, err = store.GetSubscription(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrNotFound, "подписки удаляются вместе с пользователем")
	assert.ErrorIs(t, store.DeleteUser(ctx, user.ID), ErrNotFound)
}
