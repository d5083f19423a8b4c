package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	telegram_id BIGINT UNIQUE NOT NULL,
	username    TEXT NOT NULL DEFAULT '',
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT 'user',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS plans (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	price         NUMERIC(12,2) NOT NULL DEFAULT 0,
	duration_days INTEGER NOT NULL,
	traffic_gb    INTEGER NOT NULL DEFAULT 0,
	device_limit  INTEGER NOT NULL DEFAULT 0,
	inbound_id    INTEGER NOT NULL DEFAULT 0,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	plan_id      TEXT NOT NULL REFERENCES plans(id),
	plan_name    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	start_date   TIMESTAMPTZ,
	end_date     TIMESTAMPTZ,
	client_id    TEXT NOT NULL DEFAULT '',
	client_email TEXT NOT NULL DEFAULT '',
	inbound_id   INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_status_end_date ON subscriptions(status, end_date);
`

var (
	userColumns = []string{"id", "telegram_id", "username", "first_name", "last_name", "email", "role", "created_at", "updated_at"}
	planColumns = []string{"id", "name", "description", "price", "duration_days", "traffic_gb", "device_limit", "inbound_id", "active", "created_at", "updated_at"}
	subColumns  = []string{"id", "user_id", "plan_id", "plan_name", "status", "start_date", "end_date", "client_id", "client_email", "inbound_id", "created_at", "updated_at"}
)

// psql построитель запросов с плейсхолдерами $1, $2...
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres хранилище на PostgreSQL
type Postgres struct {
	db *sql.DB
}

// OpenPostgres подключается к PostgreSQL и проверяет соединение
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка проверки соединения с PostgreSQL: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("STORAGE: PostgreSQL подключен успешно")
	return &Postgres{db: db}, nil
}

// NewPostgres оборачивает уже открытое соединение
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Close() error {
	log.Println("STORAGE: PostgreSQL отключен")
	return p.db.Close()
}

// Migrate создает таблицы, если их еще нет
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %w", err)
	}
	log.Println("STORAGE: Схема базы данных проверена")
	return nil
}

func upsertUserQuery(u *User) sq.InsertBuilder {
	return psql.Insert("users").
		Columns("id", "telegram_id", "username", "first_name", "last_name", "email", "role").
		Values(u.ID, u.TelegramID, u.Username, u.FirstName, u.LastName, u.Email, string(u.Role)).
		Suffix(`ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			updated_at = NOW()
		RETURNING id, email, role, created_at, updated_at`)
}

func (p *Postgres) UpsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	query, args, err := upsertUserQuery(u).ToSql()
	if err != nil {
		return err
	}
	var role string
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("ошибка сохранения пользователя %d: %w", u.TelegramID, err)
	}
	u.Role = Role(role)
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (*User, error) {
	return p.getUser(ctx, sq.Eq{"id": id})
}

func (p *Postgres) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	return p.getUser(ctx, sq.Eq{"telegram_id": telegramID})
}

func (p *Postgres) getUser(ctx context.Context, where sq.Eq) (*User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func listUsersQuery(limit, offset int) sq.SelectBuilder {
	q := psql.Select(userColumns...).From("users").OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

func (p *Postgres) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	query, args, err := listUsersQuery(limit, offset).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func updateUserQuery(u *User) sq.UpdateBuilder {
	return psql.Update("users").
		Set("username", u.Username).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("email", u.Email).
		Set("role", string(u.Role)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": u.ID}).
		Suffix("RETURNING telegram_id, created_at, updated_at")
}

func (p *Postgres) UpdateUser(ctx context.Context, u *User) error {
	query, args, err := updateUserQuery(u).ToSql()
	if err != nil {
		return err
	}
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&u.TelegramID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return notFound(err)
	}
	return nil
}

// DeleteUser удаляет пользователя; подписки удаляются каскадом
func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	query, args, err := psql.Delete("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func listPlansQuery(activeOnly bool) sq.SelectBuilder {
	q := psql.Select(planColumns...).From("plans").OrderBy("price ASC", "name ASC")
	if activeOnly {
		q = q.Where(sq.Eq{"active": true})
	}
	return q
}

func (p *Postgres) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	query, args, err := listPlansQuery(activeOnly).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения планов: %w", err)
	}
	defer rows.Close()

	plans := []Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (*Plan, error) {
	query, args, err := psql.Select(planColumns...).From("plans").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	plan, err := scanPlan(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return plan, nil
}

func (p *Postgres) CreatePlan(ctx context.Context, plan *Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("plans").
		Columns("id", "name", "description", "price", "duration_days", "traffic_gb", "device_limit", "inbound_id", "active").
		Values(plan.ID, plan.Name, plan.Description, plan.Price, plan.DurationDays, plan.TrafficGB, plan.DeviceLimit, plan.InboundID, plan.Active).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return fmt.Errorf("ошибка создания плана: %w", err)
	}
	return nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, s *Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("subscriptions").
		Columns("id", "user_id", "plan_id", "plan_name", "status", "start_date", "end_date", "client_id", "client_email", "inbound_id").
		Values(s.ID, s.UserID, s.PlanID, s.PlanName, string(s.Status), nullTime(s.StartDate), nullTime(s.EndDate), s.ClientID, s.ClientEmail, s.InboundID).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("ошибка создания подписки: %w", err)
	}
	return nil
}

func (p *Postgres) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	query, args, err := psql.Select(subColumns...).From("subscriptions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (p *Postgres) ListSubscriptionsByUser(ctx context.Context, userID string) ([]Subscription, error) {
	return p.listSubscriptions(ctx, psql.Select(subColumns...).From("subscriptions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC"))
}

func listSubscriptionsQuery(status SubscriptionStatus, limit, offset int) sq.SelectBuilder {
	q := psql.Select(subColumns...).From("subscriptions").OrderBy("created_at DESC")
	if status != "" {
		q = q.Where(sq.Eq{"status": string(status)})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

func (p *Postgres) ListSubscriptions(ctx context.Context, status SubscriptionStatus, limit, offset int) ([]Subscription, error) {
	return p.listSubscriptions(ctx, listSubscriptionsQuery(status, limit, offset))
}

func activeSubscriptionQuery(userID string, now time.Time) sq.SelectBuilder {
	return psql.Select(subColumns...).From("subscriptions").
		Where(sq.Eq{"user_id": userID, "status": string(StatusActive)}).
		Where(sq.Gt{"end_date": now}).
		OrderBy("end_date DESC").
		Limit(1)
}

func (p *Postgres) ActiveSubscription(ctx context.Context, userID string, now time.Time) (*Subscription, error) {
	query, args, err := activeSubscriptionQuery(userID, now).ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func updateSubscriptionQuery(s *Subscription) sq.UpdateBuilder {
	return psql.Update("subscriptions").
		Set("status", string(s.Status)).
		Set("start_date", nullTime(s.StartDate)).
		Set("end_date", nullTime(s.EndDate)).
		Set("client_id", s.ClientID).
		Set("client_email", s.ClientEmail).
		Set("inbound_id", s.InboundID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": s.ID}).
		Suffix("RETURNING created_at, updated_at")
}

func (p *Postgres) UpdateSubscription(ctx context.Context, s *Subscription) error {
	query, args, err := updateSubscriptionQuery(s).ToSql()
	if err != nil {
		return err
	}
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return notFound(err)
	}
	return nil
}

func expiredQuery(now time.Time) sq.SelectBuilder {
	return psql.Select(subColumns...).From("subscriptions").
		Where(sq.Eq{"status": string(StatusActive)}).
		Where(sq.LtOrEq{"end_date": now}).
		OrderBy("end_date ASC")
}

func (p *Postgres) ListExpired(ctx context.Context, now time.Time) ([]Subscription, error) {
	return p.listSubscriptions(ctx, expiredQuery(now))
}

func (p *Postgres) listSubscriptions(ctx context.Context, q sq.SelectBuilder) ([]Subscription, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения подписок: %w", err)
	}
	defer rows.Close()

	subs := []Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func scanPlan(row scanner) (*Plan, error) {
	var p Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.TrafficGB, &p.DeviceLimit, &p.InboundID, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanSubscription(row scanner) (*Subscription, error) {
	var s Subscription
	var status string
	var startDate, endDate sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &status, &startDate, &endDate,
		&s.ClientID, &s.ClientEmail, &s.InboundID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = SubscriptionStatus(status)
	if startDate.Valid {
		s.StartDate = &startDate.Time
	}
	if endDate.Valid {
		s.EndDate = &endDate.Time
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
