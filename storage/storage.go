package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("запись не найдена")

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type SubscriptionStatus string

const (
	StatusPending  SubscriptionStatus = "pending"
	StatusActive   SubscriptionStatus = "active"
	StatusExpired  SubscriptionStatus = "expired"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Valid проверяет, что статус из допустимого набора
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusCanceled:
		return true
	}
	return false
}

// User пользователь бота
type User struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Plan тарифный план
type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	DurationDays int       `json:"duration_days"`
	TrafficGB    int       `json:"traffic_gb"`
	DeviceLimit  int       `json:"device_limit"`
	InboundID    int       `json:"inbound_id,omitempty"` // 0 - inbound по умолчанию
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Duration длительность плана
func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// Subscription подписка пользователя на план
type Subscription struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	PlanID      string             `json:"plan_id"`
	PlanName    string             `json:"plan_name"`
	Status      SubscriptionStatus `json:"status"`
	StartDate   *time.Time         `json:"start_date,omitempty"`
	EndDate     *time.Time         `json:"end_date,omitempty"`
	ClientID    string             `json:"client_id,omitempty"`
	ClientEmail string             `json:"client_email,omitempty"`
	InboundID   int                `json:"inbound_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// IsActiveAt подписка активна и не истекла в момент now
func (s Subscription) IsActiveAt(now time.Time) bool {
	return s.Status == StatusActive && s.EndDate != nil && s.EndDate.After(now)
}

// Store хранилище пользователей, планов и подписок
type Store interface {
	// UpsertUser создает пользователя или обновляет профиль по telegram id
	UpsertUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
	// UpdateUser перезаписывает профиль и роль пользователя по id
	UpdateUser(ctx context.Context, u *User) error
	// DeleteUser удаляет пользователя вместе с его подписками
	DeleteUser(ctx context.Context, id string) error

	ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	CreatePlan(ctx context.Context, p *Plan) error

	CreateSubscription(ctx context.Context, s *Subscription) error
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]Subscription, error)
	// ListSubscriptions возвращает подписки всех пользователей, новые первыми.
	// Пустой status означает любой статус.
	ListSubscriptions(ctx context.Context, status SubscriptionStatus, limit, offset int) ([]Subscription, error)
	// ActiveSubscription возвращает активную подписку с самой поздней датой окончания
	ActiveSubscription(ctx context.Context, userID string, now time.Time) (*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	// ListExpired возвращает активные подписки с end_date <= now
	ListExpired(ctx context.Context, now time.Time) ([]Subscription, error)

	Migrate(ctx context.Context) error
	Close() error
}
