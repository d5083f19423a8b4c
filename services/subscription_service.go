package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpnbot/storage"
	"vpnbot/xui"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoActiveSubscription = errors.New("нет активной подписки")
	ErrPlanInactive         = errors.New("план недоступен для подписки")
	ErrInvalidStatus        = errors.New("недопустимый статус подписки")
	ErrInvalidTransition    = errors.New("операция недоступна для подписки в текущем статусе")
)

// Panel операции панели, которые нужны для выдачи доступа
type Panel interface {
	CreateClient(ctx context.Context, inboundID int, email string, deviceLimit int, expiryTimeMs int64) (*xui.CreateClientResult, error)
}

// SubscriptionService оформление, активация и продление подписок
type SubscriptionService struct {
	store            storage.Store
	panel            Panel
	defaultInboundID int
	now              func() time.Time
}

func NewSubscriptionService(store storage.Store, panel Panel, defaultInboundID int) *SubscriptionService {
	return &SubscriptionService{
		store:            store,
		panel:            panel,
		defaultInboundID: defaultInboundID,
		now:              time.Now,
	}
}

// Subscribe создает подписку в статусе pending. Доступ выдается при активации.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, planID string) (*storage.Subscription, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("пользователь %s: %w", userID, err)
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("план %s: %w", planID, err)
	}
	if !plan.Active {
		return nil, ErrPlanInactive
	}

	sub := &storage.Subscription{
		UserID:   userID,
		PlanID:   plan.ID,
		PlanName: plan.Name,
		Status:   storage.StatusPending,
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	log.Printf("SUBSCRIPTION: Создана подписка %s (план %s) для пользователя %s", sub.ID, plan.Name, userID)
	return sub, nil
}

// Activate выдает доступ в панели и переводит подписку pending в active
func (s *SubscriptionService) Activate(ctx context.Context, subscriptionID string) (*storage.Subscription, error) {
	sub, plan, user, err := s.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != storage.StatusPending {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, sub.Status)
	}

	start := s.now()
	end := start.Add(plan.Duration())
	if err := s.provision(ctx, sub, plan, user, end); err != nil {
		return nil, err
	}

	sub.Status = storage.StatusActive
	sub.StartDate = &start
	sub.EndDate = &end
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	log.Printf("SUBSCRIPTION: Подписка %s активирована до %s", sub.ID, end.Format(time.RFC3339))
	return sub, nil
}

// Renew продлевает подписку на длительность плана от более поздней из дат: сейчас или текущее окончание.
// В панели создается новый клиент с новым сроком.
func (s *SubscriptionService) Renew(ctx context.Context, subscriptionID string) (*storage.Subscription, error) {
	sub, plan, user, err := s.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != storage.StatusActive && sub.Status != storage.StatusExpired {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, sub.Status)
	}

	now := s.now()
	from := now
	if sub.EndDate != nil && sub.EndDate.After(now) {
		from = *sub.EndDate
	}
	end := from.Add(plan.Duration())

	if err := s.provision(ctx, sub, plan, user, end); err != nil {
		return nil, err
	}

	if sub.StartDate == nil || sub.Status == storage.StatusExpired {
		sub.StartDate = &now
	}
	sub.Status = storage.StatusActive
	sub.EndDate = &end
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	log.Printf("SUBSCRIPTION: Подписка %s продлена до %s", sub.ID, end.Format(time.RFC3339))
	return sub, nil
}

// UpdateStatus меняет статус подписки без обращения к панели
func (s *SubscriptionService) UpdateStatus(ctx context.Context, subscriptionID string, status storage.SubscriptionStatus) (*storage.Subscription, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	sub.Status = status
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	log.Printf("SUBSCRIPTION: Статус подписки %s изменен на %s", sub.ID, status)
	return sub, nil
}

// Status возвращает текущую активную подписку пользователя
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*storage.Subscription, error) {
	sub, err := s.store.ActiveSubscription(ctx, userID, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActiveSubscription
	}
	return sub, err
}

func (s *SubscriptionService) ListForUser(ctx context.Context, userID string) ([]storage.Subscription, error) {
	return s.store.ListSubscriptionsByUser(ctx, userID)
}

func (s *SubscriptionService) load(ctx context.Context, subscriptionID string) (*storage.Subscription, *storage.Plan, *storage.User, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, nil, nil, err
	}
	plan, err := s.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("план %s: %w", sub.PlanID, err)
	}
	user, err := s.store.GetUser(ctx, sub.UserID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("пользователь %s: %w", sub.UserID, err)
	}
	return sub, plan, user, nil
}

// provision создает клиента в панели и записывает его данные в подписку
func (s *SubscriptionService) provision(ctx context.Context, sub *storage.Subscription, plan *storage.Plan, user *storage.User, end time.Time) error {
	inboundID := plan.InboundID
	if inboundID == 0 {
		inboundID = s.defaultInboundID
	}
	email := s.clientEmail(user, sub)

	result, err := s.panel.CreateClient(ctx, inboundID, email, plan.DeviceLimit, end.UnixMilli())
	if err != nil {
		log.Printf("SUBSCRIPTION: Ошибка создания клиента в панели для подписки %s: %v", sub.ID, err)
		return fmt.Errorf("ошибка выдачи доступа: %w", err)
	}

	sub.ClientID = result.Client.ID
	sub.ClientEmail = email
	sub.InboundID = inboundID
	return nil
}

// clientEmail имя клиента в панели: email пользователя или "<telegram_id>-<id подписки>".
// Панель не допускает повторяющихся email, поэтому при продлении добавляется суффикс со временем.
func (s *SubscriptionService) clientEmail(user *storage.User, sub *storage.Subscription) string {
	email := user.Email
	if email == "" {
		email = fmt.Sprintf("%d-%s", user.TelegramID, sub.ID)
	}
	if sub.ClientEmail != "" {
		email = fmt.Sprintf("%s-%d", email, s.now().Unix())
	}
	return email
}
