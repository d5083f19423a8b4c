package app

import (
	"context"
	"fmt"

	"vpnbot/api"
	"vpnbot/cache"
	"vpnbot/common"
	"vpnbot/services"
	"vpnbot/storage"
	"vpnbot/xui"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// App общие зависимости всех компонентов
type App struct {
	Config        *common.Config
	Store         storage.Store
	Cache         cache.Cache
	Panel         *xui.Client
	PanelSettings *xui.FileSettingsStore
	Subscriptions *services.SubscriptionService
	Registry      *prometheus.Registry

	closers []func() error
}

// InitializeApp подключает хранилище, кэш и клиент панели
func InitializeApp(ctx context.Context, cfg *common.Config) (*App, error) {
	log.Printf("APP: Инициализация приложения")

	a := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if cfg.RedisAddr != "" {
		r, err := cache.Open(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
		}
		log.Printf("APP: Кэш Redis подключен, %s", cfg.RedisAddr)
		a.Cache = r
		a.closers = append(a.closers, r.Close)
	} else {
		log.Printf("APP: REDIS_ADDR не задан, используется кэш в памяти")
		a.Cache = cache.NewMemory()
	}

	panel, settingsStore, err := NewPanel(cfg, a.Registry)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Panel = panel
	a.PanelSettings = settingsStore
	a.Subscriptions = services.NewSubscriptionService(a.Store, a.Panel, cfg.DefaultInboundID)

	log.Printf("APP: Приложение инициализировано")
	return a, nil
}

func openStore(ctx context.Context, cfg *common.Config) (storage.Store, error) {
	if cfg.StorageDriver == common.StorageDriverMemory {
		log.Warnf("APP: Используется хранилище в памяти, данные не сохранятся после перезапуска")
		return storage.NewMemory(), nil
	}

	log.Printf("APP: Подключение к PostgreSQL %s:%d/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
	pg, err := storage.OpenPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("ошибка миграции схемы: %w", err)
	}
	log.Printf("APP: PostgreSQL подключен, схема актуальна")
	return pg, nil
}

// NewPanel создает клиент панели. Сохраненные через API настройки важнее переменных окружения.
// reg может быть nil.
func NewPanel(cfg *common.Config, reg prometheus.Registerer) (*xui.Client, *xui.FileSettingsStore, error) {
	settings := xui.Settings{URL: cfg.PanelURL, Username: cfg.PanelUsername, Password: cfg.PanelPassword}

	var settingsStore *xui.FileSettingsStore
	if cfg.PanelSettingsFile != "" {
		settingsStore = xui.NewFileSettingsStore(cfg.PanelSettingsFile)
		saved, ok, err := settingsStore.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка чтения настроек панели: %w", err)
		}
		if ok {
			log.Printf("APP: Настройки панели загружены из %s", cfg.PanelSettingsFile)
			settings = saved
		}
	}

	var opts []xui.Option
	if reg != nil {
		opts = append(opts, xui.WithObserver(xui.NewPrometheusObserver(reg)))
	}
	if cfg.PanelInsecureTLS {
		log.Warnf("APP: Проверка TLS-сертификата панели отключена")
		opts = append(opts, xui.WithInsecureTLS())
	}
	return xui.New(settings, opts...), settingsStore, nil
}

// APIServer собирает HTTP API поверх зависимостей приложения
func (a *App) APIServer(version string) *api.Server {
	deps := api.Deps{
		Store:         a.Store,
		Subscriptions: a.Subscriptions,
		Panel:         a.Panel,
		Cache:         a.Cache,
		CacheTTL:      a.Config.CacheTTL,
		Auth:          api.NewAuth(a.Config.JWTSecret, a.Config.JWTTTL, a.Config.AdminUsername, a.Config.AdminPasswordHash),
		Limiter:       api.NewRateLimiter(a.Config.RateLimitRPS, a.Config.RateLimitBurst),
		TrustProxy:    a.Config.TrustProxy,
		Registry:      a.Registry,
		Version:       version,
	}
	if a.PanelSettings != nil {
		deps.PanelSettings = a.PanelSettings
	}
	return api.NewServer(deps)
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("APP: Ошибка закрытия ресурса: %v", err)
		}
	}
	a.closers = nil
}
