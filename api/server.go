package api

import (
	"context"
	"net/http"
	"time"

	"vpnbot/cache"
	"vpnbot/services"
	"vpnbot/storage"
	"vpnbot/xui"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	cacheKeyPlans    = "plans:active"
	cacheKeyInbounds = "panel:inbounds"
)

// PanelAPI операции панели 3x-ui, доступные через API
type PanelAPI interface {
	Settings() xui.Settings
	IsTokenValid() bool
	UpdateSettings(settings xui.Settings)
	TestConnection(ctx context.Context, override xui.Settings) error
	Probe(ctx context.Context, target string) error
	GetInbounds(ctx context.Context) ([]xui.Inbound, error)
	GetInbound(ctx context.Context, inboundID int) (*xui.Inbound, error)
	CreateClient(ctx context.Context, inboundID int, email string, deviceLimit int, expiryTimeMs int64) (*xui.CreateClientResult, error)
	CreateSimilarClient(ctx context.Context, template xui.Inbound, email string) (*xui.CreateClientResult, error)
}

// SettingsSaver сохраняет настройки панели между перезапусками
type SettingsSaver interface {
	Save(settings xui.Settings) error
}

// Deps зависимости HTTP API
type Deps struct {
	Store         storage.Store
	Subscriptions *services.SubscriptionService
	Panel         PanelAPI
	PanelSettings SettingsSaver // может быть nil
	Cache         cache.Cache   // может быть nil
	CacheTTL      time.Duration
	Auth          *Auth
	Limiter       *RateLimiter // может быть nil
	Registry      *prometheus.Registry
	Version       string

	// TrustProxy разрешает брать адрес клиента из X-Forwarded-For и X-Real-IP.
	// Включать только за известным обратным прокси.
	TrustProxy bool
}

// Server HTTP API администратора
type Server struct {
	deps     Deps
	validate *validator.Validate
	metrics  *httpMetrics
}

func NewServer(deps Deps) *Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 5 * time.Minute
	}
	return &Server{
		deps:     deps,
		validate: newValidator(),
		metrics:  newHTTPMetrics(deps.Registry),
	}
}

// Handler собирает маршруты API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if s.deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(requestLogger(s.metrics))
	r.Use(chimw.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		if s.deps.Limiter != nil {
			r.Use(s.deps.Limiter.Middleware)
		}

		r.Get("/", s.info)
		r.Post("/auth/login", s.login)
		r.Get("/plans", s.listPlans)
		r.Get("/plans/{id}", s.getPlan)

		r.Group(func(r chi.Router) {
			r.Use(s.deps.Auth.RequireAdmin)

			r.Post("/plans", s.createPlan)

			r.Get("/users", s.listUsers)
			r.Get("/users/{id}", s.getUser)
			r.Put("/users/{id}", s.updateUser)
			r.Delete("/users/{id}", s.deleteUser)
			r.Get("/users/{id}/subscriptions", s.listUserSubscriptions)

			r.Get("/subscriptions", s.listSubscriptions)
			r.Post("/subscriptions", s.createSubscription)
			r.Get("/subscriptions/{id}", s.getSubscription)
			r.Patch("/subscriptions/{id}/status", s.updateSubscriptionStatus)
			r.Post("/subscriptions/{id}/activate", s.activateSubscription)
			r.Post("/subscriptions/{id}/renew", s.renewSubscription)

			r.Get("/panel/settings", s.getPanelSettings)
			r.Put("/panel/settings", s.updatePanelSettings)
			r.Post("/panel/test", s.testPanel)
			r.Get("/panel/inbounds", s.listInbounds)
			r.Post("/panel/inbounds/{id}/clients", s.createPanelClient)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "маршрут не найден"})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(startedAt).Round(time.Second).String(),
	})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "VPN subscription API", map[string]any{
		"version": s.deps.Version,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, expires, err := s.deps.Auth.Login(req.Username, req.Password)
	if err != nil {
		log.Printf("API: Неудачная попытка входа администратора %q с %s", req.Username, r.RemoteAddr)
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

// cached отдает закэшированный ответ или строит его через load
func (s *Server) cached(w http.ResponseWriter, r *http.Request, key string, load func() (any, error)) {
	ctx := r.Context()
	if s.deps.Cache != nil {
		body, ok, err := s.deps.Cache.Get(ctx, key)
		if err != nil {
			log.Printf("API: Ошибка чтения кэша %s: %v", key, err)
		} else if ok {
			w.Header().Set("X-Cache", "HIT")
			writeRaw(w, http.StatusOK, body)
			return
		}
	}

	data, err := load()
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := Response{Success: true, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	body, err := marshal(resp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, body, s.deps.CacheTTL); err != nil {
			log.Printf("API: Ошибка записи кэша %s: %v", key, err)
		}
		w.Header().Set("X-Cache", "MISS")
	}
	writeRaw(w, http.StatusOK, body)
}

func (s *Server) invalidate(ctx context.Context, keys ...string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Delete(ctx, keys...); err != nil {
		log.Printf("API: Ошибка очистки кэша %v: %v", keys, err)
	}
}

var startedAt = time.Now()
