package common

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config конфигурация приложения. Значения берутся из окружения, .env подгружается заранее.
type Config struct {
	// Telegram
	BotToken    string  `env:"BOT_TOKEN"`
	AdminIDs    []int64 `env:"ADMIN_IDS" env-separator:","`
	SupportLink string  `env:"SUPPORT_LINK" env-default:"https://t.me/support"`

	// Панель 3x-ui
	PanelURL          string `env:"XUI_PANEL_URL" env-default:"http://localhost:9001"`
	PanelUsername     string `env:"XUI_USERNAME" env-default:"admin"`
	PanelPassword     string `env:"XUI_PASSWORD" env-default:"admin"`
	PanelSettingsFile string `env:"XUI_SETTINGS_FILE" env-default:"data/panel_settings.json"`
	PanelInsecureTLS  bool   `env:"XUI_INSECURE_TLS" env-default:"false"`
	DefaultInboundID  int    `env:"DEFAULT_INBOUND_ID" env-default:"1"`
	ConfigBaseURL     string `env:"CONFIG_BASE_URL"`

	// HTTP API
	HTTPAddr          string        `env:"HTTP_ADDR" env-default:":8080"`
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTTTL            time.Duration `env:"JWT_TTL" env-default:"24h"`
	AdminUsername     string        `env:"ADMIN_USERNAME" env-default:"admin"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	RateLimitRPS      float64       `env:"RATE_LIMIT_RPS" env-default:"0.1111"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" env-default:"100"`
	TrustProxy        bool          `env:"TRUST_PROXY" env-default:"false"`

	// Хранилище
	StorageDriver string `env:"STORAGE_DRIVER" env-default:"postgres"`
	Postgres      PostgresConfig

	// Кэш
	RedisAddr string        `env:"REDIS_ADDR"`
	CacheTTL  time.Duration `env:"CACHE_TTL" env-default:"5m"`

	ExpiryCheckInterval time.Duration `env:"EXPIRY_CHECK_INTERVAL" env-default:"10m"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`
}

// PostgresConfig параметры подключения к PostgreSQL
type PostgresConfig struct {
	Host     string `env:"PG_HOST" env-default:"localhost"`
	Port     int    `env:"PG_PORT" env-default:"5432"`
	User     string `env:"PG_USER" env-default:"vpn_bot_user"`
	Password string `env:"PG_PASSWORD"`
	DBName   string `env:"PG_DBNAME" env-default:"vpn_bot"`
	SSLMode  string `env:"PG_SSLMODE" env-default:"disable"`
}

// DSN строка подключения в формате lib/pq
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// LoadConfig читает .env (путь можно задать через ENV_FILE) и переменные окружения
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("ошибка чтения %s: %w", envFile, err)
		}
		log.Debugf("CONFIG: Файл %s не найден, используются переменные окружения", envFile)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}
	return &cfg, nil
}

// Validate проверяет конфигурацию и возвращает все найденные проблемы одной ошибкой
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.PanelURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("XUI_PANEL_URL должен быть http(s) адресом, получено %q", c.PanelURL))
	}
	if c.DefaultInboundID <= 0 {
		errs = append(errs, errors.New("DEFAULT_INBOUND_ID должен быть положительным"))
	}
	if c.StorageDriver != StorageDriverPostgres && c.StorageDriver != StorageDriverMemory {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER должен быть %s или %s, получено %q",
			StorageDriverPostgres, StorageDriverMemory, c.StorageDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET не задан"))
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET должен быть не короче 16 символов"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL должен быть положительным"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS и RATE_LIMIT_BURST должны быть положительными"))
	}
	if c.ExpiryCheckInterval <= 0 {
		errs = append(errs, errors.New("EXPIRY_CHECK_INTERVAL должен быть положительным"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT должен быть text или json, получено %q", c.LogFormat))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// IsAdmin проверяет, входит ли telegram id в список администраторов
func (c *Config) IsAdmin(telegramID int64) bool {
	return slices.Contains(c.AdminIDs, telegramID)
}
