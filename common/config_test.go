package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9001", cfg.PanelURL)
	assert.Equal(t, "admin", cfg.PanelUsername)
	assert.Equal(t, "admin", cfg.PanelPassword)
	assert.Equal(t, 1, cfg.DefaultInboundID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 100, cfg.RateLimitBurst)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "XUI_PANEL_URL=https://panel.example.com:2053\nADMIN_IDS=1,42\nSTORAGE_DRIVER=memory\nCACHE_TTL=30s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ENV_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Unsetenv("XUI_PANEL_URL")
		os.Unsetenv("ADMIN_IDS")
		os.Unsetenv("STORAGE_DRIVER")
		os.Unsetenv("CACHE_TTL")
	})

	assert.Equal(t, "https://panel.example.com:2053", cfg.PanelURL)
	assert.Equal(t, []int64{1, 42}, cfg.AdminIDs)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(7))
}

func validConfig() Config {
	return Config{
		PanelURL:            "http://localhost:9001",
		DefaultInboundID:    1,
		StorageDriver:       StorageDriverMemory,
		JWTSecret:           "0123456789abcdef0123",
		JWTTTL:              time.Hour,
		RateLimitRPS:        1,
		RateLimitBurst:      10,
		ExpiryCheckInterval: time.Minute,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"BadPanelURL", func(c *Config) { c.PanelURL = "localhost:9001" }, "XUI_PANEL_URL"},
		{"BadDriver", func(c *Config) { c.StorageDriver = "sqlite" }, "STORAGE_DRIVER"},
		{"NoJWTSecret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"ShortJWTSecret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"BadInbound", func(c *Config) { c.DefaultInboundID = 0 }, "DEFAULT_INBOUND_ID"},
		{"BadLogFormat", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"BadLogLevel", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_CollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.PanelURL = ""
	cfg.JWTSecret = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XUI_PANEL_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "vpn", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=vpn sslmode=require", p.DSN())
}
