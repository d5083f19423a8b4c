package xui

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Settings параметры подключения к панели 3x-ui
type Settings struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// merge подставляет текущие значения вместо пустых полей override
func (s Settings) merge(override Settings) Settings {
	if override.URL != "" {
		s.URL = override.URL
	}
	if override.Username != "" {
		s.Username = override.Username
	}
	if override.Password != "" {
		s.Password = override.Password
	}
	return s
}

// ClientEntry клиент внутри inbound (поле settings.clients)
type ClientEntry struct {
	ID         string  `json:"id"`
	Flow       *string `json:"flow,omitempty"` // указатель, чтобы для vless отправлять пустую строку явно
	Email      string  `json:"email"`
	LimitIP    int     `json:"limitIp"`
	TotalGB    int64   `json:"totalGB"`
	ExpiryTime int64   `json:"expiryTime"`
	Enable     bool    `json:"enable"`
	TgID       string  `json:"tgId,omitempty"`
	SubID      string  `json:"subId,omitempty"`
}

// InboundSettings структура для поля settings
type InboundSettings struct {
	Clients    []ClientEntry `json:"clients"`
	Decryption string        `json:"decryption,omitempty"`
}

// Inbound настроенная точка входа панели (протокол + порт)
type Inbound struct {
	ID             int             `json:"id"`
	Up             int64           `json:"up"`
	Down           int64           `json:"down"`
	Total          int64           `json:"total"`
	Remark         string          `json:"remark"`
	Enable         bool            `json:"enable"`
	ExpiryTime     int64           `json:"expiryTime"`
	Listen         string          `json:"listen"`
	Port           int             `json:"port"`
	Protocol       string          `json:"protocol"`
	Settings       string          `json:"settings"`
	StreamSettings string          `json:"streamSettings"`
	Tag            string          `json:"tag"`
	Sniffing       string          `json:"sniffing"`
	ClientStats    json.RawMessage `json:"clientStats,omitempty"`
}

// Clients разбирает JSON-строку settings и возвращает список клиентов inbound
func (in Inbound) Clients() ([]ClientEntry, error) {
	if in.Settings == "" {
		return nil, nil
	}
	var settings InboundSettings
	if err := json.Unmarshal([]byte(in.Settings), &settings); err != nil {
		return nil, fmt.Errorf("ошибка десериализации settings inbound %d: %w", in.ID, err)
	}
	return settings.Clients, nil
}

// CreateClientResult результат добавления клиента в inbound
type CreateClientResult struct {
	Success   bool        `json:"success"`
	Msg       string      `json:"msg"`
	InboundID int         `json:"inboundId"`
	Client    ClientEntry `json:"client"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Token   string `json:"token"`
}

type inboundsResponse struct {
	Success bool      `json:"success"`
	Msg     string    `json:"msg"`
	Obj     []Inbound `json:"obj"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

type addClientRequest struct {
	ID       int    `json:"id"`
	Settings string `json:"settings"`
}
