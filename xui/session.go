package xui

import "time"

const (
	// TokenLifetime меньше заявленных панелью 24 часов, чтобы не ловить истечение на границе
	TokenLifetime = 12 * time.Hour
	// TokenSafetyMargin токен, истекающий раньше чем через этот запас, считается устаревшим
	TokenSafetyMargin = 10 * time.Second
)

// Session состояние авторизации клиента: настройки панели и кэшированный токен.
// Все переходы возвращают новое значение и не изменяют исходное.
type Session struct {
	Settings Settings
	Token    string
	Expiry   time.Time
	// Cookie означает, что токен является значением куки 3x-ui, а не bearer-токеном
	Cookie bool
}

// NewSession создает сессию без токена
func NewSession(settings Settings) Session {
	return Session{Settings: settings}
}

// Valid проверяет, можно ли использовать токен в момент now
func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && !s.Expiry.IsZero() && s.Expiry.After(now.Add(TokenSafetyMargin))
}

// WithSettings возвращает сессию с новыми настройками. Старый токен к новым настройкам
// не подходит, поэтому он сбрасывается всегда.
func (s Session) WithSettings(settings Settings) Session {
	return Session{Settings: settings}
}

// WithCredential возвращает сессию с токеном, полученным в момент now
func (s Session) WithCredential(cred Credential, now time.Time) Session {
	s.Token = cred.Token
	s.Cookie = cred.Cookie
	s.Expiry = now.Add(TokenLifetime)
	return s
}

// Cleared возвращает сессию с теми же настройками, но без токена
func (s Session) Cleared() Session {
	return Session{Settings: s.Settings}
}

// Credential учетные данные одного авторизованного запроса
type Credential struct {
	BaseURL string
	Token   string
	Cookie  bool
}

func (s Session) credential() Credential {
	return Credential{BaseURL: s.Settings.URL, Token: s.Token, Cookie: s.Cookie}
}
