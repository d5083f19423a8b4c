package xui

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	pathLogin     = "/login"
	pathInbounds  = "/panel/api/inbounds"
	pathAddClient = "/panel/api/inbounds/addClient"

	sessionCookieName = "3x-ui"

	// DefaultMaxRetries сколько раз выполняется запрос, если панель отвечает 401
	DefaultMaxRetries = 3

	ProbeTimeout = 5 * time.Second
	LoginTimeout = 10 * time.Second
	DataTimeout  = 15 * time.Second
)

// Client клиент API панели 3x-ui с кэшированием токена сессии.
// Один экземпляр обслуживает одну панель; экземпляры независимы.
type Client struct {
	mu      sync.Mutex
	session Session
	logins  singleflight.Group

	http       *resty.Client
	now        func() time.Time
	newID      func() string
	maxRetries int
	observer   Observer
}

// Option настраивает Client
type Option func(*Client)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithMaxRetries задает бюджет попыток при ответе 401
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithInsecureTLS отключает проверку сертификата (панели часто работают на самоподписанных)
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.http.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
}

// WithHTTPClient использует переданный http.Client как транспорт
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = newResty(resty.NewWithClient(hc))
	}
}

// WithIDGenerator подменяет генератор идентификаторов клиентов
func WithIDGenerator(gen func() string) Option {
	return func(c *Client) { c.newID = gen }
}

// WithObserver подключает сбор метрик запросов
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New создает клиент панели с указанными настройками
func New(settings Settings, opts ...Option) *Client {
	c := &Client{
		session:    NewSession(settings),
		http:       newResty(resty.New()),
		now:        time.Now,
		newID:      NewClientID,
		maxRetries: DefaultMaxRetries,
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newResty(r *resty.Client) *resty.Client {
	return r.
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
}

// Settings возвращает текущие настройки подключения
func (c *Client) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Settings
}

// Snapshot возвращает копию состояния сессии
func (c *Client) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// IsTokenValid проверяет, что токен есть и не истекает в ближайшие TokenSafetyMargin
func (c *Client) IsTokenValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Valid(c.now())
}

// UpdateSettings заменяет настройки и сбрасывает токен
func (c *Client) UpdateSettings(settings Settings) {
	c.mu.Lock()
	c.session = c.session.WithSettings(settings)
	c.mu.Unlock()
	log.Printf("XUI_SETTINGS: Настройки панели обновлены, URL=%s, Username=%s", settings.URL, settings.Username)
}

// Login авторизуется в панели и сохраняет токен
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	settings := c.session.Settings
	c.mu.Unlock()

	cred, err := c.login(ctx, settings)
	if err != nil {
		return err
	}
	c.storeCredential(settings, cred)
	return nil
}

// TestConnection пробует авторизоваться с переданными настройками (пустые поля берутся из
// текущих). При успехе новые настройки и токен становятся активными, при ошибке состояние
// клиента не меняется.
func (c *Client) TestConnection(ctx context.Context, override Settings) error {
	c.mu.Lock()
	candidate := c.session.WithSettings(c.session.Settings.merge(override))
	c.mu.Unlock()

	log.Printf("XUI_TEST: Проверка подключения к %s", candidate.Settings.URL)
	cred, err := c.login(ctx, candidate.Settings)
	if err != nil {
		log.Printf("XUI_TEST: Проверка не удалась, настройки не изменены: %v", err)
		return err
	}

	c.mu.Lock()
	c.session = candidate.WithCredential(cred, c.now())
	c.mu.Unlock()
	log.Printf("XUI_TEST: Подключение успешно, настройки применены")
	return nil
}

// Probe проверяет сетевую доступность панели HEAD-запросом. Пустой target означает текущий URL.
func (c *Client) Probe(ctx context.Context, target string) error {
	if target == "" {
		target = c.Settings().URL
	}
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", "vpnbot-probe/1.0").
		Head(target)
	if err != nil {
		xerr := transportError(target, err)
		c.observer.ObserveRequest("probe", xerr.Code, time.Since(start))
		log.Printf("XUI_PROBE: Панель недоступна %s: %v", target, err)
		return xerr
	}
	c.observer.ObserveRequest("probe", "", time.Since(start))
	return nil
}

// GetInbounds возвращает список inbounds панели
func (c *Client) GetInbounds(ctx context.Context) ([]Inbound, error) {
	var inbounds []Inbound
	err := c.authenticatedRequest(ctx, "get_inbounds", func(ctx context.Context, cred Credential) error {
		var body inboundsResponse
		if err := c.do(ctx, cred, http.MethodGet, pathInbounds, nil, &body); err != nil {
			return err
		}
		if !body.Success {
			return &Error{Message: messageOr(body.Msg, "не удалось получить список inbounds"), Code: CodePanelRejected}
		}
		inbounds = body.Obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	if inbounds == nil {
		inbounds = []Inbound{}
	}
	return inbounds, nil
}

// GetInbound ищет inbound по ID в общем списке
func (c *Client) GetInbound(ctx context.Context, inboundID int) (*Inbound, error) {
	inbounds, err := c.GetInbounds(ctx)
	if err != nil {
		return nil, err
	}
	for i := range inbounds {
		if inbounds[i].ID == inboundID {
			return &inbounds[i], nil
		}
	}
	return nil, &Error{Message: "inbound не найден", Code: CodePanelRejected, Status: http.StatusNotFound}
}

// CreateClient добавляет нового клиента в inbound. expiryTimeMs = 0 означает бессрочный доступ,
// deviceLimit = 0 снимает ограничение по IP.
func (c *Client) CreateClient(ctx context.Context, inboundID int, email string, deviceLimit int, expiryTimeMs int64) (*CreateClientResult, error) {
	entry := NewClientEntry(c.newID(), email, deviceLimit, expiryTimeMs)
	return c.addClient(ctx, inboundID, entry)
}

// CreateSimilarClient создает клиента по образцу inbound с учетом протокола
func (c *Client) CreateSimilarClient(ctx context.Context, template Inbound, email string) (*CreateClientResult, error) {
	entry := NewClientEntry(c.newID(), email, 0, 0)
	if template.Protocol == "vless" {
		flow := ""
		entry.Flow = &flow
	}
	return c.addClient(ctx, template.ID, entry)
}

// NewClientEntry собирает запись клиента для settings.clients
func NewClientEntry(id, email string, deviceLimit int, expiryTimeMs int64) ClientEntry {
	return ClientEntry{
		ID:         id,
		Email:      email,
		LimitIP:    deviceLimit,
		TotalGB:    0,
		ExpiryTime: expiryTimeMs,
		Enable:     true,
	}
}

func (c *Client) addClient(ctx context.Context, inboundID int, entry ClientEntry) (*CreateClientResult, error) {
	settingsJSON, err := json.Marshal(InboundSettings{Clients: []ClientEntry{entry}})
	if err != nil {
		return nil, &Error{Message: "ошибка сериализации settings клиента", Code: CodeUnknown, Err: err}
	}
	payload := addClientRequest{ID: inboundID, Settings: string(settingsJSON)}

	log.Printf("XUI_ADD_CLIENT: Добавление клиента: InboundID=%d, ClientID=%s, Email=%s, LimitIP=%d, ExpiryTime=%d",
		inboundID, entry.ID, entry.Email, entry.LimitIP, entry.ExpiryTime)

	var result *CreateClientResult
	err = c.authenticatedRequest(ctx, "add_client", func(ctx context.Context, cred Credential) error {
		var body apiResponse
		if err := c.do(ctx, cred, http.MethodPost, pathAddClient, payload, &body); err != nil {
			return err
		}
		if !body.Success {
			return &Error{Message: messageOr(body.Msg, "панель отклонила добавление клиента"), Code: CodePanelRejected}
		}
		result = &CreateClientResult{Success: true, Msg: body.Msg, InboundID: inboundID, Client: entry}
		return nil
	})
	if err != nil {
		log.Printf("XUI_ADD_CLIENT: Ошибка добавления клиента %s: %v", entry.Email, err)
		return nil, err
	}
	log.Printf("XUI_ADD_CLIENT: Клиент добавлен: InboundID=%d, ClientID=%s", inboundID, entry.ID)
	return result, nil
}

type requestFunc func(ctx context.Context, cred Credential) error

// authenticatedRequest выполняет op с действующим токеном. При 401 токен сбрасывается и
// последовательность повторяется; бюджет попыток свой у каждого вызова.
func (c *Client) authenticatedRequest(ctx context.Context, op string, fn requestFunc) error {
	return c.attempt(ctx, op, fn, c.maxRetries)
}

func (c *Client) attempt(ctx context.Context, op string, fn requestFunc, attemptsLeft int) error {
	cred, err := c.credential(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	err = fn(ctx, cred)
	c.observer.ObserveRequest(op, CodeOf(err), time.Since(start))
	if err == nil {
		return nil
	}
	if !isUnauthorized(err) {
		return err
	}

	c.invalidate(cred)
	attemptsLeft--
	if attemptsLeft <= 0 {
		log.Printf("XUI_AUTH: Панель продолжает отвечать 401 на %s, попытки исчерпаны", op)
		return &Error{
			Message: "панель отклоняет сессию после повторной авторизации",
			Code:    CodeUnauthorized,
			Status:  http.StatusUnauthorized,
			Err:     err,
		}
	}
	log.Printf("XUI_AUTH: Токен отклонен панелью на %s, повторная авторизация (осталось попыток: %d)", op, attemptsLeft)
	return c.attempt(ctx, op, fn, attemptsLeft)
}

// credential возвращает действующий токен, при необходимости выполняя вход.
// Одновременные вызовы с просроченным токеном ждут один общий вход.
func (c *Client) credential(ctx context.Context) (Credential, error) {
	if cred, ok := c.validCredential(); ok {
		return cred, nil
	}

	// Общий вход не зависит от отмены контекста конкретного вызывающего,
	// его срок ограничен LoginTimeout.
	loginCtx := context.WithoutCancel(ctx)
	ch := c.logins.DoChan("login", func() (any, error) {
		c.mu.Lock()
		session := c.session
		valid := session.Valid(c.now())
		c.mu.Unlock()
		if valid {
			return session.credential(), nil
		}

		cred, err := c.login(loginCtx, session.Settings)
		if err != nil {
			return Credential{}, err
		}
		c.storeCredential(session.Settings, cred)
		return cred, nil
	})

	select {
	case <-ctx.Done():
		return Credential{}, contextError(ctx.Err())
	case res := <-ch:
		if res.Shared {
			log.Debugf("XUI_AUTH: Использован результат общей авторизации")
		}
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

func (c *Client) validCredential() (Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Valid(c.now()) {
		return Credential{}, false
	}
	return c.session.credential(), true
}

// storeCredential сохраняет токен, только если настройки не поменялись во время входа
func (c *Client) storeCredential(settings Settings, cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Settings != settings {
		log.Printf("XUI_LOGIN: Настройки изменились во время авторизации, токен не сохранен")
		return
	}
	c.session = c.session.WithCredential(cred, c.now())
}

// invalidate сбрасывает токен, если он все еще тот, что отклонила панель
func (c *Client) invalidate(cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Token == cred.Token {
		c.session = c.session.Cleared()
	}
}

// login выполняет POST /login и возвращает токен, не трогая состояние клиента
func (c *Client) login(ctx context.Context, settings Settings) (Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, LoginTimeout)
	defer cancel()

	target := endpoint(settings.URL, pathLogin)
	log.Printf("XUI_LOGIN: Начало авторизации в панели, URL=%s, Username=%s", target, settings.Username)

	start := time.Now()
	cred, err := c.doLogin(ctx, settings, target)
	c.observer.ObserveRequest("login", CodeOf(err), time.Since(start))
	if err != nil {
		log.Printf("XUI_LOGIN: Авторизация не удалась: %v", err)
		return Credential{}, err
	}
	log.Printf("XUI_LOGIN: Успешная авторизация, URL=%s", settings.URL)
	return cred, nil
}

func (c *Client) doLogin(ctx context.Context, settings Settings, target string) (Credential, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Username: settings.Username, Password: settings.Password}).
		Post(target)
	if err != nil {
		return Credential{}, transportError(target, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return Credential{}, &Error{Message: "неверный логин или пароль панели", Code: CodeAuthFailed, Status: resp.StatusCode()}
	}
	if !resp.IsSuccess() {
		return Credential{}, statusError(target, resp.StatusCode())
	}

	body := resp.Body()
	if len(body) == 0 {
		return Credential{}, &Error{Message: "пустой ответ от сервера", Code: CodeBadResponse, Status: resp.StatusCode()}
	}

	var loginResp loginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return Credential{}, &Error{Message: "ошибка десериализации ответа авторизации", Code: CodeBadResponse, Status: resp.StatusCode(), Err: err}
	}
	if !loginResp.Success {
		return Credential{}, &Error{Message: messageOr(loginResp.Msg, "авторизация не удалась"), Code: CodeAuthFailed, Status: resp.StatusCode()}
	}

	if loginResp.Token != "" {
		return Credential{BaseURL: settings.URL, Token: loginResp.Token}, nil
	}

	// Настоящие панели 3x-ui отдают сессию кукой
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			return Credential{BaseURL: settings.URL, Token: cookie.Value, Cookie: true}, nil
		}
	}
	return Credential{}, &Error{Message: "токен сессии не найден в ответе панели", Code: CodeBadResponse, Status: resp.StatusCode()}
}

// do выполняет авторизованный запрос и декодирует JSON-ответ в dst
func (c *Client) do(ctx context.Context, cred Credential, method, path string, payload any, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, DataTimeout)
	defer cancel()

	target := endpoint(cred.BaseURL, path)
	req := c.http.R().SetContext(ctx)
	if cred.Cookie {
		req.SetCookie(&http.Cookie{Name: sessionCookieName, Value: cred.Token})
	} else {
		req.SetAuthToken(cred.Token)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		return transportError(target, err)
	}
	if !resp.IsSuccess() {
		return statusError(target, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return &Error{Message: "неожиданный формат ответа панели", Code: CodeBadResponse, Status: resp.StatusCode(), Err: err}
	}
	return nil
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}
