package session

import (
	"context"
	"sync"
	"time"

	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// Provider идентифицирует вендора, для которого ведется сессия
type Provider string

const (
	// ProviderLock облачный API замков
	ProviderLock Provider = "lock"
	// ProviderMessaging API платформы сообщений
	ProviderMessaging Provider = "messaging"
)

// Token представляет выданный вендором токен доступа
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid сообщает, действителен ли токен на указанный момент
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Source выполняет получение и обновление токена у вендора
type Source interface {
	// Grant выполняет полную аутентификацию
	Grant(ctx context.Context) (*Token, error)
	// Refresh обменивает refresh token на новую пару токенов
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}

// Manager хранит токены вендоров и обновляет их по мере истечения.
// Обновление защищено мьютексом: параллельные обработчики не
// запускают конкурирующие запросы аутентификации.
type Manager struct {
	logger logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	sources map[Provider]Source
	tokens  map[Provider]*Token
}

// NewManager создает новый менеджер сессий
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		logger:  log,
		now:     time.Now,
		sources: make(map[Provider]Source),
		tokens:  make(map[Provider]*Token),
	}
}

// Register регистрирует источник токенов для вендора
func (m *Manager) Register(provider Provider, source Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[provider] = source
}

// AccessToken возвращает действующий токен вендора, при
// необходимости обновляя или заново получая его.
func (m *Manager) AccessToken(ctx context.Context, provider Provider) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := m.tokens[provider]
	if token.Valid(m.now()) {
		return token.AccessToken, nil
	}

	source, ok := m.sources[provider]
	if !ok {
		return "", errors.New(errors.ErrAuthFailure, "no token source registered for provider").
			WithDetails(string(provider))
	}

	if token != nil && token.RefreshToken != "" {
		refreshed, err := source.Refresh(ctx, token.RefreshToken)
		if err == nil && refreshed.Valid(m.now()) {
			m.tokens[provider] = refreshed
			m.logger.Debug("Vendor session refreshed", logger.String("provider", string(provider)))
			return refreshed.AccessToken, nil
		}
		m.logger.Warn("Token refresh failed, falling back to full grant",
			logger.String("provider", string(provider)),
			logger.Error(err))
	}

	granted, err := source.Grant(ctx)
	if err != nil {
		return "", err
	}
	if !granted.Valid(m.now()) {
		return "", errors.New(errors.ErrAuthFailure, "vendor grant returned no usable access token").
			WithDetails(string(provider))
	}

	m.tokens[provider] = granted
	m.logger.Info("Vendor session established", logger.String("provider", string(provider)))
	return granted.AccessToken, nil
}

// Invalidate сбрасывает токен вендора; следующий вызов AccessToken
// выполнит аутентификацию заново. Используется после ответа 401.
func (m *Manager) Invalidate(provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, provider)
}
