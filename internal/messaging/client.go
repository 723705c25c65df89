package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"AccessBridgePlatform/internal/session"
	"AccessBridgePlatform/pkg/config"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// Client представляет клиента API платформы сообщений участникам
type Client struct {
	baseURL  string
	username string
	password string

	http     *http.Client
	sessions *session.Manager
	logger   logger.Logger
	now      func() time.Time
}

// Message представляет сообщение участнику коворкинга
type Message struct {
	CoworkerID int64
	Subject    string
	Body       string
}

// NewClient создает нового клиента платформы сообщений
func NewClient(cfg config.MessagingConfig, sessions *session.Manager, log logger.Logger) *Client {
	timeout, _ := config.ParseDuration(cfg.Timeout, 30*time.Second)

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
		sessions: sessions,
		logger:   log,
		now:      time.Now,
	}
}

// tokenResponse ответ эндпоинта api/token
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Grant выполняет password grant на платформе сообщений
func (c *Client) Grant(ctx context.Context) (*session.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.username)
	form.Set("password", c.password)

	return c.requestToken(ctx, form, nil)
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*session.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	headers := map[string]string{"client_id": c.username}
	return c.requestToken(ctx, form, headers)
}

func (c *Client) requestToken(ctx context.Context, form url.Values, headers map[string]string) (*session.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "failed to build messaging token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "messaging token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "failed to read messaging token response")
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "malformed messaging token response")
	}
	if token.AccessToken == "" {
		return nil, errors.New(errors.ErrAuthFailure, "messaging platform returned no access token")
	}

	return &session.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

// SendMessage отправляет сообщение участнику коворкинга
func (c *Client) SendMessage(ctx context.Context, msg Message) error {
	accessToken, err := c.sessions.AccessToken(ctx, session.ProviderMessaging)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("CoworkerId", strconv.FormatInt(msg.CoworkerID, 10))
	form.Set("Subject", msg.Subject)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/spaces/coworkermessages", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, errors.ErrTransportFailure, "failed to build coworker message request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrTransportFailure, "coworker message request failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrVendorRejected, "messaging platform rejected coworker message").
			WithDetails(fmt.Sprintf("status=%d coworker_id=%d", resp.StatusCode, msg.CoworkerID))
	}

	return nil
}

// HealthCheck проверяет доступность платформы сообщений получением токена
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.sessions.AccessToken(ctx, session.ProviderMessaging)
	return err
}
