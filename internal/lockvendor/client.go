package lockvendor

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

// Коды ошибок вендора замков
const (
	// errcodeGatewayBusy шлюз замка занят другой операцией; единственный повторяемый код
	errcodeGatewayBusy = -3003
)

// Client представляет клиента облачного API вендора замков.
// Все запросы к API выполняются в form-encoded виде, ответы приходят
// в JSON; вендор сообщает об ошибках полем errcode при HTTP 200.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	username     string
	password     string
	pageSize     int

	http     *http.Client
	sessions *session.Manager
	logger   logger.Logger
	now      func() time.Time
}

// Lock представляет замок в ответе вендора
type Lock struct {
	LockID    int64  `json:"lockId"`
	LockMac   string `json:"lockMac"`
	LockAlias string `json:"lockAlias"`
}

// Passcode представляет код доступа в ответе вендора
type Passcode struct {
	KeyboardPwdID int64  `json:"keyboardPwdId"`
	KeyboardPwd   string `json:"keyboardPwd"`
	StartDate     int64  `json:"startDate"`
	EndDate       int64  `json:"endDate"`
}

// AddPasscodeRequest параметры выдачи кода доступа на замке
type AddPasscodeRequest struct {
	LockID  int64
	Code    int
	Name    string
	StartMs int64
	EndMs   int64
}

// NewClient создает нового клиента API вендора замков
func NewClient(cfg config.LockVendorConfig, sessions *session.Manager, log logger.Logger) *Client {
	timeout, _ := config.ParseDuration(cfg.Timeout, 30*time.Second)

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		password:     cfg.Password,
		pageSize:     cfg.PageSize,
		http:         &http.Client{Timeout: timeout},
		sessions:     sessions,
		logger:       log,
		now:          time.Now,
	}
}

// tokenResponse ответ эндпоинта oauth2/token
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	UID          int64  `json:"uid"`
}

// Grant выполняет полную аутентификацию у вендора замков
func (c *Client) Grant(ctx context.Context) (*session.Token, error) {
	form := url.Values{}
	form.Set("clientId", c.clientID)
	form.Set("clientSecret", c.clientSecret)
	form.Set("username", c.username)
	form.Set("password", c.password)

	return c.requestToken(ctx, form)
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*session.Token, error) {
	form := url.Values{}
	form.Set("clientId", c.clientID)
	form.Set("clientSecret", c.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*session.Token, error) {
	body, err := c.postForm(ctx, "/oauth2/token", form)
	if err != nil {
		return nil, err
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "malformed token response from lock vendor")
	}
	if token.AccessToken == "" {
		return nil, errors.New(errors.ErrAuthFailure, "lock vendor returned no access token")
	}

	return &session.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

// lockListResponse ответ эндпоинта v3/lock/list
type lockListResponse struct {
	Errcode int    `json:"errcode"`
	Errmsg  string `json:"errmsg"`
	List    []Lock `json:"list"`
}

// ListLocks возвращает страницу списка замков аккаунта.
// Пустой срез означает, что страницы закончились.
func (c *Client) ListLocks(ctx context.Context, pageNo int) ([]Lock, error) {
	accessToken, err := c.sessions.AccessToken(ctx, session.ProviderLock)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("clientId", c.clientID)
	query.Set("accessToken", accessToken)
	query.Set("pageNo", strconv.Itoa(pageNo))
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	query.Set("date", strconv.FormatInt(c.now().UnixMilli(), 10))

	body, err := c.get(ctx, "/v3/lock/list", query)
	if err != nil {
		return nil, err
	}

	var response lockListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "malformed lock list response")
	}
	if response.Errcode != 0 {
		return nil, vendorError(response.Errcode, response.Errmsg, "lock list request rejected")
	}

	return response.List, nil
}

// passcodeListResponse ответ эндпоинта v3/lock/listKeyboardPwd
type passcodeListResponse struct {
	Errcode int        `json:"errcode"`
	Errmsg  string     `json:"errmsg"`
	List    []Passcode `json:"list"`
}

// ListPasscodes возвращает страницу кодов доступа замка
func (c *Client) ListPasscodes(ctx context.Context, lockID int64, pageNo int) ([]Passcode, error) {
	accessToken, err := c.sessions.AccessToken(ctx, session.ProviderLock)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("clientId", c.clientID)
	query.Set("accessToken", accessToken)
	query.Set("lockId", strconv.FormatInt(lockID, 10))
	query.Set("pageNo", strconv.Itoa(pageNo))
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	query.Set("date", strconv.FormatInt(c.now().UnixMilli(), 10))

	body, err := c.get(ctx, "/v3/lock/listKeyboardPwd", query)
	if err != nil {
		return nil, err
	}

	var response passcodeListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "malformed passcode list response")
	}
	if response.Errcode != 0 {
		return nil, vendorError(response.Errcode, response.Errmsg, "passcode list request rejected")
	}

	return response.List, nil
}

// addPasscodeResponse ответ эндпоинта v3/keyboardPwd/add
type addPasscodeResponse struct {
	Errcode       int    `json:"errcode"`
	Errmsg        string `json:"errmsg"`
	KeyboardPwdID int64  `json:"keyboardPwdId"`
}

// AddPasscode выдает код доступа на замке через шлюз (addType=2).
// Возвращает идентификатор кода, присвоенный вендором.
func (c *Client) AddPasscode(ctx context.Context, req AddPasscodeRequest) (int64, error) {
	accessToken, err := c.sessions.AccessToken(ctx, session.ProviderLock)
	if err != nil {
		return 0, err
	}

	form := url.Values{}
	form.Set("clientId", c.clientID)
	form.Set("accessToken", accessToken)
	form.Set("lockId", strconv.FormatInt(req.LockID, 10))
	form.Set("keyboardPwd", strconv.Itoa(req.Code))
	form.Set("keyboardPwdName", req.Name)
	form.Set("startDate", strconv.FormatInt(req.StartMs, 10))
	form.Set("endDate", strconv.FormatInt(req.EndMs, 10))
	form.Set("addType", "2")
	form.Set("date", strconv.FormatInt(c.now().UnixMilli(), 10))

	body, err := c.postForm(ctx, "/v3/keyboardPwd/add", form)
	if err != nil {
		return 0, err
	}

	var response addPasscodeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, errors.Wrap(err, errors.ErrTransportFailure, "malformed add passcode response")
	}
	if response.KeyboardPwdID == 0 {
		return 0, vendorError(response.Errcode, response.Errmsg, "passcode issuance rejected")
	}

	return response.KeyboardPwdID, nil
}

// deletePasscodeResponse ответ эндпоинта v3/keyboardPwd/delete
type deletePasscodeResponse struct {
	Errcode int    `json:"errcode"`
	Errmsg  string `json:"errmsg"`
}

// DeletePasscode удаляет код доступа с замка через шлюз (deleteType=2)
func (c *Client) DeletePasscode(ctx context.Context, lockID, keyboardPwdID int64) error {
	accessToken, err := c.sessions.AccessToken(ctx, session.ProviderLock)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("clientId", c.clientID)
	form.Set("accessToken", accessToken)
	form.Set("lockId", strconv.FormatInt(lockID, 10))
	form.Set("keyboardPwdId", strconv.FormatInt(keyboardPwdID, 10))
	form.Set("deleteType", "2")
	form.Set("date", strconv.FormatInt(c.now().UnixMilli(), 10))

	body, err := c.postForm(ctx, "/v3/keyboardPwd/delete", form)
	if err != nil {
		return err
	}

	var response deletePasscodeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return errors.Wrap(err, errors.ErrTransportFailure, "malformed delete passcode response")
	}
	if response.Errcode != 0 {
		return vendorError(response.Errcode, response.Errmsg, "passcode deletion rejected")
	}

	return nil
}

// HealthCheck проверяет доступность API вендора получением токена
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.sessions.AccessToken(ctx, session.ProviderLock)
	return err
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "failed to build lock vendor request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "failed to build lock vendor request")
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "lock vendor request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTransportFailure, "failed to read lock vendor response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrVendorRejected, "lock vendor returned unexpected status").
			WithDetails(fmt.Sprintf("status=%d", resp.StatusCode))
	}

	return body, nil
}

// vendorError превращает errcode вендора в типизированную ошибку.
// Занятый шлюз (-3003) единственный код, допускающий повтор.
func vendorError(errcode int, errmsg, message string) *errors.Error {
	code := errors.ErrVendorRejected
	if errcode == errcodeGatewayBusy {
		code = errors.ErrGatewayBusy
	}
	return errors.New(code, message).
		WithDetails(fmt.Sprintf("errcode=%d errmsg=%s", errcode, errmsg))
}
