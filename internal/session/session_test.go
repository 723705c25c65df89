package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...logger.Field)    {}
func (noopLogger) Info(msg string, fields ...logger.Field)     {}
func (noopLogger) Warn(msg string, fields ...logger.Field)     {}
func (noopLogger) Error(msg string, fields ...logger.Field)    {}
func (n noopLogger) With(fields ...logger.Field) logger.Logger { return n }
func (noopLogger) Sync() error                                 { return nil }

// fakeSource источник токенов с программируемыми ответами
type fakeSource struct {
	grantToken   *Token
	grantErr     error
	grantCalls   int
	refreshToken *Token
	refreshErr   error
	refreshCalls int
	gotRefresh   string
}

func (f *fakeSource) Grant(ctx context.Context) (*Token, error) {
	f.grantCalls++
	return f.grantToken, f.grantErr
}

func (f *fakeSource) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	f.refreshCalls++
	f.gotRefresh = refreshToken
	return f.refreshToken, f.refreshErr
}

func newTestManager(now time.Time) *Manager {
	mgr := NewManager(noopLogger{})
	mgr.now = func() time.Time { return now }
	return mgr
}

func TestManager_AccessToken_FullGrant(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mgr := newTestManager(now)

	source := &fakeSource{grantToken: &Token{
		AccessToken:  "tok-1",
		RefreshToken: "ref-1",
		ExpiresAt:    now.Add(time.Hour),
	}}
	mgr.Register(ProviderLock, source)

	token, err := mgr.AccessToken(context.Background(), ProviderLock)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, source.grantCalls)
}

func TestManager_AccessToken_CachedWhileValid(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mgr := newTestManager(now)

	source := &fakeSource{grantToken: &Token{
		AccessToken: "tok-1",
		ExpiresAt:   now.Add(time.Hour),
	}}
	mgr.Register(ProviderLock, source)

	for i := 0; i < 3; i++ {
		token, err := mgr.AccessToken(context.Background(), ProviderLock)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", token)
	}

	assert.Equal(t, 1, source.grantCalls)
	assert.Equal(t, 0, source.refreshCalls)
}

func TestManager_AccessToken_RefreshOnExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mgr := newTestManager(now)

	source := &fakeSource{
		grantToken: &Token{
			AccessToken:  "tok-1",
			RefreshToken: "ref-1",
			ExpiresAt:    now.Add(time.Minute),
		},
		refreshToken: &Token{
			AccessToken:  "tok-2",
			RefreshToken: "ref-2",
			ExpiresAt:    now.Add(2 * time.Hour),
		},
	}
	mgr.Register(ProviderLock, source)

	_, err := mgr.AccessToken(context.Background(), ProviderLock)
	require.NoError(t, err)

	// Токен истек, должен использоваться refresh grant
	mgr.now = func() time.Time { return now.Add(time.Hour) }

	token, err := mgr.AccessToken(context.Background(), ProviderLock)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, 1, source.grantCalls)
	assert.Equal(t, 1, source.refreshCalls)
	assert.Equal(t, "ref-1", source.gotRefresh)
}

func TestManager_AccessToken_RefreshFailureFallsBackToGrant(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mgr := newTestManager(now)

	source := &fakeSource{
		grantToken: &Token{
			AccessToken:  "tok-new",
			RefreshToken: "ref-new",
			ExpiresAt:    now.Add(time.Hour),
		},
		refreshErr: errors.New(errors.ErrAuthFailure, "refresh rejected"),
	}
	mgr.Register(ProviderLock, source)
	mgr.tokens[ProviderLock] = &Token{
		AccessToken:  "tok-old",
		RefreshToken: "ref-old",
		ExpiresAt:    now.Add(-time.Minute),
	}

	token, err := mgr.AccessToken(context.Background(), ProviderLock)
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
	assert.Equal(t, 1, source.refreshCalls)
	assert.Equal(t, 1, source.grantCalls)
}

func TestManager_AccessToken_EmptyGrant(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mgr := newTestManager(now)

	source := &fakeSource{grantToken: &Token{ExpiresAt: now.Add(time.Hour)}}
	mgr.Register(ProviderMessaging, source)

	_, err := mgr.AccessToken(context.Background(), ProviderMessaging)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthFailure))
}

func TestManager_AccessToken_UnregisteredProvider(t *testing.T) {
	mgr := newTestManager(time.Now())

	_, err := mgr.AccessToken(context.Background(), ProviderLock)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthFailure))
}

func TestManager_Invalidate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mgr := newTestManager(now)

	source := &fakeSource{grantToken: &Token{
		AccessToken: "tok-1",
		ExpiresAt:   now.Add(time.Hour),
	}}
	mgr.Register(ProviderLock, source)

	_, err := mgr.AccessToken(context.Background(), ProviderLock)
	require.NoError(t, err)

	mgr.Invalidate(ProviderLock)

	_, err = mgr.AccessToken(context.Background(), ProviderLock)
	require.NoError(t, err)
	assert.Equal(t, 2, source.grantCalls)
}
