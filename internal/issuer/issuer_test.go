package issuer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/internal/lockvendor"
	"AccessBridgePlatform/pkg/config"
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

// scriptedAdder возвращает заранее подготовленные ответы по порядку
type scriptedAdder struct {
	responses  []error
	passcodeID int64
	requests   []lockvendor.AddPasscodeRequest
}

func (s *scriptedAdder) AddPasscode(ctx context.Context, req lockvendor.AddPasscodeRequest) (int64, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx < len(s.responses) && s.responses[idx] != nil {
		return 0, s.responses[idx]
	}
	return s.passcodeID, nil
}

func testWindow(t *testing.T) domain.AccessWindow {
	t.Helper()
	window, err := domain.ParseWindow("2026-03-10T09:00:00Z", "2026-03-10T17:00:00Z")
	require.NoError(t, err)
	return window
}

func newTestIssuer(vendor PasscodeAdder, maxAttempts int) (*Issuer, *[]time.Duration) {
	iss := New(vendor, ExponentialDelay{Initial: 10 * time.Second, Max: 2 * time.Minute}, maxAttempts, noopLogger{})

	var delays []time.Duration
	iss.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	iss.code = func() int { return 482913 }

	return iss, &delays
}

func TestIssuer_Issue_FirstAttempt(t *testing.T) {
	vendor := &scriptedAdder{passcodeID: 9001}
	iss, delays := newTestIssuer(vendor, 3)

	window := testWindow(t)
	issued, err := iss.Issue(context.Background(), Request{
		LockID:     101,
		HolderName: "Anna Virtanen",
		Window:     window,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(9001), issued.PasscodeID)
	assert.Equal(t, 482913, issued.Code)
	assert.Empty(t, *delays)

	require.Len(t, vendor.requests, 1)
	assert.Equal(t, window.StartMs(), vendor.requests[0].StartMs)
	assert.Equal(t, window.EndMs(), vendor.requests[0].EndMs)
	assert.Equal(t, "Anna Virtanen", vendor.requests[0].Name)
}

func TestIssuer_Issue_RetriesOnBusyGateway(t *testing.T) {
	busy := errors.New(errors.ErrGatewayBusy, "gateway busy")
	vendor := &scriptedAdder{responses: []error{busy, busy, nil}, passcodeID: 9001}
	iss, delays := newTestIssuer(vendor, 3)

	issued, err := iss.Issue(context.Background(), Request{LockID: 101, Window: testWindow(t)})
	require.NoError(t, err)

	assert.Equal(t, int64(9001), issued.PasscodeID)
	assert.Len(t, vendor.requests, 3)

	// Задержки не убывают от попытки к попытке
	require.Len(t, *delays, 2)
	assert.Equal(t, 10*time.Second, (*delays)[0])
	assert.Equal(t, 20*time.Second, (*delays)[1])
}

func TestIssuer_Issue_ExhaustsAttempts(t *testing.T) {
	busy := errors.New(errors.ErrGatewayBusy, "gateway busy")
	vendor := &scriptedAdder{responses: []error{busy, busy, busy}}
	iss, delays := newTestIssuer(vendor, 3)

	_, err := iss.Issue(context.Background(), Request{LockID: 101, Window: testWindow(t)})
	require.Error(t, err)

	assert.True(t, errors.IsCode(err, errors.ErrIssuanceExhausted))
	// Ровно maxAttempts запросов, без задержки после последнего
	assert.Len(t, vendor.requests, 3)
	assert.Len(t, *delays, 2)
}

func TestIssuer_Issue_NonBusyErrorFailsImmediately(t *testing.T) {
	rejected := errors.New(errors.ErrVendorRejected, "lock is offline")
	vendor := &scriptedAdder{responses: []error{rejected}}
	iss, delays := newTestIssuer(vendor, 3)

	_, err := iss.Issue(context.Background(), Request{LockID: 101, Window: testWindow(t)})
	require.Error(t, err)

	assert.True(t, errors.IsCode(err, errors.ErrVendorRejected))
	assert.Len(t, vendor.requests, 1)
	assert.Empty(t, *delays)
}

func TestIssuer_Issue_FreshCodePerAttempt(t *testing.T) {
	busy := errors.New(errors.ErrGatewayBusy, "gateway busy")
	vendor := &scriptedAdder{responses: []error{busy, nil}, passcodeID: 9001}
	iss, _ := newTestIssuer(vendor, 3)

	codes := []int{111111, 222222}
	calls := 0
	iss.code = func() int {
		code := codes[calls]
		calls++
		return code
	}

	issued, err := iss.Issue(context.Background(), Request{LockID: 101, Window: testWindow(t)})
	require.NoError(t, err)

	assert.Equal(t, 222222, issued.Code)
	require.Len(t, vendor.requests, 2)
	assert.Equal(t, 111111, vendor.requests[0].Code)
	assert.Equal(t, 222222, vendor.requests[1].Code)
}

func TestIssuer_Issue_ValidationBeforeNetwork(t *testing.T) {
	vendor := &scriptedAdder{passcodeID: 9001}
	iss, _ := newTestIssuer(vendor, 3)

	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing lock id", req: Request{Window: testWindow(t)}},
		{name: "missing window", req: Request{LockID: 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Issue(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrInvalidRequest))
			assert.Empty(t, vendor.requests)
		})
	}
}

func TestIssuer_Issue_ContextCancelledDuringBackoff(t *testing.T) {
	busy := errors.New(errors.ErrGatewayBusy, "gateway busy")
	vendor := &scriptedAdder{responses: []error{busy, busy}}
	iss, _ := newTestIssuer(vendor, 3)
	iss.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := iss.Issue(context.Background(), Request{LockID: 101, Window: testWindow(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransportFailure))
	assert.Len(t, vendor.requests, 1)
}

func TestRandomCode_SixDigits(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := randomCode()
		assert.GreaterOrEqual(t, code, 100000)
		assert.LessOrEqual(t, code, 999999)
	}
}

func TestExponentialDelay(t *testing.T) {
	strategy := ExponentialDelay{Initial: 10 * time.Second, Max: 2 * time.Minute}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 10 * time.Second},
		{attempt: 2, want: 20 * time.Second},
		{attempt: 3, want: 40 * time.Second},
		{attempt: 4, want: 80 * time.Second},
		{attempt: 5, want: 2 * time.Minute},
		{attempt: 10, want: 2 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, strategy.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestFixedDelay(t *testing.T) {
	strategy := FixedDelay{Interval: 15 * time.Second}

	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, 15*time.Second, strategy.Delay(attempt))
	}
}

func TestStrategyFromConfig(t *testing.T) {
	fixed := StrategyFromConfig(config.IssuerConfig{Backoff: "fixed", InitialDelay: "5s"})
	assert.Equal(t, 5*time.Second, fixed.Delay(1))
	assert.Equal(t, 5*time.Second, fixed.Delay(4))

	exponential := StrategyFromConfig(config.IssuerConfig{Backoff: "exponential", InitialDelay: "5s", MaxDelay: "1m"})
	assert.Equal(t, 5*time.Second, exponential.Delay(1))
	assert.Equal(t, 10*time.Second, exponential.Delay(2))
	assert.Equal(t, time.Minute, exponential.Delay(10))
}
