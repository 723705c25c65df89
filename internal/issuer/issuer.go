package issuer

import (
	"context"
	"math/rand"
	"time"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/internal/lockvendor"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// PasscodeAdder выдает код доступа на замке у вендора
type PasscodeAdder interface {
	AddPasscode(ctx context.Context, req lockvendor.AddPasscodeRequest) (int64, error)
}

// Issuer выдает временные коды доступа на замках.
// Занятый шлюз повторяется с нарастающей задержкой, любая другая
// ошибка вендора завершает выдачу сразу.
type Issuer struct {
	vendor      PasscodeAdder
	strategy    DelayStrategy
	maxAttempts int
	logger      logger.Logger

	// Переопределяются в тестах
	sleep func(ctx context.Context, d time.Duration) error
	code  func() int
}

// Request параметры выдачи кода доступа
type Request struct {
	LockID     int64
	HolderName string
	Window     domain.AccessWindow
}

// Issued результат успешной выдачи
type Issued struct {
	PasscodeID int64
	Code       int
}

// New создает нового эмитента кодов доступа
func New(vendor PasscodeAdder, strategy DelayStrategy, maxAttempts int, log logger.Logger) *Issuer {
	return &Issuer{
		vendor:      vendor,
		strategy:    strategy,
		maxAttempts: maxAttempts,
		logger:      log,
		sleep:       sleepContext,
		code:        randomCode,
	}
}

// Issue выдает шестизначный код доступа на замке.
// Каждая попытка использует свежесгенерированный код.
func (i *Issuer) Issue(ctx context.Context, req Request) (*Issued, error) {
	if req.LockID == 0 {
		return nil, errors.New(errors.ErrInvalidRequest, "lock id is required for issuance")
	}
	if req.Window.From.IsZero() || req.Window.To.IsZero() {
		return nil, errors.New(errors.ErrInvalidRequest, "access window is required for issuance")
	}

	var lastErr error
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		code := i.code()

		passcodeID, err := i.vendor.AddPasscode(ctx, lockvendor.AddPasscodeRequest{
			LockID:  req.LockID,
			Code:    code,
			Name:    req.HolderName,
			StartMs: req.Window.StartMs(),
			EndMs:   req.Window.EndMs(),
		})
		if err == nil {
			i.logger.Info("Passcode issued",
				logger.Int64("lock_id", req.LockID),
				logger.Int64("passcode_id", passcodeID),
				logger.Int("attempt", attempt))
			return &Issued{PasscodeID: passcodeID, Code: code}, nil
		}

		if !errors.IsCode(err, errors.ErrGatewayBusy) {
			return nil, err
		}

		lastErr = err
		i.logger.Warn("Lock gateway busy, retrying issuance",
			logger.Int64("lock_id", req.LockID),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", i.maxAttempts))

		if attempt == i.maxAttempts {
			break
		}
		if err := i.sleep(ctx, i.strategy.Delay(attempt)); err != nil {
			return nil, errors.Wrap(err, errors.ErrTransportFailure, "issuance interrupted")
		}
	}

	return nil, errors.Wrap(lastErr, errors.ErrIssuanceExhausted, "lock gateway stayed busy through all attempts")
}

// randomCode генерирует шестизначный код доступа
func randomCode() int {
	return 100000 + rand.Intn(900000)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
