package locator

import (
	"context"
	"fmt"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/internal/lockvendor"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// PasscodeVendor операции вендора над кодами доступа замка
type PasscodeVendor interface {
	ListPasscodes(ctx context.Context, lockID int64, pageNo int) ([]lockvendor.Passcode, error)
	DeletePasscode(ctx context.Context, lockID, keyboardPwdID int64) error
}

// Locator находит и отзывает ранее выданные коды доступа.
// Код идентифицируется точным совпадением границ интервала
// в миллисекундах; расхождение даже в одну миллисекунду
// означает другой код.
type Locator struct {
	vendor PasscodeVendor
	logger logger.Logger
}

// New создает новый локатор кодов доступа
func New(vendor PasscodeVendor, log logger.Logger) *Locator {
	return &Locator{vendor: vendor, logger: log}
}

// Find ищет код доступа с точными границами интервала.
// Страницы обходятся по порядку, берется первое совпадение.
func (l *Locator) Find(ctx context.Context, lockID int64, window domain.AccessWindow) (*lockvendor.Passcode, error) {
	startMs := window.StartMs()
	endMs := window.EndMs()

	for pageNo := 1; ; pageNo++ {
		page, err := l.vendor.ListPasscodes(ctx, lockID, pageNo)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, passcode := range page {
			if passcode.StartDate == startMs && passcode.EndDate == endMs {
				found := passcode
				return &found, nil
			}
		}
	}

	return nil, errors.New(errors.ErrNotFound, "no passcode matches the access window").
		WithDetails(fmt.Sprintf("lock_id=%d start_ms=%d end_ms=%d", lockID, startMs, endMs))
}

// Revoke находит и удаляет код доступа для интервала.
// Удаление выполняется одним вызовом без повторов.
func (l *Locator) Revoke(ctx context.Context, lockID int64, window domain.AccessWindow) error {
	passcode, err := l.Find(ctx, lockID, window)
	if err != nil {
		return err
	}

	if err := l.vendor.DeletePasscode(ctx, lockID, passcode.KeyboardPwdID); err != nil {
		return err
	}

	l.logger.Info("Passcode revoked",
		logger.Int64("lock_id", lockID),
		logger.Int64("passcode_id", passcode.KeyboardPwdID))
	return nil
}
