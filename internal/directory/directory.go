package directory

import (
	"context"

	"AccessBridgePlatform/internal/lockvendor"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// LockLister постранично отдает замки аккаунта у вендора
type LockLister interface {
	ListLocks(ctx context.Context, pageNo int) ([]lockvendor.Lock, error)
}

// Directory находит идентификаторы замков по их MAC адресам.
// Вендор не индексирует замки по MAC, поэтому каждый поиск
// постранично обходит список замков аккаунта.
type Directory struct {
	locks  LockLister
	logger logger.Logger
}

// New создает новый справочник замков
func New(locks LockLister, log logger.Logger) *Directory {
	return &Directory{locks: locks, logger: log}
}

// Resolve возвращает идентификатор замка с указанным MAC адресом.
// Страницы обходятся по порядку, берется первое совпадение.
// Пустая страница означает конец списка.
func (d *Directory) Resolve(ctx context.Context, lockMac string) (int64, error) {
	if lockMac == "" {
		return 0, errors.New(errors.ErrInvalidRequest, "lock mac is required")
	}

	for pageNo := 1; ; pageNo++ {
		page, err := d.locks.ListLocks(ctx, pageNo)
		if err != nil {
			return 0, err
		}
		if len(page) == 0 {
			break
		}

		for _, lock := range page {
			if lock.LockMac == lockMac {
				d.logger.Debug("Lock resolved",
					logger.String("lock_mac", lockMac),
					logger.Int64("lock_id", lock.LockID),
					logger.Int("page_no", pageNo))
				return lock.LockID, nil
			}
		}
	}

	d.logger.Warn("Lock not found by mac", logger.String("lock_mac", lockMac))
	return 0, errors.New(errors.ErrNotFound, "no lock with requested mac").WithDetails(lockMac)
}
