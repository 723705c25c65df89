package orchestrator

import (
	"context"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/internal/issuer"
	"AccessBridgePlatform/internal/metrics"
	"AccessBridgePlatform/internal/notifier"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// Причины пропуска бронирования без выдачи кодов
const (
	// SkipTentative бронирование еще не подтверждено
	SkipTentative = "tentative"
	// SkipUnpaid онлайн-бронирование контакта не оплачено
	SkipUnpaid = "unpaid"
)

// AccessPolicy сопоставляет ресурс с замками и дверям с названиями
type AccessPolicy interface {
	LocksFor(resourceID int64) ([]string, error)
	DoorLabel(lockMac string) string
}

// LockDirectory находит идентификатор замка по MAC адресу
type LockDirectory interface {
	Resolve(ctx context.Context, lockMac string) (int64, error)
}

// CodeIssuer выдает код доступа на замке
type CodeIssuer interface {
	Issue(ctx context.Context, req issuer.Request) (*issuer.Issued, error)
}

// CodeRevoker отзывает код доступа с замка
type CodeRevoker interface {
	Revoke(ctx context.Context, lockID int64, window domain.AccessWindow) error
}

// CodeNotifier уведомляет участника о выданных кодах
type CodeNotifier interface {
	Notify(ctx context.Context, req notifier.Request) error
}

// IssuedLock результат выдачи кода на одном замке
type IssuedLock struct {
	LockMac    string `json:"lock_mac"`
	DoorLabel  string `json:"door_label"`
	LockID     int64  `json:"lock_id"`
	Code       int    `json:"-"`
	PasscodeID int64  `json:"passcode_id"`
}

// LockFailure ошибка обработки одного замка
type LockFailure struct {
	LockMac string `json:"lock_mac"`
	Reason  string `json:"reason"`
}

// CreateResult итог обработки события создания бронирования
type CreateResult struct {
	ResourceID    int64         `json:"resource_id"`
	BookingNumber int64         `json:"booking_number"`
	Skipped       bool          `json:"skipped"`
	SkipReason    string        `json:"skip_reason,omitempty"`
	Issued        []IssuedLock  `json:"issued,omitempty"`
	Failures      []LockFailure `json:"failures,omitempty"`
	Notified      bool          `json:"notified"`
}

// CancelResult итог обработки события отмены бронирования
type CancelResult struct {
	ResourceID int64         `json:"resource_id"`
	Revoked    []string      `json:"revoked,omitempty"`
	Missing    []string      `json:"missing,omitempty"`
	Failures   []LockFailure `json:"failures,omitempty"`
}

// Orchestrator связывает события бронирований с выдачей и отзывом
// кодов доступа. Ошибка на одном замке не останавливает обработку
// остальных замков бронирования.
type Orchestrator struct {
	policy    AccessPolicy
	directory LockDirectory
	issuer    CodeIssuer
	revoker   CodeRevoker
	notifier  CodeNotifier
	metrics   *metrics.AccessMetrics
	logger    logger.Logger
}

// New создает новый оркестратор
func New(
	policy AccessPolicy,
	directory LockDirectory,
	codeIssuer CodeIssuer,
	revoker CodeRevoker,
	codeNotifier CodeNotifier,
	accessMetrics *metrics.AccessMetrics,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		policy:    policy,
		directory: directory,
		issuer:    codeIssuer,
		revoker:   revoker,
		notifier:  codeNotifier,
		metrics:   accessMetrics,
		logger:    log,
	}
}

// HandleCreated обрабатывает событие создания бронирования:
// выдает коды на всех замках ресурса и уведомляет участника.
// Уведомление отправляется только если выдан хотя бы один код.
func (o *Orchestrator) HandleCreated(ctx context.Context, event domain.BookingEvent) (*CreateResult, error) {
	result := &CreateResult{
		ResourceID:    event.ResourceID,
		BookingNumber: event.BookingNumber,
	}

	window, err := event.Window()
	if err != nil {
		return nil, err
	}

	if event.Tentative {
		o.logger.Info("Booking is tentative, skipping issuance",
			logger.Int64("resource_id", event.ResourceID),
			logger.Int64("booking_number", event.BookingNumber))
		o.metrics.SkippedBookings.WithLabelValues(SkipTentative).Inc()
		result.Skipped = true
		result.SkipReason = SkipTentative
		return result, nil
	}

	if event.CancelIfNotPaid && event.Online && !event.Paid() {
		o.logger.Info("Online booking is unpaid, skipping issuance",
			logger.Int64("resource_id", event.ResourceID),
			logger.Int64("booking_number", event.BookingNumber))
		o.metrics.SkippedBookings.WithLabelValues(SkipUnpaid).Inc()
		result.Skipped = true
		result.SkipReason = SkipUnpaid
		return result, nil
	}

	macs, err := o.policy.LocksFor(event.ResourceID)
	if err != nil {
		return nil, err
	}

	for _, mac := range macs {
		issued, err := o.issueOnLock(ctx, mac, event.CoworkerFullName, window)
		if err != nil {
			o.logger.Warn("Passcode issuance failed for lock",
				logger.String("lock_mac", mac),
				logger.Int64("resource_id", event.ResourceID),
				logger.Error(err))
			o.metrics.IssuanceFailures.WithLabelValues(string(errors.CodeOf(err))).Inc()
			result.Failures = append(result.Failures, LockFailure{LockMac: mac, Reason: err.Error()})
			continue
		}

		o.metrics.PasscodesIssued.Inc()
		result.Issued = append(result.Issued, *issued)
	}

	if len(result.Issued) == 0 {
		o.logger.Warn("No passcodes issued, notification suppressed",
			logger.Int64("resource_id", event.ResourceID),
			logger.Int64("booking_number", event.BookingNumber))
		return result, nil
	}

	codes := make([]notifier.IssuedCode, 0, len(result.Issued))
	for _, issued := range result.Issued {
		codes = append(codes, notifier.IssuedCode{DoorLabel: issued.DoorLabel, Code: issued.Code})
	}

	err = o.notifier.Notify(ctx, notifier.Request{
		CoworkerID:    event.CoworkerID,
		HolderName:    event.CoworkerFullName,
		Codes:         codes,
		Window:        window,
		ResourceName:  event.ResourceName,
		BookingNumber: event.BookingNumber,
	})
	if err != nil {
		o.logger.Error("Failed to notify coworker about issued passcodes",
			logger.Int64("coworker_id", event.CoworkerID),
			logger.Error(err))
		result.Failures = append(result.Failures, LockFailure{Reason: err.Error()})
		return result, nil
	}

	o.metrics.NotificationsSent.Inc()
	result.Notified = true
	return result, nil
}

func (o *Orchestrator) issueOnLock(ctx context.Context, mac, holderName string, window domain.AccessWindow) (*IssuedLock, error) {
	lockID, err := o.directory.Resolve(ctx, mac)
	if err != nil {
		return nil, err
	}

	o.metrics.IssuanceAttempts.Inc()
	issued, err := o.issuer.Issue(ctx, issuer.Request{
		LockID:     lockID,
		HolderName: holderName,
		Window:     window,
	})
	if err != nil {
		return nil, err
	}

	return &IssuedLock{
		LockMac:    mac,
		DoorLabel:  o.policy.DoorLabel(mac),
		LockID:     lockID,
		Code:       issued.Code,
		PasscodeID: issued.PasscodeID,
	}, nil
}

// HandleCancelled обрабатывает событие отмены бронирования:
// отзывает коды на всех замках ресурса. Отсутствие кода на замке
// не считается ошибкой обработки.
func (o *Orchestrator) HandleCancelled(ctx context.Context, event domain.CancellationEvent) (*CancelResult, error) {
	result := &CancelResult{ResourceID: event.ResourceID}

	window, err := event.Window()
	if err != nil {
		return nil, err
	}

	macs, err := o.policy.LocksFor(event.ResourceID)
	if err != nil {
		return nil, err
	}

	for _, mac := range macs {
		lockID, err := o.directory.Resolve(ctx, mac)
		if err != nil {
			o.logger.Warn("Lock resolution failed during cancellation",
				logger.String("lock_mac", mac),
				logger.Error(err))
			result.Failures = append(result.Failures, LockFailure{LockMac: mac, Reason: err.Error()})
			continue
		}

		if err := o.revoker.Revoke(ctx, lockID, window); err != nil {
			if errors.IsCode(err, errors.ErrNotFound) {
				o.logger.Warn("No passcode to revoke on lock",
					logger.String("lock_mac", mac),
					logger.Int64("lock_id", lockID),
					logger.Int64("resource_id", event.ResourceID))
				o.metrics.PasscodesMissing.Inc()
				result.Missing = append(result.Missing, mac)
				continue
			}

			o.logger.Error("Passcode revocation failed",
				logger.String("lock_mac", mac),
				logger.Int64("lock_id", lockID),
				logger.Error(err))
			result.Failures = append(result.Failures, LockFailure{LockMac: mac, Reason: err.Error()})
			continue
		}

		o.metrics.PasscodesRevoked.Inc()
		result.Revoked = append(result.Revoked, mac)
	}

	return result, nil
}
