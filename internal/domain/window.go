package domain

import (
	"time"

	"AccessBridgePlatform/pkg/errors"
)

// LeadTime на сколько раньше начала бронирования активируется код доступа
const LeadTime = 15 * time.Minute

// AccessWindow представляет интервал действия кода доступа
type AccessWindow struct {
	From time.Time
	To   time.Time
}

// ParseWindow строит интервал доступа из временных меток события
func ParseWindow(fromTime, toTime string) (AccessWindow, error) {
	from, err := ParseEventTime(fromTime)
	if err != nil {
		return AccessWindow{}, errors.Wrap(err, errors.ErrInvalidRequest, "invalid booking start time")
	}
	to, err := ParseEventTime(toTime)
	if err != nil {
		return AccessWindow{}, errors.Wrap(err, errors.ErrInvalidRequest, "invalid booking end time")
	}
	return AccessWindow{From: from, To: to}, nil
}

// EffectiveStart возвращает начало действия кода: за LeadTime до начала бронирования
func (w AccessWindow) EffectiveStart() time.Time {
	return w.From.Add(-LeadTime)
}

// StartMs возвращает начало действия кода в миллисекундах Unix-эпохи
func (w AccessWindow) StartMs() int64 {
	return w.EffectiveStart().UnixMilli()
}

// EndMs возвращает конец действия кода в миллисекундах Unix-эпохи
func (w AccessWindow) EndMs() int64 {
	return w.To.UnixMilli()
}

// Credential представляет выданный код доступа на одном замке
type Credential struct {
	LockID     int64
	LockMac    string
	DoorLabel  string
	PasscodeID int64
	Code       int
	Window     AccessWindow
}
