package domain

import (
	"time"
)

// EventTimeLayout формат временных меток в событиях бронирования
const EventTimeLayout = "2006-01-02T15:04:05Z"

// BookingEvent представляет событие создания бронирования
type BookingEvent struct {
	ResourceID          int64   `json:"ResourceId" validate:"required"`
	ResourceName        string  `json:"ResourceName"`
	BookingNumber       int64   `json:"BookingNumber"`
	FromTime            string  `json:"FromTime" validate:"required"`
	ToTime              string  `json:"ToTime" validate:"required"`
	CoworkerID          int64   `json:"CoworkerId" validate:"required"`
	CoworkerFullName    string  `json:"CoworkerFullName"`
	Tentative           bool    `json:"Tentative"`
	Online              bool    `json:"Online"`
	CoworkerInvoicePaid bool    `json:"CoworkerInvoicePaid"`
	CancelIfNotPaid     bool    `json:"CancelIfNotPaid"`
	InvoiceDate         *string `json:"InvoiceDate"`
}

// CancellationEvent представляет событие отмены бронирования
type CancellationEvent struct {
	ResourceID int64  `json:"ResourceId" validate:"required"`
	FromTime   string `json:"FromTime" validate:"required"`
	ToTime     string `json:"ToTime" validate:"required"`
}

// Window возвращает интервал доступа события
func (e *BookingEvent) Window() (AccessWindow, error) {
	return ParseWindow(e.FromTime, e.ToTime)
}

// Window возвращает интервал доступа события отмены
func (e *CancellationEvent) Window() (AccessWindow, error) {
	return ParseWindow(e.FromTime, e.ToTime)
}

// Paid сообщает, считается ли бронирование оплаченным.
// Бронирование без выставленного счета считается оплаченным.
func (e *BookingEvent) Paid() bool {
	if e.CoworkerInvoicePaid {
		return true
	}
	return e.InvoiceDate == nil
}

// ParseEventTime разбирает временную метку события бронирования
func ParseEventTime(value string) (time.Time, error) {
	return time.Parse(EventTimeLayout, value)
}
