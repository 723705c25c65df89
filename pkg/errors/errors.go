package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error представляет кастомную ошибку с дополнительной информацией
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// ErrorCode представляет код ошибки
type ErrorCode string

// Определение кодов ошибок
const (
	// ErrInvalidRequest — обязательные поля отсутствуют, сетевой вызов не выполнялся
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrAuthFailure — получение или обновление токена не дало рабочий токен
	ErrAuthFailure ErrorCode = "AUTH_FAILURE"
	// ErrNotFound — замок или код доступа не удалось найти у вендора
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrGatewayBusy — временная недоступность шлюза замка (errcode -3003)
	ErrGatewayBusy ErrorCode = "GATEWAY_BUSY"
	// ErrIssuanceExhausted — повторы по занятому шлюзу исчерпали лимит попыток
	ErrIssuanceExhausted ErrorCode = "ISSUANCE_EXHAUSTED"
	// ErrVendorRejected — любая другая ошибка, о которой сообщил вендор
	ErrVendorRejected ErrorCode = "VENDOR_REJECTED"
	// ErrTransportFailure — сетевая ошибка или ошибка разбора ответа
	ErrTransportFailure ErrorCode = "TRANSPORT_FAILURE"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is проверяет, является ли ошибка указанного типа
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails добавляет детали к ошибке
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// CodeOf возвращает код ошибки или пустую строку для посторонних ошибок
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode проверяет, несет ли цепочка ошибок указанный код
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailure:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrGatewayBusy, ErrIssuanceExhausted:
		return http.StatusServiceUnavailable
	case ErrVendorRejected:
		return http.StatusBadGateway
	case ErrTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
