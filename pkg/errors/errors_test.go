package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := New(ErrNotFound, "lock not found")
	assert.Equal(t, "lock not found", err.Error())

	wrapped := Wrap(stderrors.New("connection refused"), ErrTransportFailure, "vendor unreachable")
	assert.Equal(t, "vendor unreachable: connection refused", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, ErrTransportFailure, "request failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrVendorRejected, "ignored"))
}

func TestError_Is(t *testing.T) {
	err := New(ErrGatewayBusy, "gateway is busy")

	assert.True(t, stderrors.Is(err, New(ErrGatewayBusy, "other message")))
	assert.False(t, stderrors.Is(err, New(ErrVendorRejected, "other code")))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "direct app error",
			err:  New(ErrAuthFailure, "no token"),
			want: ErrAuthFailure,
		},
		{
			name: "wrapped app error",
			err:  fmt.Errorf("issuing lock 7: %w", New(ErrGatewayBusy, "busy")),
			want: ErrGatewayBusy,
		},
		{
			name: "plain error",
			err:  stderrors.New("plain"),
			want: "",
		},
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrIssuanceExhausted, "attempts exhausted"))

	assert.True(t, IsCode(err, ErrIssuanceExhausted))
	assert.False(t, IsCode(err, ErrGatewayBusy))
}

func TestError_WithDetails(t *testing.T) {
	base := New(ErrVendorRejected, "vendor error")
	detailed := base.WithDetails("errcode=-2012")

	assert.Equal(t, "errcode=-2012", detailed.Details)
	assert.Empty(t, base.Details)
	assert.Equal(t, base.Code, detailed.Code)
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrInvalidRequest, http.StatusBadRequest},
		{ErrAuthFailure, http.StatusUnauthorized},
		{ErrNotFound, http.StatusNotFound},
		{ErrGatewayBusy, http.StatusServiceUnavailable},
		{ErrIssuanceExhausted, http.StatusServiceUnavailable},
		{ErrVendorRejected, http.StatusBadGateway},
		{ErrTransportFailure, http.StatusBadGateway},
		{ErrorCode("UNKNOWN"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "msg").HTTPStatus())
		})
	}
}
