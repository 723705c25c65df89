package domain

import (
	"bytes"
	"encoding/json"

	"AccessBridgePlatform/pkg/errors"
)

// Вебхуки отправляют либо одно событие, либо массив событий.
// Декодеры принимают обе формы и всегда возвращают срез.

// DecodeBookingEvents разбирает payload события создания бронирования
func DecodeBookingEvents(payload []byte) ([]BookingEvent, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.ErrInvalidRequest, "empty booking payload")
	}

	if trimmed[0] == '[' {
		var events []BookingEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidRequest, "malformed booking payload")
		}
		return events, nil
	}

	var event BookingEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidRequest, "malformed booking payload")
	}
	return []BookingEvent{event}, nil
}

// DecodeCancellationEvents разбирает payload события отмены бронирования
func DecodeCancellationEvents(payload []byte) ([]CancellationEvent, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.ErrInvalidRequest, "empty cancellation payload")
	}

	if trimmed[0] == '[' {
		var events []CancellationEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidRequest, "malformed cancellation payload")
		}
		return events, nil
	}

	var event CancellationEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidRequest, "malformed cancellation payload")
	}
	return []CancellationEvent{event}, nil
}
