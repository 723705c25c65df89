package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/internal/metrics"
	"AccessBridgePlatform/internal/worker"
	"AccessBridgePlatform/pkg/errors"
	"AccessBridgePlatform/pkg/logger"
)

// sourceWebhook метка источника событий для метрик
const sourceWebhook = "webhook"

// TaskSubmitter отправляет задачу в пул обработчиков
type TaskSubmitter interface {
	Submit(task *worker.Task) error
}

// Handler принимает вебхуки платформы бронирований.
// Обработка событий асинхронная: вебхук отвечает сразу после
// постановки задач в пул.
type Handler struct {
	pool     TaskSubmitter
	validate *validator.Validate
	metrics  *metrics.AccessMetrics
	logger   logger.Logger
}

// New создает новый обработчик вебхуков
func New(pool TaskSubmitter, accessMetrics *metrics.AccessMetrics, log logger.Logger) *Handler {
	return &Handler{
		pool:     pool,
		validate: validator.New(),
		metrics:  accessMetrics,
		logger:   log,
	}
}

// Register регистрирует маршруты вебхуков
func (h *Handler) Register(router *httprouter.Router) {
	router.POST("/booking-webhook", h.BookingCreated)
	router.POST("/booking-cancelled", h.BookingCancelled)
	router.GET("/test", h.Test)
}

// BookingCreated принимает событие создания бронирования.
// Payload может быть одним объектом или массивом объектов.
func (h *Handler) BookingCreated(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, errors.Wrap(err, errors.ErrInvalidRequest, "failed to read request body"))
		return
	}

	events, err := domain.DecodeBookingEvents(body)
	if err != nil {
		h.logger.Warn("Invalid booking payload", logger.Error(err))
		h.writeError(w, err)
		return
	}

	requestID := newRequestID()
	for _, event := range events {
		if err := h.validate.Struct(event); err != nil {
			h.logger.Warn("Booking event failed validation",
				logger.String("request_id", requestID),
				logger.Error(err))
			h.writeError(w, errors.Wrap(err, errors.ErrInvalidRequest, "booking event failed validation"))
			return
		}
	}

	for i := range events {
		event := events[i]
		h.metrics.BookingEvents.WithLabelValues(string(worker.TaskCreated), sourceWebhook).Inc()

		if err := h.pool.Submit(&worker.Task{
			ID:         requestID,
			Kind:       worker.TaskCreated,
			Source:     sourceWebhook,
			Created:    &event,
			ReceivedAt: time.Now(),
		}); err != nil {
			h.logger.Error("Failed to submit booking task",
				logger.String("request_id", requestID),
				logger.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service is overloaded"})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"request_id": requestID})
}

// BookingCancelled принимает событие отмены бронирования
func (h *Handler) BookingCancelled(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, errors.Wrap(err, errors.ErrInvalidRequest, "failed to read request body"))
		return
	}

	events, err := domain.DecodeCancellationEvents(body)
	if err != nil {
		h.logger.Warn("Invalid cancellation payload", logger.Error(err))
		h.writeError(w, err)
		return
	}

	requestID := newRequestID()
	for _, event := range events {
		if err := h.validate.Struct(event); err != nil {
			h.logger.Warn("Cancellation event failed validation",
				logger.String("request_id", requestID),
				logger.Error(err))
			h.writeError(w, errors.Wrap(err, errors.ErrInvalidRequest, "cancellation event failed validation"))
			return
		}
	}

	for i := range events {
		event := events[i]
		h.metrics.BookingEvents.WithLabelValues(string(worker.TaskCancelled), sourceWebhook).Inc()

		if err := h.pool.Submit(&worker.Task{
			ID:         requestID,
			Kind:       worker.TaskCancelled,
			Source:     sourceWebhook,
			Cancelled:  &event,
			ReceivedAt: time.Now(),
		}); err != nil {
			h.logger.Error("Failed to submit cancellation task",
				logger.String("request_id", requestID),
				logger.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service is overloaded"})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"request_id": requestID})
}

// Test простой эндпоинт для проверки доступности API
func (h *Handler) Test(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "API is working"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	message := err.Error()

	var appErr *errors.Error
	if e, ok := err.(*errors.Error); ok {
		appErr = e
		status = appErr.HTTPStatus()
		message = appErr.Message
	}

	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

// newRequestID генерирует короткий идентификатор запроса
func newRequestID() string {
	return uuid.NewString()[:12]
}
