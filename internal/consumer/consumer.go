package consumer

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"AccessBridgePlatform/internal/domain"
	"AccessBridgePlatform/internal/metrics"
	"AccessBridgePlatform/internal/worker"
	"AccessBridgePlatform/pkg/logger"
	"AccessBridgePlatform/pkg/rabbitmq"
)

// sourceAMQP метка источника событий для метрик
const sourceAMQP = "amqp"

// TaskSubmitter отправляет задачу в пул обработчиков
type TaskSubmitter interface {
	Submit(task *worker.Task) error
}

// BookingConsumer принимает события бронирований из брокера.
// Очереди созданий и отмен обрабатываются независимо.
type BookingConsumer struct {
	consumer *rabbitmq.Consumer
	pool     TaskSubmitter
	validate *validator.Validate
	metrics  *metrics.AccessMetrics
	logger   logger.Logger
}

// NewBookingConsumer создает консьюмера событий бронирований
func NewBookingConsumer(
	consumer *rabbitmq.Consumer,
	pool TaskSubmitter,
	accessMetrics *metrics.AccessMetrics,
	log logger.Logger,
) *BookingConsumer {
	return &BookingConsumer{
		consumer: consumer,
		pool:     pool,
		validate: validator.New(),
		metrics:  accessMetrics,
		logger:   log,
	}
}

// Register регистрирует обработчики очередей событий
func (c *BookingConsumer) Register(createdQueue, cancelledQueue string) {
	c.consumer.RegisterHandler(createdQueue, c.handleCreated)
	c.consumer.RegisterHandler(cancelledQueue, c.handleCancelled)
}

// Start запускает потребление очередей. Блокируется до завершения контекста.
func (c *BookingConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *BookingConsumer) handleCreated(ctx context.Context, msg amqp091.Delivery) error {
	events, err := domain.DecodeBookingEvents(msg.Body)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()[:12]
	for i := range events {
		event := events[i]
		if err := c.validate.Struct(event); err != nil {
			return err
		}

		c.metrics.BookingEvents.WithLabelValues(string(worker.TaskCreated), sourceAMQP).Inc()
		if err := c.pool.Submit(&worker.Task{
			ID:         requestID,
			Kind:       worker.TaskCreated,
			Source:     sourceAMQP,
			Created:    &event,
			ReceivedAt: time.Now(),
		}); err != nil {
			return err
		}
	}

	c.logger.Debug("Booking events consumed",
		logger.String("request_id", requestID),
		logger.Int("events", len(events)))
	return nil
}

func (c *BookingConsumer) handleCancelled(ctx context.Context, msg amqp091.Delivery) error {
	events, err := domain.DecodeCancellationEvents(msg.Body)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()[:12]
	for i := range events {
		event := events[i]
		if err := c.validate.Struct(event); err != nil {
			return err
		}

		c.metrics.BookingEvents.WithLabelValues(string(worker.TaskCancelled), sourceAMQP).Inc()
		if err := c.pool.Submit(&worker.Task{
			ID:         requestID,
			Kind:       worker.TaskCancelled,
			Source:     sourceAMQP,
			Cancelled:  &event,
			ReceivedAt: time.Now(),
		}); err != nil {
			return err
		}
	}

	c.logger.Debug("Cancellation events consumed",
		logger.String("request_id", requestID),
		logger.Int("events", len(events)))
	return nil
}
