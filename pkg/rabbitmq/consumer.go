package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"AccessBridgePlatform/pkg/logger"
)

// Consumer представляет консьюмера сообщений
type Consumer struct {
	conn     *Connection
	config   *Config
	logger   logger.Logger
	handlers map[string]MessageHandler
}

// MessageHandler функция для обработки сообщения
type MessageHandler func(context.Context, amqp091.Delivery) error

// NewConsumer создает нового консьюмера
func NewConsumer(conn *Connection, config *Config, log logger.Logger) *Consumer {
	return &Consumer{
		conn:     conn,
		config:   config,
		logger:   log,
		handlers: make(map[string]MessageHandler),
	}
}

// RegisterHandler регистрирует обработчик для конкретной очереди
func (c *Consumer) RegisterHandler(queueName string, handler MessageHandler) {
	c.handlers[queueName] = handler
}

// Start запускает консьюмера для всех зарегистрированных очередей.
// Блокируется до завершения контекста.
func (c *Consumer) Start(ctx context.Context) error {
	for queueName, handler := range c.handlers {
		// Обработка каждой очереди в отдельной горутине с reconnect логикой
		go func(queue string, h MessageHandler) {
			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := c.consume(ctx, queue, h); err != nil {
						c.logger.Warn("Consumer stopped, reconnecting",
							logger.String("queue", queue),
							logger.Error(err),
							logger.Duration("reconnect_interval", c.config.ReconnectInterval))
						time.Sleep(c.config.ReconnectInterval)
					}
				}
			}
		}(queueName, handler)
	}

	<-ctx.Done()
	return ctx.Err()
}

// consume обрабатывает сообщения из очереди
func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	channel := c.conn.Channel()
	if channel == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	_, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	// Привязываем очередь к exchange, если задан; routing key совпадает с именем очереди
	if c.config.Exchange != "" {
		if err := channel.QueueBind(queueName, queueName, c.config.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w", queueName, c.config.Exchange, err)
		}
	}

	msgs, err := channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	for msg := range msgs {
		msgCtx, cancel := context.WithTimeout(ctx, c.config.HandlerTimeout)
		err := handler(msgCtx, msg)
		cancel()

		if err == nil {
			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("Failed to ack delivery",
					logger.Int64("delivery_tag", int64(msg.DeliveryTag)),
					logger.Error(ackErr))
			}
			continue
		}

		c.logger.Warn("Message handler failed",
			logger.String("queue", queueName),
			logger.Int64("delivery_tag", int64(msg.DeliveryTag)),
			logger.Error(err))

		// Повторная доставка только один раз; после этого сообщение отбрасывается,
		// чтобы не зациклить невалидный payload
		requeue := !msg.Redelivered
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			c.logger.Error("Failed to nack delivery",
				logger.Int64("delivery_tag", int64(msg.DeliveryTag)),
				logger.Error(nackErr))
		}
	}

	return fmt.Errorf("consumer channel closed for queue %s", queueName)
}

// HealthCheck проверяет состояние подключения к RabbitMQ
func (c *Consumer) HealthCheck(ctx context.Context) error {
	if c.conn == nil || c.conn.conn == nil {
		return fmt.Errorf("rabbitmq connection is not initialized")
	}

	channel, err := c.conn.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return channel.Close()
}
