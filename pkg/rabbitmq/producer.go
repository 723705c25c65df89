package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Producer представляет продюсера сообщений
type Producer struct {
	conn   *Connection
	config *Config
}

// NewProducer создает нового продюсера
func NewProducer(conn *Connection, config *Config) *Producer {
	return &Producer{conn: conn, config: config}
}

// Publish публикует сообщение в RabbitMQ с подтверждением брокера
func (p *Producer) Publish(ctx context.Context, routingKey string, body []byte) error {
	channel := p.conn.Channel()
	if channel == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	// Включаем confirm mode для получения подтверждений
	if err := channel.Confirm(false); err != nil {
		return fmt.Errorf("failed to enable confirm mode: %w", err)
	}

	confirms := channel.NotifyPublish(make(chan amqp091.Confirmation, 1))

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	if err := channel.PublishWithContext(ctx,
		p.config.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("message rejected by broker")
		}
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for confirmation: %w", ctx.Err())
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timeout waiting for confirmation")
	}

	return nil
}
