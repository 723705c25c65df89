package consumer

import (
	"context"
	"encoding/json"
	"time"

	"AccessBridgePlatform/internal/orchestrator"
	"AccessBridgePlatform/pkg/logger"
)

// MessagePublisher публикует сообщение в брокер
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// outcomeEnvelope конверт публикуемого итога обработки
type outcomeEnvelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Result     interface{} `json:"result"`
}

// OutcomePublisher публикует итоги обработки событий бронирований
// в очередь для нижестоящих потребителей. Ошибки публикации
// логируются и не влияют на сам итог обработки.
type OutcomePublisher struct {
	publisher MessagePublisher
	queue     string
	logger    logger.Logger
}

// NewOutcomePublisher создает публикатора итогов
func NewOutcomePublisher(publisher MessagePublisher, queue string, log logger.Logger) *OutcomePublisher {
	return &OutcomePublisher{publisher: publisher, queue: queue, logger: log}
}

// PublishCreated публикует итог обработки создания бронирования
func (p *OutcomePublisher) PublishCreated(ctx context.Context, result *orchestrator.CreateResult) {
	p.publish(ctx, "booking.created", result)
}

// PublishCancelled публикует итог обработки отмены бронирования
func (p *OutcomePublisher) PublishCancelled(ctx context.Context, result *orchestrator.CancelResult) {
	p.publish(ctx, "booking.cancelled", result)
}

func (p *OutcomePublisher) publish(ctx context.Context, outcomeType string, result interface{}) {
	body, err := json.Marshal(outcomeEnvelope{
		Type:       outcomeType,
		OccurredAt: time.Now().UTC(),
		Result:     result,
	})
	if err != nil {
		p.logger.Error("Failed to marshal outcome", logger.Error(err))
		return
	}

	if err := p.publisher.Publish(ctx, p.queue, body); err != nil {
		p.logger.Warn("Failed to publish outcome",
			logger.String("type", outcomeType),
			logger.Error(err))
	}
}
