package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Poistot/internal/domain"
)

// Publisher публикует tasks и результаты.
type Publisher struct {
	conn   *Connection
	topo   Topology
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, topo Topology, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		topo:   topo.withDefaults(),
		logger: logger,
	}
}

// Publish публикует payload как JSON в очередь queue.
// Сообщение persistent: переживает рестарт брокера.
func (p *Publisher) Publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	msgID := uuid.NewString()

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			"",    // обменник по умолчанию
			queue, // routing key = имя очереди
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msgID,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s: %w", queue, err)
		}

		p.logger.Debug("published message", "queue", queue, "message_id", msgID)
		return nil
	})
}

// PublishTask ставит task в очередь tasks.
func (p *Publisher) PublishTask(ctx context.Context, task domain.Task) error {
	return p.Publish(ctx, p.topo.TaskQueue, task)
}

// PublishResult публикует результат task.
func (p *Publisher) PublishResult(ctx context.Context, result domain.TaskResult) error {
	return p.Publish(ctx, p.topo.ResultQueue, result)
}
