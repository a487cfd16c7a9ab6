package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docqa/internal/events"
)

// EventPublisher sends client activity events to a durable queue. The queue
// is declared once, on first publish.
type EventPublisher struct {
	conn      *amqp.Connection
	queueName string

	declareOnce sync.Once
	declareErr  error
}

func NewEventPublisher(conn *amqp.Connection, queueName string) *EventPublisher {
	return &EventPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event events.Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	p.declareOnce.Do(func() {
		_, p.declareErr = ch.QueueDeclare(
			p.queueName,
			true,
			false,
			false,
			false,
			nil,
		)
	})
	if p.declareErr != nil {
		return fmt.Errorf("declare queue failed: %w", p.declareErr)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(event.Type),
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		},
	); err != nil {
		return fmt.Errorf("publish event failed: %w", err)
	}
	return nil
}
