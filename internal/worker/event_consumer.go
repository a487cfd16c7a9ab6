package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docqa/internal/events"
	"docqa/internal/pkg/logger"
)

const module = "worker"

// Handler receives each decoded event. Returning an error drops the delivery.
type Handler func(ctx context.Context, event events.Event) error

// EventConsumer drains the client activity queue.
type EventConsumer struct {
	conn      *amqp.Connection
	queueName string
	handle    Handler
	log       logger.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEventConsumer(conn *amqp.Connection, queueName string, handle Handler, log logger.ILogger) *EventConsumer {
	if log == nil {
		log = logger.Nop()
	}
	return &EventConsumer{
		conn:      conn,
		queueName: queueName,
		handle:    handle,
		log:       log,
	}
}

func (w *EventConsumer) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.run(workerCtx, deliveries)
	}()
	return nil
}

func (w *EventConsumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.process(ctx, d)
		}
	}
}

func (w *EventConsumer) process(ctx context.Context, d amqp.Delivery) {
	var event events.Event
	if err := json.Unmarshal(d.Body, &event); err != nil || event.Type == "" {
		w.log.Warn(module, "dropping undecodable event", map[string]interface{}{"delivery_tag": d.DeliveryTag})
		_ = d.Nack(false, false)
		return
	}

	if err := w.handle(ctx, event); err != nil {
		w.log.Error(module, "handle event failed", map[string]interface{}{"type": string(event.Type), "error": err.Error()})
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Close stops consuming and waits for the in-flight delivery.
func (w *EventConsumer) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
