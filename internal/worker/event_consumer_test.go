package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/events"
)

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, body interface{}) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: raw}
}

func TestEventConsumer_Process(t *testing.T) {
	ack := &fakeAcknowledger{}
	var got []events.Event
	consumer := NewEventConsumer(nil, "q", func(ctx context.Context, e events.Event) error {
		if e.Subject == "bad" {
			return errors.New("handler failed")
		}
		got = append(got, e)
		return nil
	}, nil)

	ctx := context.Background()
	consumer.process(ctx, delivery(t, ack, 1, events.New(events.UploadSucceeded, "report.pdf", "d1")))
	consumer.process(ctx, delivery(t, ack, 2, []byte("{not json")))
	consumer.process(ctx, delivery(t, ack, 3, map[string]string{"subject": "no type"}))
	consumer.process(ctx, delivery(t, ack, 4, events.New(events.UploadFailed, "bad", "boom")))

	require.Len(t, got, 1)
	assert.Equal(t, events.UploadSucceeded, got[0].Type)
	assert.Equal(t, "report.pdf", got[0].Subject)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2, 3, 4}, ack.nacked)
}

func TestEventConsumer_RunStopsOnCancelAndClosedChannel(t *testing.T) {
	ack := &fakeAcknowledger{}
	handled := make(chan events.Event, 1)
	consumer := NewEventConsumer(nil, "q", func(ctx context.Context, e events.Event) error {
		handled <- e
		return nil
	}, nil)

	deliveries := make(chan amqp.Delivery, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.run(ctx, deliveries)
		close(done)
	}()

	deliveries <- delivery(t, ack, 7, events.New(events.ConversationCreated, "c42", ""))
	select {
	case e := <-handled:
		assert.Equal(t, "c42", e.Subject)
	case <-time.After(time.Second):
		t.Fatal("event not handled")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on cancel")
	}

	closed := make(chan amqp.Delivery)
	close(closed)
	finished := make(chan struct{})
	go func() {
		consumer.run(context.Background(), closed)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on closed channel")
	}
}

func TestEventConsumer_CloseWithoutStart(t *testing.T) {
	NewEventConsumer(nil, "q", nil, nil).Close()
}
