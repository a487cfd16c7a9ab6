// Package events carries client activity notifications to optional sinks.
// Publishing is best-effort: failures are logged by callers and never change
// conversation or upload state.
package events

import (
	"context"
	"time"
)

type Type string

const (
	ConversationCreated Type = "conversation.created"
	UploadSucceeded     Type = "upload.succeeded"
	UploadFailed        Type = "upload.failed"
)

type Event struct {
	Type       Type      `json:"type"`
	Subject    string    `json:"subject"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// Nop returns a Publisher that drops every event.
func Nop() Publisher {
	return nopPublisher{}
}

func New(t Type, subject, detail string) Event {
	return Event{
		Type:       t,
		Subject:    subject,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}
