// Package notify implements the notification outbox: domain mutations
// write an OutboxEvent row in the same transaction as the mutation, and a
// background Publisher drains unpublished rows onto a message broker.
package notify

import (
	"errors"
	"time"
)

type EventType string

const (
	EventPaymentConfirmed EventType = "payment.confirmed"
	EventPaymentRejected  EventType = "payment.rejected"
	EventHeatsGenerated   EventType = "heats.generated"
	EventBibsAssigned     EventType = "bibs.assigned"
)

// OutboxEvent is a row recording a domain event for later delivery. Payload
// holds the JSON-encoded event body; PublishedAt is nil until the Publisher
// successfully writes it to the broker.
type OutboxEvent struct {
	ID           string
	Type         EventType
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
	AttemptCount int
}

var ErrNotFound = errors.New("outbox event not found")
