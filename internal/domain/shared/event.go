package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain.
//
// Topic names the change-feed table the event belongs to (orders, products,
// wallets...). OwnerIDs lists the principals allowed to see the change on the
// realtime feed; an empty list means the change is public.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	Topic() string
	OwnerIDs() []uuid.UUID
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	AggID     uuid.UUID   `json:"aggregate_id"`
	AggType   string      `json:"aggregate_type"`
	Table     string      `json:"topic"`
	Owners    []uuid.UUID `json:"owner_ids,omitempty"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// Topic returns the change-feed topic
func (e *BaseDomainEvent) Topic() string {
	return e.Table
}

// OwnerIDs returns the principals entitled to this change
func (e *BaseDomainEvent) OwnerIDs() []uuid.UUID {
	return e.Owners
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggType, topic string, aggID uuid.UUID, owners ...uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		AggID:     aggID,
		AggType:   aggType,
		Table:     topic,
		Owners:    owners,
	}
}
