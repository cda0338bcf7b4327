package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind names a ledger event
type EventKind string

const (
	EventRecordCreated           EventKind = "record.created"
	EventRecordUpdated           EventKind = "record.updated"
	EventRecordDeleted           EventKind = "record.deleted"
	EventRecordStatusTransferred EventKind = "record.status_transferred"
	EventRecordStatusSet         EventKind = "record.status_set"
)

// Event is published after a ledger mutation commits
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Kind       EventKind         `json:"kind"`
	RecordID   int64             `json:"record_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewEvent creates an event stamped with a fresh id and the current time
func NewEvent(kind EventKind, recordID int64, attrs map[string]string) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
}

// EventPublisher delivers ledger events to interested collaborators
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// DiscardEvents is an EventPublisher that drops every event
type DiscardEvents struct{}

// Publish implements EventPublisher
func (DiscardEvents) Publish(context.Context, Event) error { return nil }
