// Package notify publishes session lifecycle events for downstream
// consumers (dashboards, the celebration hook). Publishing is
// fire-and-forget: a failed publish is logged, never surfaced.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ratewatch/rated-history-go/internal/models"
)

// Event types emitted by the session.
const (
	TypePageAppended      = "session.page_appended"
	TypeCollectionReset   = "session.collection_reset"
	TypeFetchAllCompleted = "session.fetch_all_completed"
	TypeSignedIn          = "session.signed_in"
	TypeSignedOut         = "session.signed_out"
)

// Event is one session lifecycle notification.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Event struct {
	ID             uuid.UUID         `json:"id"`
	Type           string            `json:"type"`
	SessionID      uuid.UUID         `json:"session_id"`
	Mode           models.RatingMode `json:"mode"`
	CollectionSize int               `json:"collection_size"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(eventType string, sessionID uuid.UUID, mode models.RatingMode, collectionSize int) *Event {
	return &Event{
		ID:             uuid.New(),
		Type:           eventType,
		SessionID:      sessionID,
		Mode:           mode,
		CollectionSize: collectionSize,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher delivers session events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, *Event) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }
