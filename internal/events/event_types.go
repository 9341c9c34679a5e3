package events

import (
	"time"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketUpdated  EventType = "ticket_updated"
	EventTicketDeleted  EventType = "ticket_deleted"
	EventUnreadUpdated  EventType = "ticket_unread_updated"
	EventMessageCreated EventType = "message_created"
	EventMessageAcked   EventType = "message_acked"
)

// Event represents a domain event emitted by the pipeline.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Status  domain.TicketStatus `json:"status"`
	QueueID *int64              `json:"queue_id,omitempty"`
	UserID  *int64              `json:"user_id,omitempty"`
}

// TicketDeletedPayload payload; emitted toward the pending list when a
// self-sent message auto-closes a fresh ticket.
type TicketDeletedPayload struct {
	Status domain.TicketStatus `json:"status"`
}

// UnreadUpdatedPayload payload.
type UnreadUpdatedPayload struct {
	Status         domain.TicketStatus `json:"status"`
	UnreadMessages int                 `json:"unread_messages"`
}

// MessageCreatedPayload payload.
type MessageCreatedPayload struct {
	MessageID   string `json:"message_id"`
	FromMe      bool   `json:"from_me"`
	BodyPreview string `json:"body_preview"`
}

// MessageAckedPayload payload.
type MessageAckedPayload struct {
	MessageID string          `json:"message_id"`
	Ack       domain.AckLevel `json:"ack"`
}
