package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending TicketStatus = "pending"
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusClosed  TicketStatus = "closed"
)

// IsActive reports whether the status counts toward the
// at-most-one-active-ticket rule.
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusOpen || s == TicketStatusPending
}

// Ticket is one managed conversation thread between a contact and an
// organization-side channel number.
type Ticket struct {
	ID              int64
	UUID            string
	Status          TicketStatus
	UnreadMessages  int
	LastMessage     string
	IsGroup         bool
	IsBot           bool
	Channel         Channel
	ContactID       int64
	ChannelNumberID int64
	UserID          *int64
	QueueID         *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Populated by the eager-loaded accessor.
	Contact       *Contact
	Queue         *Queue
	ChannelNumber *ChannelNumber
	Tags          []Tag
}

// Tag labels tickets for agent-side filtering.
type Tag struct {
	ID    int64
	Name  string
	Color string
}

// HasAssignee reports whether a human agent owns the ticket.
func (t *Ticket) HasAssignee() bool {
	return t.UserID != nil
}

// HasQueue reports whether the ticket has been routed.
func (t *Ticket) HasQueue() bool {
	return t.QueueID != nil
}
