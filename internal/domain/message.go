package domain

import "time"

// AckLevel is the provider-reported delivery/read ordinal for a message.
type AckLevel int

const (
	AckPending   AckLevel = 0
	AckSent      AckLevel = 1
	AckDelivered AckLevel = 2
	AckRead      AckLevel = 3
)

// Message is one inbound or outbound chat event. The primary key is the
// provider-assigned message id, which makes re-delivery of the same event an
// update rather than a duplicate row.
type Message struct {
	ID          string
	TicketID    int64
	ContactID   *int64
	Body        string
	FromMe      bool
	Read        bool
	MediaURL    string
	MediaType   string
	QuotedMsgID *string
	Ack         AckLevel
	RemoteJid   string
	Participant string
	DataJSON    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
