package domain

import "time"

// Channel identifies the chat provider a ticket lives on.
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelFacebook  Channel = "facebook"
	ChannelInstagram Channel = "instagram"
)

// ChannelNumber is an organization-owned messaging endpoint and its routing
// configuration. Read-only to the inbound pipeline.
type ChannelNumber struct {
	ID               int64
	Name             string
	Channel          Channel
	Status           string
	IsDefault        bool
	GreetingMessage  string
	FarewellMessage  string
	OutOfWorkMessage string
	// TimeNewTicket is the reuse window, in minutes, applied when
	// ReopenLastTicket is off: a prior ticket updated inside the window is
	// reopened instead of creating a new one.
	TimeNewTicket    int
	ReopenLastTicket bool
	Schedule         WorkSchedule
	Queues           []Queue
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WorkSchedule is the per-weekday business-hours window for a channel number.
type WorkSchedule struct {
	// Enabled gates the whole schedule; when false every instant counts as
	// business hours.
	Enabled      bool
	StartHour    string // "08:00"
	EndHour      string // "18:00"
	WeekendStart string // optional override for Saturday/Sunday
	WeekendEnd   string
	// Days is indexed by time.Weekday (Sunday = 0).
	Days [7]bool
}
