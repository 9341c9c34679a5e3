package domain

import "time"

// Contact is a durable record of an external messaging identity. Created on
// the first inbound event from an unknown number, updated in place afterward.
type Contact struct {
	ID            int64
	Name          string
	Number        string
	ProfilePicURL string
	IsGroup       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
