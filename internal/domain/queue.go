package domain

import "time"

// Queue is a routing bucket agents and chatbots pull tickets from.
type Queue struct {
	ID              int64
	Name            string
	Color           string
	GreetingMessage string
	Chatbots        []Chatbot
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Chatbot is one node in a queue's bot-flow tree. Options are the next level
// of the tree; the dialog engine owns traversal state per ticket.
type Chatbot struct {
	ID              int64
	Name            string
	GreetingMessage string
	QueueID         int64
	ParentID        *int64
	Options         []Chatbot
}
