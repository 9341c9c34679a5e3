package service

import (
	"context"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
)

// DialogEngine advances a ticket's chatbot conversation once a queue with bot
// flows owns it. The engine owns its own dialog-state persistence; the router
// only delegates.
type DialogEngine interface {
	Advance(ctx context.Context, queueID int64, session provider.Session, ticket *domain.Ticket, contact *domain.Contact, ev provider.MessageEvent) error
}

// NoopDialogEngine satisfies DialogEngine for deployments without bot flows.
type NoopDialogEngine struct{}

func (NoopDialogEngine) Advance(context.Context, int64, provider.Session, *domain.Ticket, *domain.Contact, provider.MessageEvent) error {
	return nil
}
