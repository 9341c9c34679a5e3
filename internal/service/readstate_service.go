package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/events"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
)

// ReadStateService clears a ticket's unread state locally and propagates read
// receipts to the provider. Local state always wins: provider failures are
// logged, never surfaced.
type ReadStateService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	sessions   *provider.ConnectionManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      clock
}

// NewReadStateService constructs the service.
func NewReadStateService(
	tickets repository.TicketRepository,
	messages repository.MessageRepository,
	sessions *provider.ConnectionManager,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *ReadStateService {
	return &ReadStateService{
		tickets:    tickets,
		messages:   messages,
		sessions:   sessions,
		dispatcher: dispatcher,
		logger:     logger,
		clock:      systemClock{},
	}
}

// MarkRead zeroes the ticket's unread counter, issues provider read receipts
// for whatsapp tickets, and flags the stored inbound messages read. The
// ticket's contact must be loaded.
func (s *ReadStateService) MarkRead(ctx context.Context, ticket *domain.Ticket) error {
	ticket.UnreadMessages = 0
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	if ticket.Channel == domain.ChannelWhatsApp {
		if err := s.sendReceipts(ctx, ticket); err != nil {
			s.logger.Warn("provider read receipt failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if err := s.messages.MarkAllRead(ctx, ticket.ID); err != nil {
		return err
	}

	s.publishUnreadUpdated(ctx, ticket)
	return nil
}

// sendReceipts acknowledges the chat toward the provider. Legacy sessions can
// only acknowledge messages they have fetched; multi-device sessions take the
// stored unread keys directly.
func (s *ReadStateService) sendReceipts(ctx context.Context, ticket *domain.Ticket) error {
	session, err := s.sessions.Get(ticket.ChannelNumberID)
	if err != nil {
		return err
	}
	if ticket.Contact == nil {
		return nil
	}
	jid := provider.Address(ticket.Contact.Number, ticket.IsGroup)

	if session.Kind() == provider.SessionLegacy {
		keys, err := session.FetchHistoricalMessages(ctx, jid, 100)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		return session.MarkRead(ctx, keys)
	}

	unread, err := s.messages.ListUnread(ctx, ticket.ID)
	if err != nil {
		return err
	}
	keys := make([]provider.MessageKey, 0, len(unread))
	for _, message := range unread {
		keys = append(keys, provider.MessageKey{
			ID:          message.ID,
			RemoteJid:   message.RemoteJid,
			Participant: message.Participant,
			FromMe:      message.FromMe,
		})
	}
	if len(keys) == 0 {
		return nil
	}
	return session.MarkRead(ctx, keys)
}

func (s *ReadStateService) publishUnreadUpdated(ctx context.Context, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUnreadUpdated,
		TicketID:  ticket.ID,
		Timestamp: s.clock.Now(),
		Payload: events.UnreadUpdatedPayload{
			Status:         ticket.Status,
			UnreadMessages: ticket.UnreadMessages,
		},
	})
}
