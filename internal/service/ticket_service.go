package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/events"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-gateway/pkg/util"
)

// TicketService owns ticket matching and lifecycle: given an inbound event's
// contact it finds the active conversation, reopens a recent one, or creates
// a new thread, keeping at most one open/pending ticket per
// (contact, channel number, channel) triple.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	channels   repository.ChannelRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	// matchLocks serialises the find-or-create sequence per triple. Two
	// near-simultaneous events from the same contact would otherwise both
	// observe "no active ticket" and both create one.
	matchLocks keyMutex

	clock clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	ChannelRepo repository.ChannelRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		channels:   deps.ChannelRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		clock:      systemClock{},
	}
}

// MatchInput describes one inbound event for ticket matching.
type MatchInput struct {
	Contact         *domain.Contact
	GroupContact    *domain.Contact
	ChannelNumberID int64
	Channel         domain.Channel
	// UnreadMessages is the event-derived unread count applied to tickets
	// created by this event.
	UnreadMessages int
}

func (in MatchInput) effectiveContact() *domain.Contact {
	if in.GroupContact != nil {
		return in.GroupContact
	}
	return in.Contact
}

// FindOrCreate resolves the ticket an inbound event belongs to.
//
// Precedence: an existing open/pending ticket for the exact triple wins and
// is never re-routed; otherwise the most recent prior ticket is reopened when
// the group, reopen-policy, or time-window rules allow; otherwise a new
// pending ticket is created. The returned ticket is always re-fetched through
// the eager accessor.
func (s *TicketService) FindOrCreate(ctx context.Context, input MatchInput) (*domain.Ticket, error) {
	if input.Contact == nil {
		return nil, apperrors.NewDomainError("ERR_NO_CONTACT_FOUND", "contact required for ticket matching", 400, nil)
	}
	if input.ChannelNumberID == 0 {
		return nil, apperrors.NewDomainError("ERR_NO_WHATSAPP_FOUND", "channel number required for ticket matching", 400, nil)
	}

	contact := input.effectiveContact()
	lockKey := fmt.Sprintf("%d:%d:%s", contact.ID, input.ChannelNumberID, input.Channel)
	s.matchLocks.Lock(lockKey)
	defer s.matchLocks.Unlock(lockKey)

	ticket, err := s.findActive(ctx, contact.ID, input)
	if err != nil {
		return nil, err
	}

	if ticket == nil && input.GroupContact != nil {
		ticket, err = s.reopenLatestGroup(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	if ticket == nil && input.GroupContact == nil {
		ticket, err = s.reopenByPolicy(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	if ticket == nil {
		ticket = &domain.Ticket{
			UUID:            uuid.NewString(),
			Status:          domain.TicketStatusPending,
			UnreadMessages:  input.UnreadMessages,
			IsGroup:         input.GroupContact != nil,
			IsBot:           true,
			Channel:         input.Channel,
			ContactID:       contact.ID,
			ChannelNumberID: input.ChannelNumberID,
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return nil, err
		}
		s.metrics.IncPipeline(observability.CounterTicketsCreated)
	} else {
		s.metrics.IncPipeline(observability.CounterTicketsReused)
	}

	return s.tickets.GetByIDEager(ctx, ticket.ID)
}

// findActive is step one: an open/pending ticket for the exact triple is
// reused as-is, with its unread count recomputed from storage.
func (s *TicketService) findActive(ctx context.Context, contactID int64, input MatchInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindActive(ctx, contactID, input.ChannelNumberID, input.Channel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	unread, err := s.messages.CountUnread(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.UnreadMessages = unread
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// reopenLatestGroup reuses a group's most recent ticket regardless of status.
func (s *TicketService) reopenLatestGroup(ctx context.Context, input MatchInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindLatest(ctx, input.GroupContact.ID, input.ChannelNumberID, input.Channel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s.reopen(ctx, ticket, input.Channel)
}

// reopenByPolicy applies the channel number's reopen configuration: with
// reopen-last-ticket on, the contact's latest ticket anywhere is resumed;
// otherwise only a ticket for the exact triple updated inside the
// time-new-ticket window qualifies.
func (s *TicketService) reopenByPolicy(ctx context.Context, input MatchInput) (*domain.Ticket, error) {
	channelNumber, err := s.channels.GetByID(ctx, input.ChannelNumberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewDomainError("ERR_NO_WHATSAPP_FOUND", "channel number not found", 404, map[string]any{
				"channel_number_id": input.ChannelNumberID,
			})
		}
		return nil, err
	}

	var ticket *domain.Ticket
	if channelNumber.ReopenLastTicket {
		ticket, err = s.tickets.FindLatestByContact(ctx, input.Contact.ID)
	} else {
		since := s.clock.Now().Add(-time.Duration(channelNumber.TimeNewTicket) * time.Minute)
		ticket, err = s.tickets.FindLatestWithinWindow(ctx, input.Contact.ID, input.ChannelNumberID, input.Channel, since)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s.reopen(ctx, ticket, input.Channel)
}

// reopen puts a prior ticket back into the pending flow: unassigned, bot
// active, unread count recomputed.
func (s *TicketService) reopen(ctx context.Context, ticket *domain.Ticket, channel domain.Channel) (*domain.Ticket, error) {
	unread, err := s.messages.CountUnread(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	ticket.Status = domain.TicketStatusPending
	ticket.UserID = nil
	ticket.IsBot = true
	ticket.Channel = channel
	ticket.UnreadMessages = unread
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishTicketUpdated(ctx, ticket)
	return ticket, nil
}

// HasActiveTicket reports whether the contact already has any open/pending
// ticket, on any channel number. The inbound handler snapshots this before
// matching to drive the close-on-own-message policy.
func (s *TicketService) HasActiveTicket(ctx context.Context, contactID int64) (bool, error) {
	_, err := s.tickets.FindActiveByContact(ctx, contactID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AssignQueue routes the ticket into a queue.
func (s *TicketService) AssignQueue(ctx context.Context, ticket *domain.Ticket, queueID int64) error {
	ticket.QueueID = &queueID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	s.publishTicketUpdated(ctx, ticket)
	return nil
}

// Close transitions the ticket to closed and broadcasts a delete toward the
// pending list.
func (s *TicketService) Close(ctx context.Context, ticket *domain.Ticket) error {
	previous := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Payload:  events.TicketDeletedPayload{Status: previous},
	})
	return nil
}

func (s *TicketService) publishTicketUpdated(ctx context.Context, ticket *domain.Ticket) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Payload: events.TicketUpdatedPayload{
			Status:  ticket.Status,
			QueueID: ticket.QueueID,
			UserID:  ticket.UserID,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
