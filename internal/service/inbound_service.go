package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/config"
	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-gateway/pkg/util"
)

// callRejectNotice is sent back when a rejected voice call terminates.
const callRejectNotice = "Voice calls are not answered on this number. Please send a text message instead."

// InboundService drives one provider event through the whole pipeline:
// contact resolution, ticket matching, ingestion, and routing.
type InboundService struct {
	contacts *ContactService
	tickets  *TicketService
	ingest   *IngestService
	router   *RouterService
	hours    *HoursGate
	messages repository.MessageRepository
	policy   config.PipelineConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
	clock    clock
}

// NewInboundService constructs the pipeline orchestrator.
func NewInboundService(
	contacts *ContactService,
	tickets *TicketService,
	ingest *IngestService,
	router *RouterService,
	hours *HoursGate,
	messages repository.MessageRepository,
	policy config.PipelineConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *InboundService {
	return &InboundService{
		contacts: contacts,
		tickets:  tickets,
		ingest:   ingest,
		router:   router,
		hours:    hours,
		messages: messages,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
		clock:    systemClock{},
	}
}

// HandleMessage processes a single message event end to end. Events the
// pipeline does not handle (status broadcasts, unsupported kinds, auto-reply
// echoes, blocked groups) are dropped without error.
func (s *InboundService) HandleMessage(ctx context.Context, session provider.Session, channelNumber *domain.ChannelNumber, ev provider.MessageEvent) error {
	if !ev.IsValid() {
		s.metrics.IncPipeline(observability.CounterEventsDropped)
		return nil
	}

	isGroup := provider.IsGroupJid(ev.Key.RemoteJid)
	if isGroup && s.policy.BlockGroupMessages {
		s.metrics.IncPipeline(observability.CounterEventsDropped)
		return nil
	}

	// Echoes of our own auto-replies come back as self-sent events carrying
	// the invisible marker; re-processing them would loop.
	if ev.Key.FromMe && strings.HasPrefix(ev.Body(), autoReplyMarker) {
		return nil
	}

	contact, groupContact, err := s.resolveContacts(ctx, session, ev, isGroup)
	if err != nil {
		return err
	}

	if s.isFarewellEcho(ev, contact, channelNumber) {
		return nil
	}

	hadActive := false
	if ev.Key.FromMe && s.policy.CloseOnOwnMessage {
		hadActive, err = s.tickets.HasActiveTicket(ctx, contact.ID)
		if err != nil {
			return err
		}
	}

	ticket, err := s.tickets.FindOrCreate(ctx, MatchInput{
		Contact:         contact,
		GroupContact:    groupContact,
		ChannelNumberID: channelNumber.ID,
		Channel:         channelNumber.Channel,
		UnreadMessages:  eventUnread(ev),
	})
	if err != nil {
		return err
	}

	if _, err := s.ingest.Ingest(ctx, session, ev, ticket, contact); err != nil {
		if apperrors.IsCode(err, "ERR_WAPP_INVALID_KIND") {
			return nil
		}
		return err
	}

	if ev.Key.FromMe {
		// An own outbound message to a contact with no prior conversation can
		// be configured to open-and-close, keeping the pending list clean.
		if s.policy.CloseOnOwnMessage && !hadActive && !isGroup {
			return s.tickets.Close(ctx, ticket)
		}
		return nil
	}

	if isGroup {
		return nil
	}

	now := s.clock.Now()
	if !s.hours.IsWithinBusinessHours(channelNumber, now) {
		return s.sendOutOfWorkNotice(ctx, session, channelNumber, ticket, contact)
	}
	return s.router.Route(ctx, session, channelNumber, ticket, contact, ev)
}

// HandleCall records a missed voice call on the contact's ticket and, when
// call rejection is on, replies that calls are not answered.
func (s *InboundService) HandleCall(ctx context.Context, session provider.Session, channelNumber *domain.ChannelNumber, call provider.CallEvent) error {
	if !s.policy.RejectCalls || !call.Terminated {
		return nil
	}

	contact, err := s.contacts.Resolve(ctx, session, Identity{JID: call.From})
	if err != nil {
		return err
	}
	ticket, err := s.tickets.FindOrCreate(ctx, MatchInput{
		Contact:         contact,
		ChannelNumberID: channelNumber.ID,
		Channel:         channelNumber.Channel,
		UnreadMessages:  1,
	})
	if err != nil {
		return err
	}

	if session != nil {
		jid := provider.Address(contact.Number, false)
		text := autoReplyMarker + ExpandTemplate(callRejectNotice, contact, s.clock.Now())
		if _, err := session.SendMessage(ctx, jid, provider.OutboundContent{Text: text}); err != nil {
			s.logger.Warn("call reject notice failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	_, err = s.ingest.RecordCallLog(ctx, call, ticket, contact, s.clock.Now())
	return err
}

// resolveContacts normalizes the event's sender, plus the group it arrived in
// when applicable. In groups the message contact is the participant and the
// ticket contact is the group itself.
func (s *InboundService) resolveContacts(ctx context.Context, session provider.Session, ev provider.MessageEvent, isGroup bool) (*domain.Contact, *domain.Contact, error) {
	senderJid := ev.Key.RemoteJid
	if isGroup && ev.Key.Participant != "" {
		senderJid = ev.Key.Participant
	}
	senderName := ev.PushName
	if ev.Key.FromMe {
		// Self-sent events carry no push name worth keeping.
		senderName = ""
	}

	contact, err := s.contacts.Resolve(ctx, session, Identity{JID: senderJid, Name: senderName})
	if err != nil {
		return nil, nil, err
	}
	if !isGroup {
		return contact, nil, nil
	}

	groupName := ""
	if session != nil {
		info, err := session.GroupMetadata(ctx, ev.Key.RemoteJid)
		if err != nil {
			s.logger.Warn("group metadata fetch failed",
				zap.String("jid", ev.Key.RemoteJid), zap.Error(err))
		} else {
			groupName = info.Subject
		}
	}
	groupContact, err := s.contacts.Resolve(ctx, session, Identity{JID: ev.Key.RemoteJid, Name: groupName})
	if err != nil {
		return nil, nil, err
	}
	return contact, groupContact, nil
}

// isFarewellEcho detects the self-sent echo of the farewell message an agent
// closed the ticket with. Letting it through would immediately reopen the
// ticket just closed.
func (s *InboundService) isFarewellEcho(ev provider.MessageEvent, contact *domain.Contact, channelNumber *domain.ChannelNumber) bool {
	if !ev.Key.FromMe || channelNumber.FarewellMessage == "" {
		return false
	}
	body := strings.TrimPrefix(ev.Body(), autoReplyMarker)
	return body == ExpandTemplate(channelNumber.FarewellMessage, contact, s.clock.Now())
}

// sendOutOfWorkNotice replies with the configured out-of-hours message, at
// most once per quiet period: when the last own message on the ticket already
// is the notice, nothing is sent. Tickets owned by a human agent never get
// the notice; the agent's replies stand on their own.
func (s *InboundService) sendOutOfWorkNotice(ctx context.Context, session provider.Session, channelNumber *domain.ChannelNumber, ticket *domain.Ticket, contact *domain.Contact) error {
	if ticket.HasAssignee() {
		return nil
	}
	if channelNumber.OutOfWorkMessage == "" || session == nil {
		return nil
	}

	text := autoReplyMarker + ExpandTemplate(channelNumber.OutOfWorkMessage, contact, s.clock.Now())
	last, err := s.messages.LastFromMe(ctx, ticket.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if last != nil && last.Body == text {
		return nil
	}

	jid := provider.Address(contact.Number, contact.IsGroup)
	echo, err := session.SendMessage(ctx, jid, provider.OutboundContent{Text: text})
	if err != nil {
		return err
	}
	if echo != nil {
		if _, err := s.ingest.Ingest(ctx, session, *echo, ticket, contact); err != nil {
			s.logger.Warn("out-of-work notice record failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return nil
}

// eventUnread derives the unread counter applied to a ticket created by this
// event.
func eventUnread(ev provider.MessageEvent) int {
	if ev.Key.FromMe {
		return 0
	}
	if ev.UnreadCount > 0 {
		return ev.UnreadCount
	}
	return 1
}
