package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
)

// RouterService decides where an unassigned pending ticket goes: straight into
// the only configured queue, into the queue a contact picked from the menu, or
// back to the contact as a debounced queue-selection menu.
type RouterService struct {
	tickets *TicketService
	ingest  *IngestService
	dialog  DialogEngine
	logger  *zap.Logger
	metrics *observability.Metrics

	debounce time.Duration
	clock    clock

	// menuTimers holds the pending menu send per ticket. Each new triggering
	// message cancels and replaces the ticket's timer so a burst of messages
	// produces a single menu.
	mu         sync.Mutex
	menuTimers map[int64]*time.Timer
}

// NewRouterService constructs the router. debounce is the quiet period before
// a selection menu is sent; zero applies the default.
func NewRouterService(
	tickets *TicketService,
	ingest *IngestService,
	dialog DialogEngine,
	logger *zap.Logger,
	metrics *observability.Metrics,
	debounce time.Duration,
) *RouterService {
	if debounce <= 0 {
		debounce = 3 * time.Second
	}
	if dialog == nil {
		dialog = NoopDialogEngine{}
	}
	return &RouterService{
		tickets:    tickets,
		ingest:     ingest,
		dialog:     dialog,
		logger:     logger,
		metrics:    metrics,
		debounce:   debounce,
		clock:      systemClock{},
		menuTimers: make(map[int64]*time.Timer),
	}
}

// Route runs queue selection for a ticket that has no queue and no assignee.
// Tickets already routed fall through to the dialog engine instead.
func (s *RouterService) Route(ctx context.Context, session provider.Session, channelNumber *domain.ChannelNumber, ticket *domain.Ticket, contact *domain.Contact, ev provider.MessageEvent) error {
	if ticket.HasQueue() || ticket.HasAssignee() {
		return s.advanceDialog(ctx, session, ticket, contact, ev)
	}

	queues := channelNumber.Queues
	if len(queues) == 0 {
		return nil
	}

	if len(queues) == 1 {
		// A single queue needs no menu round-trip.
		return s.tickets.AssignQueue(ctx, ticket, queues[0].ID)
	}

	if choice, ok := parseMenuChoice(ev.Content.Text, len(queues)); ok {
		return s.assignChosen(ctx, session, ticket, contact, queues[choice-1])
	}

	s.scheduleMenu(session, channelNumber, ticket, contact, queues)
	return nil
}

// assignChosen routes the ticket into the selected queue and replies with the
// queue's bot-flow menu, or its greeting when it has no flows.
func (s *RouterService) assignChosen(ctx context.Context, session provider.Session, ticket *domain.Ticket, contact *domain.Contact, queue domain.Queue) error {
	s.cancelMenu(ticket.ID)
	if err := s.tickets.AssignQueue(ctx, ticket, queue.ID); err != nil {
		return err
	}

	if len(queue.Chatbots) > 0 {
		return s.sendAutoReply(ctx, session, ticket, contact, chatbotMenu(queue))
	}
	if queue.GreetingMessage != "" {
		return s.sendAutoReply(ctx, session, ticket, contact, queue.GreetingMessage)
	}
	return nil
}

// scheduleMenu arms (or re-arms) the ticket's menu timer. The menu goes out
// only after the contact stops sending for the debounce window.
func (s *RouterService) scheduleMenu(session provider.Session, channelNumber *domain.ChannelNumber, ticket *domain.Ticket, contact *domain.Contact, queues []domain.Queue) {
	body := queueMenu(channelNumber.GreetingMessage, queues)

	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.menuTimers[ticket.ID]; ok {
		timer.Stop()
	}
	ticketID := ticket.ID
	s.menuTimers[ticketID] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.menuTimers, ticketID)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.sendAutoReply(ctx, session, ticket, contact, body); err != nil {
			s.logger.Warn("queue menu send failed",
				zap.Int64("ticket_id", ticketID), zap.Error(err))
			return
		}
		s.metrics.IncPipeline(observability.CounterMenusSent)
	})
}

func (s *RouterService) cancelMenu(ticketID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.menuTimers[ticketID]; ok {
		timer.Stop()
		delete(s.menuTimers, ticketID)
	}
}

func (s *RouterService) advanceDialog(ctx context.Context, session provider.Session, ticket *domain.Ticket, contact *domain.Contact, ev provider.MessageEvent) error {
	if !ticket.HasQueue() || ticket.HasAssignee() || !ticket.IsBot {
		return nil
	}
	return s.dialog.Advance(ctx, *ticket.QueueID, session, ticket, contact, ev)
}

// sendAutoReply expands the template, sends it marked as an automatic reply,
// and records the provider's echo so the sent message shows up on the ticket.
func (s *RouterService) sendAutoReply(ctx context.Context, session provider.Session, ticket *domain.Ticket, contact *domain.Contact, body string) error {
	if session == nil || body == "" {
		return nil
	}
	text := autoReplyMarker + ExpandTemplate(body, contact, s.clock.Now())
	jid := provider.Address(contact.Number, contact.IsGroup)
	echo, err := session.SendMessage(ctx, jid, provider.OutboundContent{Text: text})
	if err != nil {
		return err
	}
	if echo != nil {
		if _, err := s.ingest.Ingest(ctx, session, *echo, ticket, contact); err != nil {
			s.logger.Warn("auto-reply record failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return nil
}

// parseMenuChoice interprets a message body as a 1-based menu selection.
func parseMenuChoice(body string, options int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil || n < 1 || n > options {
		return 0, false
	}
	return n, true
}

// queueMenu renders the channel number's greeting followed by one numbered
// line per queue.
func queueMenu(greeting string, queues []domain.Queue) string {
	var b strings.Builder
	if greeting != "" {
		b.WriteString(greeting)
		b.WriteString("\n")
	}
	for i, queue := range queues {
		fmt.Fprintf(&b, "*%d* - %s\n", i+1, queue.Name)
	}
	return b.String()
}

// chatbotMenu renders a queue's first-level bot options, with the back item.
func chatbotMenu(queue domain.Queue) string {
	var b strings.Builder
	if queue.GreetingMessage != "" {
		b.WriteString(queue.GreetingMessage)
		b.WriteString("\n")
	}
	for i, bot := range queue.Chatbots {
		fmt.Fprintf(&b, "*%d* - %s\n", i+1, bot.Name)
	}
	b.WriteString("*#* - back to main menu\n")
	return b.String()
}
