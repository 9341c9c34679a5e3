package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/events"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// --- ticket repository fake ---

type fakeTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[int64]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = r.nextID
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	stored := *ticket
	stored.CreatedAt = existing.CreatedAt
	r.tickets[ticket.ID] = &stored
	return nil
}

// seed stores a ticket verbatim, keeping its timestamps.
func (r *fakeTicketRepo) seed(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID > r.nextID {
		r.nextID = ticket.ID
	}
	r.tickets[ticket.ID] = &ticket
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByIDEager(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTicketRepo) FindActive(_ context.Context, contactID, channelNumberID int64, channel domain.Channel) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ContactID == contactID && ticket.ChannelNumberID == channelNumberID &&
			ticket.Channel == channel && ticket.Status.IsActive() {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) FindActiveByContact(_ context.Context, contactID int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ContactID == contactID && ticket.Status.IsActive() {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) FindLatestByContact(_ context.Context, contactID int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest(func(t *domain.Ticket) bool { return t.ContactID == contactID })
}

func (r *fakeTicketRepo) FindLatest(_ context.Context, contactID, channelNumberID int64, channel domain.Channel) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest(func(t *domain.Ticket) bool {
		return t.ContactID == contactID && t.ChannelNumberID == channelNumberID && t.Channel == channel
	})
}

func (r *fakeTicketRepo) FindLatestWithinWindow(_ context.Context, contactID, channelNumberID int64, channel domain.Channel, since time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest(func(t *domain.Ticket) bool {
		return t.ContactID == contactID && t.ChannelNumberID == channelNumberID &&
			t.Channel == channel && !t.UpdatedAt.Before(since)
	})
}

func (r *fakeTicketRepo) latest(match func(*domain.Ticket) bool) (*domain.Ticket, error) {
	var found *domain.Ticket
	for _, ticket := range r.tickets {
		if !match(ticket) {
			continue
		}
		if found == nil || ticket.UpdatedAt.After(found.UpdatedAt) {
			found = ticket
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *found
	return &copied, nil
}

func (r *fakeTicketRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

// --- message repository fake ---

type fakeMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages map[string]*domain.Message
	order    []string
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*domain.Message)}
}

func (r *fakeMessageRepo) Upsert(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.messages[message.ID]; ok {
		message.CreatedAt = existing.CreatedAt
	} else {
		r.seq++
		message.CreatedAt = time.Unix(int64(r.seq), 0)
		r.order = append(r.order, message.ID)
	}
	message.UpdatedAt = time.Now()
	stored := *message
	r.messages[message.ID] = &stored
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *message
	return &copied, nil
}

func (r *fakeMessageRepo) CountUnread(_ context.Context, ticketID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, message := range r.messages {
		if message.TicketID == ticketID && !message.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) ListUnread(_ context.Context, ticketID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for i := len(r.order) - 1; i >= 0; i-- {
		message := r.messages[r.order[i]]
		if message.TicketID == ticketID && !message.FromMe && !message.Read {
			result = append(result, *message)
		}
	}
	return result, nil
}

func (r *fakeMessageRepo) MarkAllRead(_ context.Context, ticketID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.messages {
		if message.TicketID == ticketID {
			message.Read = true
		}
	}
	return nil
}

func (r *fakeMessageRepo) LastFromMe(_ context.Context, ticketID int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		message := r.messages[r.order[i]]
		if message.TicketID == ticketID && message.FromMe {
			copied := *message
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeMessageRepo) UpdateAck(_ context.Context, id string, ack domain.AckLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return pgx.ErrNoRows
	}
	message.Ack = ack
	return nil
}

// --- contact repository fake ---

type fakeContactRepo struct {
	mu       sync.Mutex
	nextID   int64
	byNumber map[string]*domain.Contact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{byNumber: make(map[string]*domain.Contact)}
}

func (r *fakeContactRepo) Create(_ context.Context, contact *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	contact.ID = r.nextID
	stored := *contact
	r.byNumber[contact.Number] = &stored
	return nil
}

func (r *fakeContactRepo) Update(_ context.Context, contact *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byNumber[contact.Number]; !ok {
		return pgx.ErrNoRows
	}
	stored := *contact
	r.byNumber[contact.Number] = &stored
	return nil
}

func (r *fakeContactRepo) GetByID(_ context.Context, id int64) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, contact := range r.byNumber {
		if contact.ID == id {
			copied := *contact
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeContactRepo) GetByNumber(_ context.Context, number string) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.byNumber[number]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *contact
	return &copied, nil
}

// --- channel repository fake ---

type fakeChannelRepo struct {
	numbers map[int64]*domain.ChannelNumber
}

func newFakeChannelRepo(numbers ...*domain.ChannelNumber) *fakeChannelRepo {
	repo := &fakeChannelRepo{numbers: make(map[int64]*domain.ChannelNumber)}
	for _, cn := range numbers {
		repo.numbers[cn.ID] = cn
	}
	return repo
}

func (r *fakeChannelRepo) GetByID(_ context.Context, id int64) (*domain.ChannelNumber, error) {
	cn, ok := r.numbers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cn, nil
}

func (r *fakeChannelRepo) GetDefault(_ context.Context, channel domain.Channel) (*domain.ChannelNumber, error) {
	for _, cn := range r.numbers {
		if cn.Channel == channel && cn.IsDefault {
			return cn, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// --- provider session fake ---

type sentMessage struct {
	jid     string
	content provider.OutboundContent
}

type fakeSession struct {
	mu   sync.Mutex
	id   int64
	kind provider.SessionKind

	sent     []sentMessage
	sendErr  error
	marked   [][]provider.MessageKey
	markErr  error
	history  []provider.MessageKey
	media    *provider.MediaPayload
	mediaErr error
	picURL   string
	picErr   error
	group    provider.GroupInfo
}

func newFakeSession(id int64) *fakeSession {
	return &fakeSession{id: id, kind: provider.SessionMultiDevice}
}

func (s *fakeSession) ID() int64                  { return s.id }
func (s *fakeSession) Kind() provider.SessionKind { return s.kind }

func (s *fakeSession) SendMessage(_ context.Context, jid string, content provider.OutboundContent) (*provider.MessageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = append(s.sent, sentMessage{jid: jid, content: content})
	return &provider.MessageEvent{
		Key: provider.MessageKey{
			ID:        fmt.Sprintf("SENT-%d", len(s.sent)),
			RemoteJid: jid,
			FromMe:    true,
		},
		Timestamp: time.Now(),
		Content:   provider.Content{Kind: provider.KindConversation, Text: content.Text},
	}, nil
}

func (s *fakeSession) MarkRead(_ context.Context, keys []provider.MessageKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, keys)
	return nil
}

func (s *fakeSession) FetchHistoricalMessages(_ context.Context, _ string, _ int) ([]provider.MessageKey, error) {
	return s.history, nil
}

func (s *fakeSession) DownloadMedia(_ context.Context, _ provider.MessageEvent) (*provider.MediaPayload, error) {
	if s.mediaErr != nil {
		return nil, s.mediaErr
	}
	if s.media == nil {
		return nil, errors.New("no media configured")
	}
	return s.media, nil
}

func (s *fakeSession) ProfilePictureURL(_ context.Context, _ string) (string, error) {
	return s.picURL, s.picErr
}

func (s *fakeSession) GroupMetadata(_ context.Context, jid string) (provider.GroupInfo, error) {
	if s.group.JID == "" {
		return provider.GroupInfo{JID: jid}, nil
	}
	return s.group, nil
}

func (s *fakeSession) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeSession) sentAt(i int) sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[i]
}

// --- dispatcher fake ---

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
