package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/events"
	"github.com/spec-kit/helpdesk-gateway/internal/media"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-gateway/pkg/util"
)

// IngestService converts raw provider events into persisted Messages,
// attaching media and quoted-message links and keeping the ticket's
// last-message snippet current.
type IngestService struct {
	messages   repository.MessageRepository
	tickets    repository.TicketRepository
	store      *media.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	// mediaSlots bounds concurrent media downloads so a slow transfer cannot
	// stall unrelated event processing.
	mediaSlots chan struct{}
	clock      clock
}

// NewIngestService constructs the service. mediaWorkers bounds concurrent
// media downloads.
func NewIngestService(
	messages repository.MessageRepository,
	tickets repository.TicketRepository,
	store *media.Store,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
	metrics *observability.Metrics,
	mediaWorkers int,
) *IngestService {
	if mediaWorkers <= 0 {
		mediaWorkers = 4
	}
	return &IngestService{
		messages:   messages,
		tickets:    tickets,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		mediaSlots: make(chan struct{}, mediaWorkers),
		clock:      systemClock{},
	}
}

// Ingest persists the event as a Message on the ticket. Unsupported content
// kinds are rejected; media download failure drops the event with a
// MediaDownloadError. Ingestion is idempotent on the provider message id.
func (s *IngestService) Ingest(ctx context.Context, session provider.Session, ev provider.MessageEvent, ticket *domain.Ticket, contact *domain.Contact) (*domain.Message, error) {
	if !ev.IsValid() {
		s.metrics.IncPipeline(observability.CounterEventsDropped)
		return nil, apperrors.NewDomainError("ERR_WAPP_INVALID_KIND", "unsupported message content kind", 422, map[string]any{
			"kind": string(ev.Content.Kind),
		})
	}

	quotedID := s.resolveQuoted(ctx, ev)

	body := ev.Body()
	mediaURL := ""
	mediaType := string(ev.Content.Kind)

	if ev.HasMedia() {
		if session == nil {
			s.metrics.IncPipeline(observability.CounterMediaFailed)
			return nil, apperrors.NewMediaDownloadError(errors.New("no session available for media download"))
		}
		payload, err := s.downloadMedia(ctx, session, ev)
		if err != nil {
			s.metrics.IncPipeline(observability.CounterMediaFailed)
			return nil, apperrors.NewMediaDownloadError(err)
		}
		filename := payload.FileName
		if filename == "" {
			filename = ev.MediaFileName(s.clock.Now())
		}
		stored, err := s.store.Save(filename, payload.Data)
		if err != nil {
			s.metrics.IncPipeline(observability.CounterMediaFailed)
			return nil, apperrors.NewMediaDownloadError(err)
		}
		mediaURL = stored
		mediaType = provider.MediaCategory(payload.Mimetype)
		if body == "" {
			body = stored
		}
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	message := &domain.Message{
		ID:          ev.Key.ID,
		TicketID:    ticket.ID,
		Body:        body,
		FromMe:      ev.Key.FromMe,
		Read:        ev.Key.FromMe,
		MediaURL:    mediaURL,
		MediaType:   mediaType,
		QuotedMsgID: quotedID,
		Ack:         ev.Status,
		RemoteJid:   ev.Key.RemoteJid,
		Participant: ev.Key.Participant,
		DataJSON:    string(raw),
	}
	if !ev.Key.FromMe && contact != nil {
		contactID := contact.ID
		message.ContactID = &contactID
	}

	if err := s.messages.Upsert(ctx, message); err != nil {
		return nil, err
	}

	if !message.Read {
		unread, err := s.messages.CountUnread(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		ticket.UnreadMessages = unread
	}
	ticket.LastMessage = body
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.metrics.IncPipeline(observability.CounterEventsIngested)
	s.publishMessageCreated(ctx, message)
	return message, nil
}

// RecordCallLog stores a missed-call marker message on the ticket.
func (s *IngestService) RecordCallLog(ctx context.Context, call provider.CallEvent, ticket *domain.Ticket, contact *domain.Contact, at time.Time) (*domain.Message, error) {
	body := "Missed voice call at " + at.Format("15:04")
	message := &domain.Message{
		ID:        call.CallID,
		TicketID:  ticket.ID,
		Body:      body,
		MediaType: string(provider.KindCallLog),
		RemoteJid: call.From,
	}
	if contact != nil {
		contactID := contact.ID
		message.ContactID = &contactID
	}
	if err := s.messages.Upsert(ctx, message); err != nil {
		return nil, err
	}

	unread, err := s.messages.CountUnread(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.UnreadMessages = unread
	ticket.LastMessage = body
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishMessageCreated(ctx, message)
	return message, nil
}

// resolveQuoted maps the event's reply-context stanza id to a stored message
// id. A missing quoted message leaves the link null.
func (s *IngestService) resolveQuoted(ctx context.Context, ev provider.MessageEvent) *string {
	stanzaID := ev.Content.QuotedStanzaID
	if stanzaID == "" {
		return nil
	}
	quoted, err := s.messages.GetByID(ctx, stanzaID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("quoted message lookup failed", zap.String("stanza_id", stanzaID), zap.Error(err))
		}
		return nil
	}
	return &quoted.ID
}

func (s *IngestService) downloadMedia(ctx context.Context, session provider.Session, ev provider.MessageEvent) (*provider.MediaPayload, error) {
	select {
	case s.mediaSlots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.mediaSlots }()
	return session.DownloadMedia(ctx, ev)
}

func (s *IngestService) publishMessageCreated(ctx context.Context, message *domain.Message) {
	if s.dispatcher == nil {
		return
	}
	preview := message.Body
	if len(preview) > 120 {
		preview = preview[:117] + "..."
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventMessageCreated,
		TicketID:  message.TicketID,
		Timestamp: s.clock.Now(),
		Payload: events.MessageCreatedPayload{
			MessageID:   message.ID,
			FromMe:      message.FromMe,
			BodyPreview: preview,
		},
	})
}
