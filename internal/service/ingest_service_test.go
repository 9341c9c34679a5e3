package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/media"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
	apperrors "github.com/spec-kit/helpdesk-gateway/pkg/util"
)

func newIngestFixture(t *testing.T) (*IngestService, *fakeMessageRepo, *fakeTicketRepo, *recordingDispatcher) {
	t.Helper()
	store, err := media.NewStore(t.TempDir())
	require.NoError(t, err)
	messageRepo := newFakeMessageRepo()
	ticketRepo := newFakeTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewIngestService(messageRepo, ticketRepo, store, dispatcher, zap.NewNop(), observability.NewMetrics(), 2)
	return svc, messageRepo, ticketRepo, dispatcher
}

func textEvent(id, body string) provider.MessageEvent {
	return provider.MessageEvent{
		Key:       provider.MessageKey{ID: id, RemoteJid: "5511999990000@s.whatsapp.net"},
		Timestamp: time.Now(),
		Content:   provider.Content{Kind: provider.KindConversation, Text: body},
	}
}

func seedTicket(repo *fakeTicketRepo) *domain.Ticket {
	repo.seed(domain.Ticket{
		ID: 1, UUID: "u-1", Status: domain.TicketStatusPending,
		Channel: domain.ChannelWhatsApp, ContactID: 7, ChannelNumberID: 1,
		UpdatedAt: time.Now(),
	})
	ticket, _ := repo.GetByID(context.Background(), 1)
	return ticket
}

func TestIngestPersistsTextMessage(t *testing.T) {
	svc, messages, tickets, dispatcher := newIngestFixture(t)
	ticket := seedTicket(tickets)
	contact := &domain.Contact{ID: 7, Number: "5511999990000"}

	message, err := svc.Ingest(context.Background(), nil, textEvent("MSG-1", "Hi"), ticket, contact)
	require.NoError(t, err)

	assert.Equal(t, "MSG-1", message.ID)
	assert.Equal(t, "Hi", message.Body)
	assert.False(t, message.Read)
	require.NotNil(t, message.ContactID)
	assert.Equal(t, int64(7), *message.ContactID)
	assert.NotEmpty(t, message.DataJSON)

	stored, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", stored.LastMessage)

	_, err = messages.GetByID(context.Background(), "MSG-1")
	assert.NoError(t, err)
	assert.Len(t, dispatcher.byType("message_created"), 1)
}

func TestIngestIsIdempotentOnMessageID(t *testing.T) {
	svc, messages, tickets, _ := newIngestFixture(t)
	ticket := seedTicket(tickets)
	contact := &domain.Contact{ID: 7}

	_, err := svc.Ingest(context.Background(), nil, textEvent("MSG-1", "Hi"), ticket, contact)
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), nil, textEvent("MSG-1", "Hi again"), ticket, contact)
	require.NoError(t, err)

	assert.Len(t, messages.order, 1)
	stored, err := messages.GetByID(context.Background(), "MSG-1")
	require.NoError(t, err)
	assert.Equal(t, "Hi again", stored.Body)
}

func TestIngestRejectsUnsupportedKind(t *testing.T) {
	svc, _, tickets, _ := newIngestFixture(t)
	ticket := seedTicket(tickets)

	ev := textEvent("MSG-1", "")
	ev.Content.Kind = provider.KindProtocol

	_, err := svc.Ingest(context.Background(), nil, ev, ticket, nil)
	assert.True(t, apperrors.IsCode(err, "ERR_WAPP_INVALID_KIND"))
}

func TestIngestMarksOwnMessagesRead(t *testing.T) {
	svc, _, tickets, _ := newIngestFixture(t)
	ticket := seedTicket(tickets)

	ev := textEvent("MSG-1", "hello from us")
	ev.Key.FromMe = true

	message, err := svc.Ingest(context.Background(), nil, ev, ticket, &domain.Contact{ID: 7})
	require.NoError(t, err)

	assert.True(t, message.Read)
	assert.Nil(t, message.ContactID)
}

func TestIngestDownloadsMedia(t *testing.T) {
	svc, _, tickets, _ := newIngestFixture(t)
	ticket := seedTicket(tickets)
	session := newFakeSession(1)
	session.media = &provider.MediaPayload{
		Data:     []byte("binary"),
		Mimetype: "image/jpeg",
		FileName: "photo.jpeg",
	}

	ev := provider.MessageEvent{
		Key:       provider.MessageKey{ID: "MSG-IMG", RemoteJid: "5511999990000@s.whatsapp.net"},
		Timestamp: time.Now(),
		Content:   provider.Content{Kind: provider.KindImage, Mimetype: "image/jpeg", Caption: "look"},
	}

	message, err := svc.Ingest(context.Background(), session, ev, ticket, &domain.Contact{ID: 7})
	require.NoError(t, err)

	assert.Equal(t, "photo.jpeg", message.MediaURL)
	assert.Equal(t, "image", message.MediaType)
	assert.Equal(t, "look", message.Body)
}

func TestIngestMediaFailureDropsEvent(t *testing.T) {
	svc, messages, tickets, _ := newIngestFixture(t)
	ticket := seedTicket(tickets)
	session := newFakeSession(1)
	session.mediaErr = errors.New("socket closed")

	ev := provider.MessageEvent{
		Key:     provider.MessageKey{ID: "MSG-IMG", RemoteJid: "5511999990000@s.whatsapp.net"},
		Content: provider.Content{Kind: provider.KindImage, Mimetype: "image/jpeg"},
	}

	_, err := svc.Ingest(context.Background(), session, ev, ticket, &domain.Contact{ID: 7})
	assert.True(t, apperrors.IsCode(err, "ERR_WAPP_DOWNLOAD_MEDIA"))
	_, err = messages.GetByID(context.Background(), "MSG-IMG")
	assert.Error(t, err)
}

func TestIngestResolvesQuotedMessage(t *testing.T) {
	svc, messages, tickets, _ := newIngestFixture(t)
	ticket := seedTicket(tickets)
	_ = messages.Upsert(context.Background(), &domain.Message{ID: "ORIG", TicketID: ticket.ID})

	ev := textEvent("MSG-2", "replying")
	ev.Content.QuotedStanzaID = "ORIG"

	message, err := svc.Ingest(context.Background(), nil, ev, ticket, &domain.Contact{ID: 7})
	require.NoError(t, err)
	require.NotNil(t, message.QuotedMsgID)
	assert.Equal(t, "ORIG", *message.QuotedMsgID)

	// A quoted id never seen stays null instead of failing ingestion.
	ev2 := textEvent("MSG-3", "replying to nothing")
	ev2.Content.QuotedStanzaID = "GONE"
	message, err = svc.Ingest(context.Background(), nil, ev2, ticket, &domain.Contact{ID: 7})
	require.NoError(t, err)
	assert.Nil(t, message.QuotedMsgID)
}
