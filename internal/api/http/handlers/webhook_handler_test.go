package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/api/dto"
	"github.com/spec-kit/helpdesk-gateway/internal/config"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/worker"
)

func newWebhookApp(cfg config.WebhookConfig) (*fiber.App, *worker.EventPool) {
	// The pool is never started, so queued work stays queued and the handler
	// can be exercised without the full pipeline behind it.
	pool := worker.NewEventPool(1, 16, zap.NewNop(), observability.NewMetrics())
	handler := NewWebhookHandler(cfg, nil, nil, pool, zap.NewNop())

	app := fiber.New()
	app.Get("/webhooks/meta", handler.Verify)
	app.Post("/webhooks/meta", handler.Receive)
	return app, pool
}

func TestWebhookVerifyHandshake(t *testing.T) {
	app, _ := newWebhookApp(config.WebhookConfig{VerifyToken: "sesame"})

	req := httptest.NewRequest("GET", "/webhooks/meta?hub.mode=subscribe&hub.verify_token=sesame&hub.challenge=42", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/webhooks/meta?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWebhookReceiveRejectsBadSignature(t *testing.T) {
	app, _ := newWebhookApp(config.WebhookConfig{AppSecret: "secret"})

	req := httptest.NewRequest("POST", "/webhooks/meta", bytes.NewReader([]byte(`{"object":"page"}`)))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWebhookReceiveAcksSignedDelivery(t *testing.T) {
	app, _ := newWebhookApp(config.WebhookConfig{AppSecret: "secret"})
	body := []byte(`{"object":"page","entry":[{"id":"1","messaging":[{"sender":{"id":"900"},"recipient":{"id":"100"},"message":{"mid":"m-1","text":"hi"}}]}]}`)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	req := httptest.NewRequest("POST", "/webhooks/meta", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMessagingToEvent(t *testing.T) {
	ev := messagingToEvent(dto.MetaMessaging{
		Sender:    dto.MetaParty{ID: "900"},
		Recipient: dto.MetaParty{ID: "100"},
		Timestamp: 1724500000000,
		Message:   &dto.MetaMessage{MID: "m-1", Text: "hello"},
	})
	assert.Equal(t, "m-1", ev.Key.ID)
	assert.Equal(t, "900", ev.Key.RemoteJid)
	assert.False(t, ev.Key.FromMe)
	assert.Equal(t, "hello", ev.Content.Text)

	// Echo deliveries flip the conversation partner to the recipient.
	echo := messagingToEvent(dto.MetaMessaging{
		Sender:    dto.MetaParty{ID: "100"},
		Recipient: dto.MetaParty{ID: "900"},
		Message:   &dto.MetaMessage{MID: "m-2", Text: "reply", IsEcho: true},
	})
	assert.Equal(t, "900", echo.Key.RemoteJid)
	assert.True(t, echo.Key.FromMe)

	withAttachment := messagingToEvent(dto.MetaMessaging{
		Sender: dto.MetaParty{ID: "900"},
		Message: &dto.MetaMessage{
			MID:         "m-3",
			Attachments: []dto.MetaAttachment{{Type: "image", Payload: dto.MetaAttachmentPayload{URL: "https://cdn.example/img.jpg"}}},
			ReplyTo:     &dto.MetaReplyTo{MID: "m-1"},
		},
	})
	assert.Equal(t, "https://cdn.example/img.jpg", withAttachment.Content.Text)
	assert.Equal(t, "m-1", withAttachment.Content.QuotedStanzaID)
}
