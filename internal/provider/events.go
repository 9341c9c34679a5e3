package provider

import (
	"time"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

// UpsertType tags a message batch pushed by the provider.
type UpsertType string

const (
	UpsertNotify UpsertType = "notify"
	UpsertAppend UpsertType = "append"
)

// MessageKey addresses a single provider message.
type MessageKey struct {
	ID          string `json:"id"`
	RemoteJid   string `json:"remoteJid"`
	Participant string `json:"participant,omitempty"`
	FromMe      bool   `json:"fromMe"`
}

// StubType marks provider protocol/system events that carry no chat content.
type StubType int

const (
	StubNone StubType = iota
	StubRevoke
	StubE2EDeviceChanged
	StubE2EIdentityChanged
	StubCiphertext
	StubCall
)

// ContentKind is the provider's content-type tag for a message.
type ContentKind string

const (
	KindConversation ContentKind = "conversation"
	KindExtendedText ContentKind = "extendedTextMessage"
	KindImage        ContentKind = "imageMessage"
	KindVideo        ContentKind = "videoMessage"
	KindAudio        ContentKind = "audioMessage"
	KindDocument     ContentKind = "documentMessage"
	KindSticker      ContentKind = "stickerMessage"
	KindProtocol     ContentKind = "protocolMessage"
	KindCallLog      ContentKind = "call_log"
)

// Content is the decoded payload of a message event.
type Content struct {
	Kind           ContentKind `json:"kind"`
	Text           string      `json:"text,omitempty"`
	Caption        string      `json:"caption,omitempty"`
	Mimetype       string      `json:"mimetype,omitempty"`
	FileName       string      `json:"fileName,omitempty"`
	QuotedStanzaID string      `json:"quotedStanzaId,omitempty"`
}

// MessageEvent is one raw message pushed by a provider session.
type MessageEvent struct {
	Key       MessageKey      `json:"key"`
	PushName  string          `json:"pushName,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Status    domain.AckLevel `json:"status"`
	StubType  StubType        `json:"stubType,omitempty"`
	Content   Content         `json:"content"`
	// UnreadCount is the provider's chat unread counter at delivery time,
	// when the session exposes one. Zero means unknown.
	UnreadCount int `json:"unreadCount,omitempty"`
}

// MessageUpsert is a batch of new or updated messages.
type MessageUpsert struct {
	Messages []MessageEvent
	Type     UpsertType
}

// AckUpdate carries a delivery/read status change for one message.
type AckUpdate struct {
	Key MessageKey
	Ack domain.AckLevel
}

// ContactUpsert is a provider-pushed contact snapshot.
type ContactUpsert struct {
	JID  string
	Name string
}

// CallEvent is an incoming call notification.
type CallEvent struct {
	From       string
	CallID     string
	Terminated bool
}

// GroupInfo is the metadata lookup result for a group jid.
type GroupInfo struct {
	JID     string
	Subject string
}

// MediaPayload is a decrypted media download.
type MediaPayload struct {
	Data     []byte
	Mimetype string
	FileName string
}
