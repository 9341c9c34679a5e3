package provider

import "context"

// SessionKind distinguishes the two socket generations the provider SDK can
// hand us. They differ only in how read receipts are issued; everything else
// goes through the shared capability set.
type SessionKind string

const (
	SessionLegacy      SessionKind = "legacy"
	SessionMultiDevice SessionKind = "md"
)

// OutboundContent is the payload for a send call: plain text, or one media
// binary with caption metadata.
type OutboundContent struct {
	Text     string
	Media    []byte
	Mimetype string
	FileName string
	Caption  string
}

// Session is the capability set the routing core needs from a connected
// provider socket. Concrete implementations wrap the SDK's legacy and
// multi-device socket types and are registered at connection time.
type Session interface {
	// ID is the channel-number id this session serves.
	ID() int64
	Kind() SessionKind

	// SendMessage delivers content to a recipient address and returns the
	// provider's echo of the sent message so callers can record it.
	SendMessage(ctx context.Context, jid string, content OutboundContent) (*MessageEvent, error)

	// MarkRead issues read receipts for the given message keys.
	MarkRead(ctx context.Context, keys []MessageKey) error

	// FetchHistoricalMessages lists recent message keys for a chat. Used by
	// the legacy read path, which can only acknowledge fetched messages.
	FetchHistoricalMessages(ctx context.Context, jid string, limit int) ([]MessageKey, error)

	// DownloadMedia fetches and decrypts the binary attached to an event.
	DownloadMedia(ctx context.Context, ev MessageEvent) (*MediaPayload, error)

	ProfilePictureURL(ctx context.Context, jid string) (string, error)
	GroupMetadata(ctx context.Context, jid string) (GroupInfo, error)
}
