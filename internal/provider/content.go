package provider

import (
	"strings"
	"time"
)

const (
	userJidSuffix  = "@s.whatsapp.net"
	groupJidSuffix = "@g.us"

	statusBroadcastJid = "status@broadcast"
)

// IsGroupJid reports whether the address belongs to a group chat.
func IsGroupJid(jid string) bool {
	return strings.HasSuffix(jid, groupJidSuffix)
}

// Address builds the provider recipient address for a contact number.
func Address(number string, group bool) string {
	if group {
		return number + groupJidSuffix
	}
	return number + userJidSuffix
}

// NumberFromJid strips everything but digits from a jid.
func NumberFromJid(jid string) string {
	var b strings.Builder
	for _, r := range jid {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var textKinds = map[ContentKind]bool{
	KindConversation: true,
	KindExtendedText: true,
}

var mediaKinds = map[ContentKind]bool{
	KindImage:    true,
	KindVideo:    true,
	KindAudio:    true,
	KindDocument: true,
	KindSticker:  true,
}

// HasMedia reports whether the event carries a downloadable binary.
func (e *MessageEvent) HasMedia() bool {
	return mediaKinds[e.Content.Kind]
}

// Body extracts the displayable text of a message: plain text, extended text,
// or a media caption.
func (e *MessageEvent) Body() string {
	if e.Content.Text != "" {
		return e.Content.Text
	}
	return e.Content.Caption
}

// IsValid filters events down to the supported content kinds. Status
// broadcasts and protocol/system messages are rejected before ingestion.
func (e *MessageEvent) IsValid() bool {
	if e.Key.RemoteJid == statusBroadcastJid {
		return false
	}
	return textKinds[e.Content.Kind] || mediaKinds[e.Content.Kind]
}

// droppedStubs are provider stub events that never reach the pipeline.
var droppedStubs = map[StubType]bool{
	StubRevoke:             true,
	StubE2EDeviceChanged:   true,
	StubE2EIdentityChanged: true,
	StubCiphertext:         true,
}

// FilterMessages removes protocol messages and dropped stub types from a
// provider batch.
func FilterMessages(events []MessageEvent) []MessageEvent {
	kept := make([]MessageEvent, 0, len(events))
	for _, ev := range events {
		if ev.Content.Kind == KindProtocol {
			continue
		}
		if droppedStubs[ev.StubType] {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

// MediaFileName derives a stored filename for a media event: the provider's
// document name when present, otherwise timestamp plus mimetype extension.
func (e *MessageEvent) MediaFileName(now time.Time) string {
	if e.Content.FileName != "" {
		return e.Content.FileName
	}
	ext := extFromMimetype(e.Content.Mimetype)
	return strings.TrimSuffix(strings.ReplaceAll(now.UTC().Format("20060102150405.000"), ".", ""), "Z") + "." + ext
}

func extFromMimetype(mimetype string) string {
	parts := strings.SplitN(mimetype, "/", 2)
	if len(parts) != 2 {
		return "bin"
	}
	return strings.SplitN(parts[1], ";", 2)[0]
}

// MediaCategory maps a mimetype to the stored media type, folding application
// payloads into "document".
func MediaCategory(mimetype string) string {
	category := strings.SplitN(mimetype, "/", 2)[0]
	if category == "application" {
		return "document"
	}
	return category
}
