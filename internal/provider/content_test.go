package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJidHelpers(t *testing.T) {
	assert.True(t, IsGroupJid("12036304@g.us"))
	assert.False(t, IsGroupJid("5511999990000@s.whatsapp.net"))

	assert.Equal(t, "5511999990000@s.whatsapp.net", Address("5511999990000", false))
	assert.Equal(t, "12036304@g.us", Address("12036304", true))

	assert.Equal(t, "5511999990000", NumberFromJid("5511999990000@s.whatsapp.net"))
	assert.Equal(t, "5511999990000", NumberFromJid("+55 (11) 99999-0000"))
}

func TestMessageEventBody(t *testing.T) {
	ev := MessageEvent{Content: Content{Kind: KindConversation, Text: "hello"}}
	assert.Equal(t, "hello", ev.Body())

	ev = MessageEvent{Content: Content{Kind: KindImage, Caption: "look at this"}}
	assert.Equal(t, "look at this", ev.Body())
	assert.True(t, ev.HasMedia())
}

func TestMessageEventIsValid(t *testing.T) {
	valid := MessageEvent{
		Key:     MessageKey{ID: "1", RemoteJid: "5511999990000@s.whatsapp.net"},
		Content: Content{Kind: KindConversation, Text: "hi"},
	}
	assert.True(t, valid.IsValid())

	broadcast := valid
	broadcast.Key.RemoteJid = "status@broadcast"
	assert.False(t, broadcast.IsValid())

	protocol := valid
	protocol.Content.Kind = KindProtocol
	assert.False(t, protocol.IsValid())

	callLog := valid
	callLog.Content.Kind = KindCallLog
	assert.False(t, callLog.IsValid())
}

func TestFilterMessagesDropsProtocolAndStubs(t *testing.T) {
	batch := []MessageEvent{
		{Key: MessageKey{ID: "keep"}, Content: Content{Kind: KindConversation, Text: "hi"}},
		{Key: MessageKey{ID: "proto"}, Content: Content{Kind: KindProtocol}},
		{Key: MessageKey{ID: "revoked"}, StubType: StubRevoke},
		{Key: MessageKey{ID: "cipher"}, StubType: StubCiphertext},
		{Key: MessageKey{ID: "call"}, StubType: StubCall, Content: Content{Kind: KindCallLog}},
	}

	kept := FilterMessages(batch)
	assert.Len(t, kept, 2)
	assert.Equal(t, "keep", kept[0].Key.ID)
	// Call stubs pass the filter; the pipeline decides what to do with them.
	assert.Equal(t, "call", kept[1].Key.ID)
}

func TestMediaFileName(t *testing.T) {
	named := MessageEvent{Content: Content{Kind: KindDocument, FileName: "invoice.pdf", Mimetype: "application/pdf"}}
	assert.Equal(t, "invoice.pdf", named.MediaFileName(time.Now()))

	unnamed := MessageEvent{Content: Content{Kind: KindImage, Mimetype: "image/jpeg"}}
	name := unnamed.MediaFileName(time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC))
	assert.Contains(t, name, ".jpeg")
	assert.Contains(t, name, "20260824")
}

func TestMediaCategory(t *testing.T) {
	assert.Equal(t, "image", MediaCategory("image/jpeg"))
	assert.Equal(t, "audio", MediaCategory("audio/ogg; codecs=opus"))
	assert.Equal(t, "document", MediaCategory("application/pdf"))
}
