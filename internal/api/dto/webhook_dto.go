package dto

// MetaWebhookPayload is the envelope Meta posts for messenger and instagram
// subscriptions.
type MetaWebhookPayload struct {
	Object string      `json:"object"`
	Entry  []MetaEntry `json:"entry"`
}

// MetaEntry is one page/account entry inside a webhook delivery.
type MetaEntry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Messaging []MetaMessaging `json:"messaging"`
}

// MetaMessaging is a single messaging event.
type MetaMessaging struct {
	Sender    MetaParty    `json:"sender"`
	Recipient MetaParty    `json:"recipient"`
	Timestamp int64        `json:"timestamp"`
	Message   *MetaMessage `json:"message,omitempty"`
	Read      *MetaRead    `json:"read,omitempty"`
}

// MetaParty identifies a conversation participant by page-scoped id.
type MetaParty struct {
	ID string `json:"id"`
}

// MetaMessage is the message body of a messaging event.
type MetaMessage struct {
	MID         string           `json:"mid"`
	Text        string           `json:"text"`
	IsEcho      bool             `json:"is_echo"`
	ReplyTo     *MetaReplyTo     `json:"reply_to,omitempty"`
	Attachments []MetaAttachment `json:"attachments,omitempty"`
}

// MetaReplyTo references the quoted message.
type MetaReplyTo struct {
	MID string `json:"mid"`
}

// MetaAttachment is a hosted media reference; the binary stays on Meta's CDN.
type MetaAttachment struct {
	Type    string                `json:"type"`
	Payload MetaAttachmentPayload `json:"payload"`
}

// MetaAttachmentPayload carries the CDN url.
type MetaAttachmentPayload struct {
	URL string `json:"url"`
}

// MetaRead is a read-watermark event.
type MetaRead struct {
	Watermark int64 `json:"watermark"`
}

// MarkReadResponse is returned after an agent opens a ticket.
type MarkReadResponse struct {
	TicketID       int64 `json:"ticket_id"`
	UnreadMessages int   `json:"unread_messages"`
}
