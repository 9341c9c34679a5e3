package service

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

// autoReplyMarker is an invisible left-to-right mark prefixed to every
// auto-sent message. Self-sent events carrying it are echoes of our own
// sends and are skipped instead of re-processed.
const autoReplyMarker = "\u200e"

// ExpandTemplate substitutes the supported template variables of
// greeting/farewell/out-of-work messages against a contact.
func ExpandTemplate(body string, contact *domain.Contact, now time.Time) string {
	if body == "" {
		return ""
	}
	name := ""
	if contact != nil {
		name = contact.Name
	}
	body = strings.ReplaceAll(body, "{{name}}", name)
	body = strings.ReplaceAll(body, "{{ms}}", salutation(now))
	return body
}

func salutation(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
