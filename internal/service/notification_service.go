package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/events"
)

// NotificationService relays pipeline events onto Redis pub/sub channels so
// attached frontends see ticket and message changes in real time.
//
// Channel layout: every event goes to tickets:<id>; status-affecting events
// additionally go to tickets:status:<status>, and events that should raise an
// operator alert go to notification.
type NotificationService struct {
	client *redis.Client
	logger *zap.Logger
}

// NewNotificationService constructs the relay.
func NewNotificationService(client *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{client: client, logger: logger}
}

// Register subscribes the relay to every event type the pipeline publishes.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketUpdated,
		events.EventTicketDeleted,
		events.EventUnreadUpdated,
		events.EventMessageCreated,
		events.EventMessageAcked,
	} {
		dispatcher.Subscribe(eventType, s.relay)
	}
}

func (s *NotificationService) relay(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channels := []string{fmt.Sprintf("tickets:%d", event.TicketID)}
	switch typed := event.Payload.(type) {
	case events.TicketUpdatedPayload:
		channels = append(channels, "tickets:status:"+string(typed.Status))
	case events.TicketDeletedPayload:
		channels = append(channels, "tickets:status:"+string(typed.Status))
	case events.UnreadUpdatedPayload:
		channels = append(channels, "tickets:status:"+string(typed.Status))
		if typed.UnreadMessages > 0 {
			channels = append(channels, "notification")
		}
	case events.MessageCreatedPayload:
		if !typed.FromMe {
			channels = append(channels, "notification")
		}
	}

	for _, channel := range channels {
		if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
			s.logger.Warn("notification publish failed",
				zap.String("channel", channel), zap.Error(err))
		}
	}
	return nil
}
