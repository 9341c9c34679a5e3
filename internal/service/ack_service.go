package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/events"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
)

// AckService reconciles provider delivery-status updates onto stored
// messages. Status updates race the message insert, so reconciliation waits a
// short settle period and treats a still-missing message as a no-op.
type AckService struct {
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	settleDelay time.Duration
	clock       clock
}

// NewAckService constructs the service. settleDelay is the wait before the
// message lookup; zero applies the default.
func NewAckService(
	messages repository.MessageRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
	metrics *observability.Metrics,
	settleDelay time.Duration,
) *AckService {
	if settleDelay <= 0 {
		settleDelay = 500 * time.Millisecond
	}
	return &AckService{
		messages:    messages,
		dispatcher:  dispatcher,
		logger:      logger,
		metrics:     metrics,
		settleDelay: settleDelay,
		clock:       systemClock{},
	}
}

// Reconcile applies an acknowledgment level to the stored message. An update
// for an unknown message id is dropped silently.
func (s *AckService) Reconcile(ctx context.Context, messageID string, ack domain.AckLevel) error {
	select {
	case <-time.After(s.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("ack for unknown message", zap.String("message_id", messageID))
			return nil
		}
		return err
	}

	if err := s.messages.UpdateAck(ctx, messageID, ack); err != nil {
		return err
	}
	s.metrics.IncPipeline(observability.CounterAcksApplied)

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventMessageAcked,
			TicketID:  message.TicketID,
			Timestamp: s.clock.Now(),
			Payload: events.MessageAckedPayload{
				MessageID: messageID,
				Ack:       ack,
			},
		})
	}
	return nil
}
