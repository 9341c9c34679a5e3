package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
	"github.com/spec-kit/helpdesk-gateway/internal/service"
)

// Listener is the bridge between provider session callbacks and the inbound
// pipeline. Session adapters call it from their socket goroutines; every
// event is handed to the pool so callbacks return immediately.
type Listener struct {
	inbound  *service.InboundService
	ack      *service.AckService
	channels repository.ChannelRepository
	pool     *EventPool
	logger   *zap.Logger
}

// NewListener constructs the bridge.
func NewListener(
	inbound *service.InboundService,
	ack *service.AckService,
	channels repository.ChannelRepository,
	pool *EventPool,
	logger *zap.Logger,
) *Listener {
	return &Listener{
		inbound:  inbound,
		ack:      ack,
		channels: channels,
		pool:     pool,
		logger:   logger,
	}
}

// OnMessagesUpsert receives a provider message batch. Protocol and stub noise
// is filtered before anything is queued.
func (l *Listener) OnMessagesUpsert(session provider.Session, upsert provider.MessageUpsert) {
	messages := provider.FilterMessages(upsert.Messages)
	if len(messages) == 0 {
		return
	}
	for _, ev := range messages {
		ev := ev
		l.pool.Submit(func(ctx context.Context) {
			channelNumber, err := l.channelNumber(ctx, session.ID())
			if err != nil {
				l.logger.Error("channel number lookup failed",
					zap.Int64("channel_number_id", session.ID()), zap.Error(err))
				return
			}
			if err := l.inbound.HandleMessage(ctx, session, channelNumber, ev); err != nil {
				l.logger.Error("message handling failed",
					zap.String("message_id", ev.Key.ID),
					zap.Int64("channel_number_id", session.ID()),
					zap.Error(err))
			}
		})
	}
}

// OnMessagesUpdate receives delivery-status updates.
func (l *Listener) OnMessagesUpdate(session provider.Session, updates []provider.AckUpdate) {
	for _, update := range updates {
		update := update
		l.pool.Submit(func(ctx context.Context) {
			if err := l.ack.Reconcile(ctx, update.Key.ID, update.Ack); err != nil {
				l.logger.Error("ack reconciliation failed",
					zap.String("message_id", update.Key.ID), zap.Error(err))
			}
		})
	}
}

// OnCall receives call notifications.
func (l *Listener) OnCall(session provider.Session, call provider.CallEvent) {
	l.pool.Submit(func(ctx context.Context) {
		channelNumber, err := l.channelNumber(ctx, session.ID())
		if err != nil {
			l.logger.Error("channel number lookup failed",
				zap.Int64("channel_number_id", session.ID()), zap.Error(err))
			return
		}
		if err := l.inbound.HandleCall(ctx, session, channelNumber, call); err != nil {
			l.logger.Error("call handling failed",
				zap.String("call_id", call.CallID), zap.Error(err))
		}
	})
}

func (l *Listener) channelNumber(ctx context.Context, id int64) (*domain.ChannelNumber, error) {
	return l.channels.GetByID(ctx, id)
}
