package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/observability"
)

func newAckFixture() (*AckService, *fakeMessageRepo, *recordingDispatcher, *observability.Metrics) {
	messages := newFakeMessageRepo()
	dispatcher := &recordingDispatcher{}
	metrics := observability.NewMetrics()
	svc := NewAckService(messages, dispatcher, zap.NewNop(), metrics, time.Millisecond)
	return svc, messages, dispatcher, metrics
}

func TestReconcileAppliesAck(t *testing.T) {
	svc, messages, dispatcher, metrics := newAckFixture()
	_ = messages.Upsert(context.Background(), &domain.Message{ID: "MSG-1", TicketID: 3, Ack: domain.AckSent})

	require.NoError(t, svc.Reconcile(context.Background(), "MSG-1", domain.AckRead))

	stored, err := messages.GetByID(context.Background(), "MSG-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AckRead, stored.Ack)
	acked := dispatcher.byType("message_acked")
	require.Len(t, acked, 1)
	assert.Equal(t, int64(3), acked[0].TicketID)
	assert.Equal(t, int64(1), metrics.PipelineSnapshot()[observability.CounterAcksApplied])
}

func TestReconcileUnknownMessageIsNoOp(t *testing.T) {
	svc, _, dispatcher, metrics := newAckFixture()

	require.NoError(t, svc.Reconcile(context.Background(), "NEVER-SEEN", domain.AckDelivered))

	assert.Empty(t, dispatcher.byType("message_acked"))
	assert.Zero(t, metrics.PipelineSnapshot()[observability.CounterAcksApplied])
}

func TestReconcileHonorsContextDuringSettle(t *testing.T) {
	messages := newFakeMessageRepo()
	svc := NewAckService(messages, &recordingDispatcher{}, zap.NewNop(), observability.NewMetrics(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Reconcile(ctx, "MSG-1", domain.AckRead)
	assert.ErrorIs(t, err, context.Canceled)
}
