package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/observability"
)

func TestEventPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewEventPool(2, 16, zap.NewNop(), observability.NewMetrics())
	pool.Start(context.Background())

	var done atomic.Int64
	for i := 0; i < 10; i++ {
		ok := pool.Submit(func(context.Context) { done.Add(1) })
		assert.True(t, ok)
	}
	pool.Stop()

	assert.Equal(t, int64(10), done.Load())
}

func TestEventPoolRecoversFromPanics(t *testing.T) {
	pool := NewEventPool(1, 16, zap.NewNop(), observability.NewMetrics())
	pool.Start(context.Background())

	var done atomic.Int64
	pool.Submit(func(context.Context) { panic("boom") })
	pool.Submit(func(context.Context) { done.Add(1) })
	pool.Stop()

	assert.Equal(t, int64(1), done.Load())
}

func TestEventPoolDropsWhenQueueFull(t *testing.T) {
	metrics := observability.NewMetrics()
	// Never started, so nothing drains the queue.
	pool := NewEventPool(1, 1, zap.NewNop(), metrics)

	assert.True(t, pool.Submit(func(context.Context) {}))
	assert.False(t, pool.Submit(func(context.Context) {}))
	assert.Equal(t, int64(1), metrics.PipelineSnapshot()[observability.CounterEventsDropped])
}

func TestEventPoolStopsOnContextCancel(t *testing.T) {
	pool := NewEventPool(1, 4, zap.NewNop(), observability.NewMetrics())
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	cancel()
	finished := make(chan struct{})
	go func() {
		pool.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("workers did not exit on context cancel")
	}
}
