package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/observability"
)

// Task is one unit of pipeline work.
type Task func(ctx context.Context)

// EventPool runs provider events through a bounded queue and a fixed set of
// workers. Ordering is preserved per submission order across the pool; a full
// queue drops the newest event rather than blocking the provider callback.
type EventPool struct {
	tasks   chan Task
	workers int
	logger  *zap.Logger
	metrics *observability.Metrics

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewEventPool constructs a pool with the given worker count and queue depth.
func NewEventPool(workers, queueSize int, logger *zap.Logger, metrics *observability.Metrics) *EventPool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &EventPool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		logger:  logger,
		metrics: metrics,
	}
}

// Start launches the workers. They drain the queue until Stop is called or
// the context is cancelled.
func (p *EventPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (p *EventPool) Stop() {
	p.stopOnce.Do(func() { close(p.tasks) })
	p.wg.Wait()
}

// Submit enqueues a task. It reports false when the queue is full; the caller
// decides whether that loss matters.
func (p *EventPool) Submit(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		p.metrics.IncPipeline(observability.CounterEventsDropped)
		p.logger.Warn("event queue full, dropping task")
		return false
	}
}

func (p *EventPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.execute(ctx, id, task)
		}
	}
}

// execute isolates one task so a panic in a single event cannot take the
// worker down.
func (p *EventPool) execute(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("event task panicked",
				zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	task(ctx)
}
