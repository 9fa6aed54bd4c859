// Package worker drains battle requests and hands them to a Handler.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/mq/queue"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Handler runs the work behind one request. Errors are logged and counted;
// the worker moves on to the next request.
type Handler interface {
	HandleBattleRequest(ctx context.Context, r queue.Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, r queue.Request) error

// HandleBattleRequest implements Handler.
func (f HandlerFunc) HandleBattleRequest(ctx context.Context, r queue.Request) error {
	return f(ctx, r)
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Request
}

// Worker processes requests until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the request in hand, if any.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string
	busy    *atomic.Int32 // shared with the pool for the active gauge

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		handler:  h,
		name:     "worker",
		busy:     new(atomic.Int32),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "battle request failed",
					logger.String("request_id", r.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, r queue.Request) error {
	start := time.Now()
	w.busy.Add(1)
	defer func() {
		w.busy.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	w.logger.Debug(ctx, "handling battle request",
		logger.String("request_id", r.ID), logger.String("reason", r.Reason))
	if err := w.handler.HandleBattleRequest(ctx, r); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "handler_error")
		return fmt.Errorf("request %s: %w", r.ID, err)
	}
	return nil
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	busy    *atomic.Int32

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates workerCount workers. Counts below one mean one worker:
// battles drive a single engine and gain nothing from parallel runs.
func NewPool(workerCount int, q Queue, h Handler) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		busy:     new(atomic.Int32),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, h, WithName("worker-"+strconv.Itoa(i)))
		w.busy = p.busy
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns how many workers are handling a request right now.
func (p *Pool) Active() int { return int(p.busy.Load()) }

// Start starts every worker and the gauge refresher.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.refreshGauges(ctx)
}

func (p *Pool) refreshGauges(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			active := p.Active()
			metrics.UpdateWorkerActiveCount(active)
			metrics.UpdateWorkerIdleCount(len(p.workers) - active)
		}
	}
}

// Shutdown closes the queue when it can be closed, then waits for workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	select {
	case <-p.shutdown:
	default:
		close(p.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
