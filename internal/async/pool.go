package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/metrics"
)

// Pool runs jobs on a fixed set of workers fed by a buffered channel.
type Pool struct {
	hmu      sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
	metrics  *metrics.Metrics
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// base is cancelled when Shutdown stops waiting for running jobs
	base   context.Context
	cancel context.CancelFunc

	// mu is held for reading across a send; Shutdown takes it for writing
	// before closing ch. closing unblocks senders waiting on a full queue.
	mu       sync.RWMutex
	closed   bool
	closing  chan struct{}
	stopOnce sync.Once
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// WithHandler registers the handler for one job kind.
func WithHandler(kind string, h Handler) Option {
	return func(p *Pool) { p.handlers[kind] = h }
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	p := &Pool{
		handlers: map[string]Handler{},
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
		base:     base,
		cancel:   cancel,
		closing:  make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

// Handle registers a handler after construction. It must be called before
// the first job of that kind is enqueued.
func (p *Pool) Handle(kind string, h Handler) {
	p.hmu.Lock()
	defer p.hmu.Unlock()
	p.handlers[kind] = h
}

func (p *Pool) handler(kind string) (Handler, bool) {
	p.hmu.RLock()
	defer p.hmu.RUnlock()
	h, ok := p.handlers[kind]
	return h, ok
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("worker started", "worker_id", workerID)
				for job := range p.ch {
					p.metrics.SetQueueDepth(len(p.ch))
					p.run(workerID, job)
				}
				p.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (p *Pool) run(workerID int, job Job) {
	h, ok := p.handler(job.Kind)
	if !ok {
		p.logger.Error("no handler for job", "worker_id", workerID, "kind", job.Kind, "id", job.ID)
		return
	}
	ctx, cancel := context.WithTimeout(p.base, p.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	ctx = common.WithProjectID(ctx, job.ProjectID.String())

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s job: %v", job.Kind, r)
			}
		}()
		return h(ctx, job)
	}()
	if err != nil {
		p.logger.Error("job failed", "worker_id", workerID, "kind", job.Kind, "id", job.ID, "trace_id", job.TraceID, "error", err)
		return
	}
	p.logger.Info("job done", "worker_id", workerID, "kind", job.Kind, "id", job.ID,
		"waited", time.Since(job.SubmittedAt).Round(time.Millisecond))
}

// Enqueue blocks while the queue is full, until ctx is done.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = common.RequestIDFromContext(ctx)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("cannot enqueue: queue is shutting down", "kind", job.Kind, "id", job.ID)
		return ErrQueueClosed
	}
	select {
	case p.ch <- job:
	default:
		p.logger.Warn("queue full, applying backpressure", "kind", job.Kind, "id", job.ID)
		select {
		case p.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		case <-p.closing:
			p.logger.Warn("cannot enqueue: queue is shutting down", "kind", job.Kind, "id", job.ID)
			return ErrQueueClosed
		}
	}
	p.metrics.SetQueueDepth(len(p.ch))
	p.logger.Debug("job queued", "kind", job.Kind, "id", job.ID)
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones to drain. If ctx
// ends first, running jobs are cancelled and Shutdown waits for them to return.
func (p *Pool) Shutdown(ctx context.Context) {
	first := false
	p.stopOnce.Do(func() {
		first = true
		close(p.closing)
	})
	if !first {
		return
	}
	p.mu.Lock()
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("shutdown interrupted by context, cancelling running jobs")
		p.cancel()
		<-done
	case <-done:
		p.logger.Info("queue drained, shutdown complete")
	}
	p.cancel()
}
