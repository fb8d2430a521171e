// Package worker runs analysis jobs off the queue and files their results.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/evalmatrix/internal/adapters/mq/queue"
	"github.com/okian/evalmatrix/internal/adapters/repository"
	"github.com/okian/evalmatrix/internal/domain/analysis"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/okian/evalmatrix/pkg/logger"
	"github.com/okian/evalmatrix/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Analyzer turns a snapshot into an analysis.
type Analyzer interface {
	Analyze(ctx context.Context, snap types.Snapshot) (types.Analysis, error)
}

// Recorder files a finished analysis under its generation.
type Recorder interface {
	FinishAnalysis(ctx context.Context, id string, gen uint64, view types.AnalysisView) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	recorder Recorder
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, analyzer Analyzer, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: analyzer,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing analysis job",
					logger.String("session", j.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	result, err := w.analyzer.Analyze(ctx, j.Snapshot)
	latency := float64(time.Since(start).Milliseconds())

	view := types.AnalysisView{UpdatedAt: time.Now().UTC().Format(time.RFC3339)}
	if err != nil {
		outcome, message := Classify(err)
		metrics.RecordAnalysis(outcome, latency)
		view.Status = types.AnalysisFailed
		view.Error = message
		view.Retryable = true
		w.logger.Warn(ctx, "analysis failed",
			logger.String("session", j.SessionID),
			logger.String("outcome", outcome),
			logger.Error(err),
		)
	} else {
		metrics.RecordAnalysis(metrics.OutcomeOK, latency)
		view.Status = types.AnalysisReady
		view.Result = &result
	}

	if err := w.recorder.FinishAnalysis(ctx, j.SessionID, j.Gen, view); err != nil {
		if errors.Is(err, repository.ErrStaleResult) || errors.Is(err, repository.ErrNotFound) {
			w.logger.Debug(ctx, "analysis result discarded",
				logger.String("session", j.SessionID),
				logger.Error(err),
			)
			return nil
		}
		return fmt.Errorf("file analysis for %s: %w", j.SessionID, err)
	}
	return nil
}

// Classify maps an analyzer error onto a metrics outcome and the message
// shown to users.
func Classify(err error) (outcome, message string) {
	var se *analysis.ServiceError
	switch {
	case errors.Is(err, analysis.ErrTimeout):
		return metrics.OutcomeTimeout, analysis.ErrTimeout.Error()
	case errors.As(err, &se):
		return metrics.OutcomeServiceError, se.Message
	default:
		return metrics.OutcomeError, analysis.GenericFailure
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	cancel  context.CancelFunc
	logger  logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, analyzer Analyzer, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Default().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, analyzer, recorder, wopts...)
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateAnalysisWorkers(len(p.workers))
}

// Shutdown closes the queue, lets workers drain it and waits for them. Jobs
// still running when ctx expires are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			err = fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
		if err != nil {
			break
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	metrics.UpdateAnalysisWorkers(0)
	return err
}
