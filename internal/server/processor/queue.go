// FILE: lixenwraith/chessassist/internal/server/processor/queue.go
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"chessassist/internal/server/analysis"
	"chessassist/internal/server/core"
)

const (
	DefaultWorkers         = 2
	DefaultAnalysisTimeout = 30 * time.Second
	queueCapacity          = 100
	deliveryGrace          = 100 * time.Millisecond
)

var (
	ErrQueueFull     = errors.New("analysis queue is full")
	ErrQueueShutdown = errors.New("analysis queue is shutting down")
)

// AnalystFactory builds the collaborator owned by one worker.
type AnalystFactory func() (analysis.Analyst, error)

// AnalysisTask contains a position to analyse and the response channel
type AnalysisTask struct {
	SessionID string
	Revision  int // Board revision the result belongs to
	FEN       string
	Response  chan<- AnalysisResult
}

// AnalysisResult contains the outcome of one collaborator request
type AnalysisResult struct {
	SessionID   string
	Revision    int
	FEN         string
	Suggestions []core.Suggestion
	Elapsed     time.Duration
	Error       error
}

// AnalysisQueue manages async analysis requests on a fixed worker pool
type AnalysisQueue struct {
	tasks   chan AnalysisTask
	factory AnalystFactory
	workers int
	count   int
	timeout time.Duration
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// QueueConfig sizes the worker pool and bounds each request.
type QueueConfig struct {
	Workers int
	Timeout time.Duration
	Count   int // Suggestions requested per position
}

// NewAnalysisQueue creates a queue and starts its workers
func NewAnalysisQueue(factory AnalystFactory, cfg QueueConfig) *AnalysisQueue {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAnalysisTimeout
	}
	if cfg.Count < 1 {
		cfg.Count = analysis.DefaultCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &AnalysisQueue{
		tasks:   make(chan AnalysisTask, queueCapacity),
		factory: factory,
		workers: cfg.Workers,
		count:   cfg.Count,
		timeout: cfg.Timeout,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// worker processes analysis tasks. The collaborator is created lazily and
// dropped whenever it reports itself unavailable, so the next task starts
// a fresh one instead of reusing a dead process.
func (q *AnalysisQueue) worker(id int) {
	defer q.wg.Done()

	var analyst analysis.Analyst
	defer func() {
		closeAnalyst(analyst)
	}()

	for {
		select {
		case task := <-q.tasks:
			if analyst == nil {
				a, err := q.factory()
				if err != nil {
					log.Printf("Analysis worker %d failed to initialize collaborator: %v", id, err)
					q.deliver(task, AnalysisResult{
						SessionID: task.SessionID,
						Revision:  task.Revision,
						FEN:       task.FEN,
						Error:     fmt.Errorf("%w: %v", analysis.ErrUnavailable, err),
					})
					continue
				}
				analyst = a
			}

			result := q.processTask(analyst, task)
			if errors.Is(result.Error, analysis.ErrUnavailable) {
				log.Printf("Analysis worker %d discarding collaborator: %v", id, result.Error)
				closeAnalyst(analyst)
				analyst = nil
			}
			q.deliver(task, result)

		case <-q.ctx.Done():
			return
		}
	}
}

func closeAnalyst(a analysis.Analyst) {
	if c, ok := a.(io.Closer); ok {
		c.Close()
	}
}

// deliver sends the result if the receiver is still listening
func (q *AnalysisQueue) deliver(task AnalysisTask, result AnalysisResult) {
	select {
	case task.Response <- result:
	case <-time.After(deliveryGrace):
		// Receiver abandoned, discard result
	}
}

// processTask executes a single collaborator request
func (q *AnalysisQueue) processTask(analyst analysis.Analyst, task AnalysisTask) AnalysisResult {
	result := AnalysisResult{
		SessionID: task.SessionID,
		Revision:  task.Revision,
		FEN:       task.FEN,
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	start := time.Now()
	suggestions, err := analyst.Analyse(ctx, task.FEN, q.count)
	result.Elapsed = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}

	result.Suggestions = analysis.Normalize(suggestions, q.count)
	return result
}

// Submit adds a task to the queue
func (q *AnalysisQueue) Submit(task AnalysisTask) error {
	if q.ctx.Err() != nil {
		return ErrQueueShutdown
	}
	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return ErrQueueShutdown
	default:
		return ErrQueueFull
	}
}

// SubmitAsync submits a task without blocking for its result. The callback
// runs exactly once, with a timeout error if no worker answers in time.
func (q *AnalysisQueue) SubmitAsync(sessionID string, revision int, fen string, callback func(AnalysisResult)) error {
	respChan := make(chan AnalysisResult, 1)

	task := AnalysisTask{
		SessionID: sessionID,
		Revision:  revision,
		FEN:       fen,
		Response:  respChan,
	}

	if err := q.Submit(task); err != nil {
		return err
	}

	// Queue wait plus one request, with slack for delivery
	deadline := time.Duration(len(q.tasks)/q.workers+1)*q.timeout + time.Second

	go func() {
		select {
		case result := <-respChan:
			callback(result)
		case <-time.After(deadline):
			callback(AnalysisResult{
				SessionID: sessionID,
				Revision:  revision,
				FEN:       fen,
				Error:     fmt.Errorf("%w: analysis timeout", analysis.ErrUnavailable),
			})
		case <-q.ctx.Done():
			callback(AnalysisResult{
				SessionID: sessionID,
				Revision:  revision,
				FEN:       fen,
				Error:     ErrQueueShutdown,
			})
		}
	}()

	return nil
}

// Shutdown gracefully stops the queue
func (q *AnalysisQueue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
