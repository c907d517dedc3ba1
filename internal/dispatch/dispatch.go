// Package dispatch provides the delivery contexts completions are handed to.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Executor runs submitted tasks. Submit must not block on the task itself.
type Executor interface {
	Submit(task func())
}

// Immediate runs every task inline on the submitting goroutine.
type Immediate struct{}

func (Immediate) Submit(task func()) { task() }

// Queue runs tasks one at a time, in submission order, on its own goroutine.
// The backlog is unbounded so Submit never blocks.
type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool
	signal  chan struct{}
	done    chan struct{}
}

func NewQueue(ctx context.Context, logger *slog.Logger) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	return (&Queue{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}).run()
}

// Submit enqueues task. Tasks submitted after Close are dropped.
func (q *Queue) Submit(task func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, task)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting tasks, runs what is already queued and waits for the loop to exit.
func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	<-q.done
	return nil
}

func (q *Queue) run() *Queue {
	go func() {
		defer close(q.done)
		for {
			select {
			case <-q.ctx.Done():
				q.mu.Lock()
				q.closed = true
				q.mu.Unlock()
				q.drain()
				return
			case <-q.signal:
				q.drain()
			}
		}
	}()
	return q
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.pending = nil
			q.mu.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, task := range batch {
			q.exec(task)
		}
	}
}

func (q *Queue) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("dispatch: task panicked", "panic", r)
		}
	}()
	task()
}
