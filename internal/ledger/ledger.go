// Package ledger serializes every registry mutation into a single command
// stream executed by one worker goroutine.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrClosed     = errors.New("ledger is closed")
	ErrNotStarted = errors.New("ledger is not started")
)

const DefaultQueueSize = 64

// Command is one mutation. It runs on the worker goroutine with a context
// that is never cancelled by the submitter.
type Command func(ctx context.Context) error

type request struct {
	name   string
	fn     Command
	result chan error
}

type Ledger struct {
	logger *slog.Logger
	queue  chan request

	mu      sync.RWMutex
	closed  bool
	started bool

	done chan struct{}
	seq  uint64
}

func New(queueSize int, logger *slog.Logger) *Ledger {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		logger: logger,
		queue:  make(chan request, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once is a no-op.
func (l *Ledger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	go l.run()
}

// Submit enqueues fn and blocks until it has settled. ctx only bounds the
// wait for a queue slot; once enqueued the command always runs and the
// caller always receives its outcome.
func (l *Ledger) Submit(ctx context.Context, name string, fn Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := request{name: name, fn: fn, result: make(chan error, 1)}

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	if !l.started {
		l.mu.RUnlock()
		return ErrNotStarted
	}
	select {
	case l.queue <- req:
		l.mu.RUnlock()
	case <-ctx.Done():
		l.mu.RUnlock()
		return ctx.Err()
	}

	return <-req.result
}

// Close stops accepting commands, drains the queue and waits for the worker.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	started := l.started
	close(l.queue)
	l.mu.Unlock()

	if !started {
		return nil
	}
	<-l.done
	return nil
}

func (l *Ledger) run() {
	defer close(l.done)
	for req := range l.queue {
		l.execute(req)
	}
}

func (l *Ledger) execute(req request) {
	l.seq++
	start := time.Now()
	err := l.safeCall(req.fn)

	attrs := []any{"command", req.name, "seq", l.seq, "duration", time.Since(start)}
	if err != nil {
		l.logger.Debug("ledger command failed", append(attrs, "error", err)...)
	} else {
		l.logger.Debug("ledger command applied", attrs...)
	}
	req.result <- err
}

func (l *Ledger) safeCall(fn Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ledger command panicked: %v", r)
		}
	}()
	return fn(context.Background())
}
