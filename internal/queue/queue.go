// Package queue is the bounded async hand-off shared by audit and notify
// delivery: producers enqueue without waiting on I/O, one worker drains.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrFull is reported when DropIfFull discards an item.
var ErrFull = errors.New("queue full")

// Config controls buffering behavior.
type Config struct {
	BufferSize int
	DropIfFull bool
}

// Queue delivers items to handle on a single background goroutine.
type Queue[T any] struct {
	cfg       Config
	handle    func(context.Context, T)
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts a queue worker.
func New[T any](cfg Config, handle func(context.Context, T)) *Queue[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	q := &Queue[T]{
		cfg:    cfg,
		handle: handle,
		ch:     make(chan T, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	q.wg.Add(1)
	go q.run()

	return q
}

func (q *Queue[T]) run() {
	defer q.wg.Done()

	for {
		select {
		case item := <-q.ch:
			q.handle(context.Background(), item)
		case <-q.done:
			for {
				select {
				case item := <-q.ch:
					q.handle(context.Background(), item)
				default:
					return
				}
			}
		}
	}
}

// Push enqueues item. With DropIfFull it never blocks and returns ErrFull
// when the buffer is full; otherwise it waits for space or ctx. Items pushed
// after Close are ignored.
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	if q == nil || q.closed.Load() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if q.cfg.DropIfFull {
		select {
		case q.ch <- item:
		case <-q.done:
		default:
			q.dropped.Add(1)
			return ErrFull
		}
		return nil
	}

	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		q.dropped.Add(1)
		return ctx.Err()
	case <-q.done:
		return nil
	}
}

// Close stops accepting items and drains what is buffered.
func (q *Queue[T]) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.done)
		q.wg.Wait()
	})
}

// Dropped returns the number of items discarded before delivery.
func (q *Queue[T]) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
