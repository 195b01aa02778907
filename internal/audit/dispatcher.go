package audit

import (
	"context"

	"github.com/MrEthical07/clinicauth/internal/queue"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink. A disabled
// configuration yields a nil dispatcher, and every method is nil-safe.
type Dispatcher struct {
	queue *queue.Queue[Event]
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	return &Dispatcher{
		queue: queue.New(queue.Config{
			BufferSize: cfg.BufferSize,
			DropIfFull: cfg.DropIfFull,
		}, sink.Emit),
	}
}

func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	_ = d.queue.Push(ctx, event)
}

func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.queue.Close()
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.queue.Dropped()
}
