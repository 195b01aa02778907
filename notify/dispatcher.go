package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/clinicauth/internal/queue"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Async       bool
	BufferSize  int
	DropIfFull  bool
	SendTimeout time.Duration
}

// Dispatcher forwards messages to a sender. With Async set, messages are
// queued and delivered by a single background goroutine.
type Dispatcher struct {
	cfg     Config
	sender  Sender
	onError func(Message, error)
	queue   *queue.Queue[Message]
	failed  atomic.Uint64
	closed  atomic.Bool
}

// NewDispatcher returns a dispatcher. onError is called for every failed or
// dropped message; it may be nil.
func NewDispatcher(cfg Config, sender Sender, onError func(Message, error)) *Dispatcher {
	if sender == nil {
		sender = NoOpSender{}
	}
	if onError == nil {
		onError = func(Message, error) {}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		onError: onError,
	}
	if cfg.Async {
		d.queue = queue.New(queue.Config{
			BufferSize: cfg.BufferSize,
			DropIfFull: cfg.DropIfFull,
		}, d.deliver)
	}
	return d
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	if d.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.onError(msg, err)
	}
}

// Dispatch delivers msg now (sync mode) or enqueues it (async mode). It never
// returns an error; failures go to the onError callback.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.queue == nil {
		d.deliver(context.WithoutCancel(ctx), msg)
		return
	}
	if err := d.queue.Push(ctx, msg); err != nil {
		d.onError(msg, err)
	}
}

// Close stops accepting messages and drains the queue.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closed.Store(true)
	d.queue.Close()
}

// Dropped returns the number of messages discarded before delivery.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.queue.Dropped()
}

// Failed returns the number of messages the sender rejected.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
