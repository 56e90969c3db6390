package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit drop instead of block when the buffer is full.
	DropIfFull bool

	// OnDrop, when set, is called for every event dropped on a full buffer.
	OnDrop func(Event)
	// OnSinkPanic, when set, receives what a panicking sink panicked with.
	OnSinkPanic func(Event, any)
	// Now stamps events that carry no timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Stats counts what happened to emitted events.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	// Failed counts events whose sink panicked.
	Failed uint64
}

// Dispatcher hands audit events to a sink on its own goroutine.
type Dispatcher struct {
	cfg  Config
	sink Sink

	queue   chan Event
	quit    chan struct{}
	stopped chan struct{}
	stop    sync.Once

	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. A disabled config returns nil,
// and every method is safe on a nil *Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	cfg.BufferSize = max(cfg.BufferSize, 1)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan Event, cfg.BufferSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

// drain delivers whatever is still buffered after quit.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			if d.cfg.OnSinkPanic != nil {
				d.cfg.OnSinkPanic(ev, r)
			}
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. With DropIfFull a full buffer drops it; otherwise Emit
// waits for room until ctx is done. Events after Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closing() {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = d.cfg.Now().UTC()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- ev:
		case <-d.quit:
		default:
			d.dropped.Add(1)
			if d.cfg.OnDrop != nil {
				d.cfg.OnDrop(ev)
			}
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- ev:
	case <-ctx.Done():
	case <-d.quit:
	}
}

func (d *Dispatcher) closing() bool {
	select {
	case <-d.quit:
		return true
	default:
		return false
	}
}

// Close stops accepting events, delivers what is buffered and waits for the
// sink to finish. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stop.Do(func() { close(d.quit) })
	<-d.stopped
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Failed:    d.failed.Load(),
	}
}
