package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// OnDrop is called from Emit, outside any lock, for every dropped event.
	OnDrop func(Event)
}

// Dispatcher forwards events to a sink from a single background goroutine so
// slow sinks never block request handling. A nil *Dispatcher is a valid no-op.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan Event
	stop    chan struct{}
	stopped chan struct{}
	dropped atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan Event, cfg.BufferSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)

	ctx := context.Background()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		case <-d.stop:
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event; otherwise
// Emit waits for room, ctx cancellation or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
			if d.cfg.OnDrop != nil {
				d.cfg.OnDrop(event)
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events, delivers whatever is buffered and waits for the
// background goroutine to exit. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		<-d.stopped
	})
}

// Dropped returns the number of events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
