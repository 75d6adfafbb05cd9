package authshift

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples request paths from the sink. Events flow through
// a bounded queue consumed by a single worker goroutine; whether a full queue
// blocks the caller or sheds the event is the DropIfFull policy decision.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	mu      sync.RWMutex
	stopped bool

	queue      chan AuditEvent
	workerDone chan struct{}

	dropped  atomic.Uint64
	stopOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, size),
		workerDone: make(chan struct{}),
	}
	go d.worker()

	return d
}

func (d *auditDispatcher) worker() {
	defer close(d.workerDone)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit hands an event to the worker. After Close it is a no-op. In lossless
// mode a full queue blocks until the worker catches up or ctx is canceled;
// in drop mode the event is counted and discarded instead.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// The read lock keeps Close from closing the queue mid-send.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, waits for the worker to deliver everything already
// queued, and returns. Safe to call more than once and on a nil dispatcher.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.queue)
		d.mu.Unlock()

		<-d.workerDone
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
