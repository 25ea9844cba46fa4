package kinauth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// auditDispatcher decouples security-event emission from the hot path. Events
// are queued on a buffered channel and drained by a single goroutine so a slow
// sink can never stall a login.
type auditDispatcher struct {
	sink    AuditSink
	events  chan AuditEvent
	dropped atomic.Uint64
	now     func() time.Time

	wg       sync.WaitGroup
	shutdown chan struct{}
	closed   atomic.Bool

	dropIfFull bool
}

func newAuditDispatcher(sink AuditSink, cfg AuditConfig, now func() time.Time) *auditDispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 256
	}
	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		now:        now,
		shutdown:   make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.events:
			d.sink.Emit(context.Background(), ev)
		case <-d.shutdown:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case ev := <-d.events:
					d.sink.Emit(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// emit stamps the event with an ID and timestamp and enqueues it. When the
// buffer is full the event is either dropped (counted) or enqueued blocking,
// depending on configuration.
func (d *auditDispatcher) emit(event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = d.now()

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-d.shutdown:
		d.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// close stops the dispatcher after draining queued events. Safe to call more
// than once.
func (d *auditDispatcher) close() {
	if d == nil || !d.closed.CompareAndSwap(false, true) {
		return
	}
	close(d.shutdown)
	d.wg.Wait()
}
