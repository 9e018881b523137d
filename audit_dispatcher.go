package digivahan

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples flow latency from sink latency. Events are
// handed to the sink from a single goroutine, never from the caller.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	dropIfFull bool
	dropped    atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

func newAuditDispatcher(sink AuditSink, buffer int, dropIfFull bool) *auditDispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		dropIfFull: dropIfFull,
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		d.sink.Emit(context.Background(), event)
	}
}

// dispatch enqueues the event. With dropIfFull the caller never blocks;
// otherwise it waits for buffer space.
func (d *auditDispatcher) dispatch(event AuditEvent) {
	if d == nil {
		return
	}
	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	d.events <- event
}

// Dropped reports how many events were discarded because the buffer was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// close drains the buffer and waits for the worker to exit.
func (d *auditDispatcher) close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.events)
	})
	<-d.done
}
