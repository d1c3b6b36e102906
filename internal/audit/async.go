package audit

import "log"

// AsyncRecorder decouples recording from the request path: Record enqueues
// and returns immediately, a single background goroutine drains into the
// wrapped recorder. A full queue drops the event with a log line; the caller
// never observes any of this.
type AsyncRecorder struct {
	next   Recorder
	queue  chan Event
	done   chan struct{}
	logger *log.Logger
}

func NewAsyncRecorder(next Recorder, depth int, logger *log.Logger) *AsyncRecorder {
	if depth <= 0 {
		depth = 256
	}
	if logger == nil {
		logger = log.Default()
	}
	a := &AsyncRecorder{
		next:   next,
		queue:  make(chan Event, depth),
		done:   make(chan struct{}),
		logger: logger,
	}
	go a.drain()
	return a
}

func (a *AsyncRecorder) Record(e Event) {
	select {
	case a.queue <- e:
	default:
		a.logger.Printf("audit: queue full, dropped %s event for %s", e.Kind, e.UID)
	}
}

// Close flushes queued events and stops the drain goroutine.
func (a *AsyncRecorder) Close() {
	close(a.queue)
	<-a.done
}

func (a *AsyncRecorder) drain() {
	defer close(a.done)
	for e := range a.queue {
		a.next.Record(e)
	}
}
