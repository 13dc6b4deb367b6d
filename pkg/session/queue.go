package session

import "sync"

// Queue delivers events to a single handler in push order, one at a time.
// Push never blocks the producer; a dedicated worker goroutine runs the
// handler, so a slow handler backs events up in the queue rather than in the
// service's reader.
type Queue struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	closed  bool

	handler func(Event)
}

// NewQueue creates a queue and starts its worker.
func NewQueue(handler func(Event)) *Queue {
	q := &Queue{
		wake:    make(chan struct{}, 1),
		handler: handler,
	}
	go q.run()
	return q
}

// Push enqueues an event. Events pushed after Close are dropped.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery. Queued but undelivered events are discarded; a
// handler invocation in flight runs to completion. Close does not wait for
// it, so it is safe to call from inside the handler itself (unsubscribing
// while an event is being processed).
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.pending = nil
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			<-q.wake
			continue
		}
		ev := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.handler(ev)
	}
}
