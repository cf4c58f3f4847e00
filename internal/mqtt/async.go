package mqtt

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/microwave-oven/internal/logic"
)

// ErrQueueFull is returned when an event cannot be queued because the
// sender goroutine has fallen too far behind.
var ErrQueueFull = errors.New("mqtt: publish queue full")

// ErrClosed is returned for events published after Close.
var ErrClosed = errors.New("mqtt: publisher closed")

// drainTimeout bounds how long Close waits for queued events.
const drainTimeout = 5 * time.Second

type job struct {
	name   string
	send   func(Publisher) error
	system bool
}

// Async wraps a Publisher so that Publish and PublishSystem only enqueue.
// A single goroutine sends queued events to the wrapped publisher in order,
// so a slow broker never holds up the caller.
type Async struct {
	next Publisher
	log  *zap.SugaredLogger

	mu       sync.Mutex
	closed   bool
	queue    chan job
	done     chan struct{}
	failures int
}

// NewAsync starts the sender goroutine. capacity is the number of events
// that may be waiting at once.
func NewAsync(next Publisher, capacity int, log *zap.SugaredLogger) *Async {
	a := &Async{
		next:  next,
		log:   log,
		queue: make(chan job, capacity),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer close(a.done)
	for j := range a.queue {
		if err := j.send(a.next); err != nil {
			a.mu.Lock()
			a.failures++
			a.mu.Unlock()
			a.log.Warnw("mqtt: publish failed", "event", j.name, "system", j.system, "error", err)
		}
	}
}

func (a *Async) enqueue(j job) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish queues a cook event.
func (a *Async) Publish(event logic.Event) error {
	return a.enqueue(job{
		name: string(event.Type),
		send: func(p Publisher) error { return p.Publish(event) },
	})
}

// PublishSystem queues a system event.
func (a *Async) PublishSystem(event SystemEvent) error {
	return a.enqueue(job{
		name:   event.Event,
		system: true,
		send:   func(p Publisher) error { return p.PublishSystem(event) },
	})
}

// Pending returns the number of queued events not yet handed to the
// wrapped publisher.
func (a *Async) Pending() int {
	return len(a.queue)
}

// Failures returns how many sends the wrapped publisher rejected.
func (a *Async) Failures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures
}

// IsConnected delegates to the wrapped publisher when it reports status.
func (a *Async) IsConnected() bool {
	if cs, ok := a.next.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Close stops accepting events, waits up to drainTimeout for the queue to
// empty, then closes the wrapped publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(drainTimeout):
		a.log.Warnw("mqtt: gave up draining publish queue", "pending", len(a.queue))
	}
	return a.next.Close()
}
