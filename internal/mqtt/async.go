package mqtt

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sweeney/fridge-thermostat/internal/logger"
	"github.com/sweeney/fridge-thermostat/internal/logic"
)

// QueueDepth is the default number of messages waiting for the sender goroutine.
const QueueDepth = 64

var (
	// ErrQueueFull is returned when the send queue has no room; the message is dropped.
	ErrQueueFull = errors.New("mqtt: send queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("mqtt: publisher closed")
)

// AsyncPublisher hands messages to a single sender goroutine so the control
// loop never waits on the broker. Messages are sent in the order queued.
type AsyncPublisher struct {
	next Publisher
	log  *logger.Logger

	mu     sync.Mutex
	closed bool
	queue  chan func() error
	done   chan struct{}

	dropped atomic.Int64
}

// NewAsyncPublisher starts the sender goroutine in front of next.
func NewAsyncPublisher(next Publisher, depth int, l *logger.Logger) *AsyncPublisher {
	if depth < 1 {
		depth = 1
	}
	if l == nil {
		l = logger.Discard()
	}
	a := &AsyncPublisher{
		next:  next,
		log:   l,
		queue: make(chan func() error, depth),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncPublisher) loop() {
	defer close(a.done)
	for send := range a.queue {
		if err := send(); err != nil {
			a.log.Warnf("publish failed: %v", err)
		}
	}
}

// Publish queues a compressor event. It never blocks.
func (a *AsyncPublisher) Publish(event logic.Event) error {
	return a.enqueue(func() error { return a.next.Publish(event) })
}

// PublishSystem queues a system event. It never blocks.
func (a *AsyncPublisher) PublishSystem(event SystemEvent) error {
	return a.enqueue(func() error { return a.next.PublishSystem(event) })
}

func (a *AsyncPublisher) enqueue(send func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- send:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped returns the number of messages rejected because the queue was full.
func (a *AsyncPublisher) Dropped() int64 {
	return a.dropped.Load()
}

// IsConnected reports the wrapped publisher's connection state, or true when
// it does not expose one.
func (a *AsyncPublisher) IsConnected() bool {
	if cs, ok := a.next.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return true
}

// Close sends whatever is still queued, then closes the wrapped publisher.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
