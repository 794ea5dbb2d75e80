// Package bus carries gateway events from the adapter to the dispatcher.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/swgoh/prereqbot/pkg/events"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("bus closed")

// Subscriber is a named tap on the event stream. Multiple subscribers can
// independently observe the same published events (fan-out).
type Subscriber struct {
	Name string
	ch   chan events.Event
}

// EventBus is a single-consumer queue of events with observability taps.
// The primary consumer receives every event exactly once, in publish order.
type EventBus struct {
	inbound   chan events.Event
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.RWMutex
	taps []*Subscriber
}

// New creates a bus whose queue holds up to size events before Publish blocks.
func New(size int) *EventBus {
	return &EventBus{
		inbound: make(chan events.Event, size),
		done:    make(chan struct{}),
	}
}

// SubscribeTap creates a named subscriber that receives copies of all events.
// The returned channel is buffered; slow taps drop events. It is closed by Close.
func (b *EventBus) SubscribeTap(name string) <-chan events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscriber{Name: name, ch: make(chan events.Event, 64)}
	b.taps = append(b.taps, sub)
	return sub.ch
}

func (b *EventBus) fanOut(ev events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	select {
	case <-b.done:
		return
	default:
	}
	for _, sub := range b.taps {
		select {
		case sub.ch <- ev:
		default: // non-blocking, drop if subscriber is slow
		}
	}
}

// Publish queues ev for the consumer. Unlike taps, the queue never drops:
// Publish waits for room until ctx is done or the bus is closed.
func (b *EventBus) Publish(ctx context.Context, ev events.Event) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	select {
	case b.inbound <- ev:
		b.fanOut(ev)
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns the next event. ok is false once ctx is done or the bus is
// closed; events still queued at Close are drained first.
func (b *EventBus) Consume(ctx context.Context) (ev events.Event, ok bool) {
	select {
	case ev := <-b.inbound:
		return ev, true
	default:
	}

	select {
	case ev := <-b.inbound:
		return ev, true
	case <-b.done:
		select {
		case ev := <-b.inbound:
			return ev, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

// Len reports how many events are waiting for the consumer.
func (b *EventBus) Len() int { return len(b.inbound) }

// Close stops the bus. Pending Publish calls return ErrClosed and tap channels are closed.
func (b *EventBus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		for _, sub := range b.taps {
			close(sub.ch)
		}
		b.taps = nil
		b.mu.Unlock()
	})
}
