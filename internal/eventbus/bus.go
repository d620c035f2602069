// Package eventbus fans pipeline signals out to in-process consumers.
//
// The monitor publishes stored-message and keyword-hit records, the notify
// engine publishes delivery outcomes, and the web layer's SSE endpoint
// subscribes to stream them to live viewers. Publish never blocks: a
// subscriber that falls behind its buffer loses events instead of slowing
// the pipeline down.
package eventbus

import (
	"sync"
	"time"
)

// Event types published by the pipeline.
const (
	TypeMessageStored = "message.stored"
	TypeKeywordMatch  = "keyword.match"
	TypeNotifySent    = "notify.sent"
	TypeNotifyFailed  = "notify.failed"
	TypeNotifyCooled  = "notify.cooled"
	TypeNotifyDropped = "notify.dropped"
)

// Event is a lightweight in-memory signal. Data crosses the SSE boundary as
// JSON, so keep it small and serializable.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	// Publish delivers e to every current subscriber without blocking.
	Publish(e Event)
	// Subscribe returns a buffered event channel and a func that detaches
	// it. The channel is closed on detach; calling unsubscribe twice is fine.
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines; events move on
// the publisher's stack.
func New() Bus {
	return &memBus{subs: map[uint64]*subscriber{}}
}

type memBus struct {
	mu   sync.Mutex
	seq  uint64
	subs map[uint64]*subscriber
}

// subscriber pairs the channel with a closed flag so a concurrent Publish
// can never send on a channel that Unsubscribe just closed.
type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *subscriber) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- e:
	default:
		// Buffer full; this viewer misses the event.
	}
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(e)
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	sub := &subscriber{ch: make(chan Event, buffer)}

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()

		sub.mu.Lock()
		defer sub.mu.Unlock()
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	return sub.ch, unsubscribe
}
