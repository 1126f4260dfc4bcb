package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

type Topic string
type Event = any

type subscription struct {
	ch   chan Event
	once sync.Once
}

// Bus is an in-memory pub/sub. Each topic retains its last event and
// each subscriber holds at most one pending event: a newer publish
// replaces an unread older one, so slow readers always see the latest.
type Bus struct {
	mu     sync.Mutex
	subs   map[Topic]map[*subscription]struct{}
	last   map[Topic]Event
	closed bool

	events   atomic.Int64
	sent     atomic.Int64
	replaced atomic.Int64
}

// Stats counts deliveries since the bus was created.
type Stats struct {
	Events      int64 `json:"events"`
	Sent        int64 `json:"sent"`
	Replaced    int64 `json:"replaced"`
	Subscribers int   `json:"subscribers"`
}

func New() *Bus {
	return &Bus{
		subs: make(map[Topic]map[*subscription]struct{}),
		last: make(map[Topic]Event),
	}
}

func (b *Bus) Stats() Stats {
	b.mu.Lock()
	n := 0
	for _, m := range b.subs {
		n += len(m)
	}
	b.mu.Unlock()
	return Stats{
		Events:      b.events.Load(),
		Sent:        b.sent.Load(),
		Replaced:    b.replaced.Load(),
		Subscribers: n,
	}
}

// Publish stores ev as the topic's last event and offers it to every
// subscriber. It never blocks.
func (b *Bus) Publish(topic Topic, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.events.Add(1)
	b.last[topic] = ev
	for s := range b.subs[topic] {
		b.offer(s.ch, ev)
	}
}

// offer delivers ev, evicting an unread event first. Callers hold b.mu,
// so nothing else can refill ch between the eviction and the send.
func (b *Bus) offer(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
		select {
		case <-ch:
			b.replaced.Add(1)
		default:
		}
		ch <- ev
	}
	b.sent.Add(1)
}

// Subscribe returns a channel of events on topic and a function ending
// the subscription. withLast delivers the retained event straight away.
// The channel is closed when ctx is done, on unsubscribe, or on Close.
func (b *Bus) Subscribe(ctx context.Context, topic Topic, withLast bool) (<-chan Event, func()) {
	s := &subscription{ch: make(chan Event, 1)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscription]struct{})
	}
	b.subs[topic][s] = struct{}{}
	if last, ok := b.last[topic]; ok && withLast {
		b.offer(s.ch, last)
	}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[topic]; ok {
			delete(m, s)
			if len(m) == 0 {
				delete(b.subs, topic)
			}
		}
		s.once.Do(func() { close(s.ch) })
	}
	stop := context.AfterFunc(ctx, unsub)
	return s.ch, func() {
		stop()
		unsub()
	}
}

// GetLast returns the last published event for a topic (if any).
func (b *Bus) GetLast(topic Topic) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.last[topic]
	return v, ok
}

// Close ends every subscription. Afterwards Publish is a no-op and
// Subscribe returns a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, m := range b.subs {
		for s := range m {
			s.once.Do(func() { close(s.ch) })
		}
	}
	b.subs = nil
}
