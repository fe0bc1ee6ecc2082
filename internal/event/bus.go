// Package event carries session notifications from the read loop to
// whoever is listening: the demo front-end, tests, or nothing at all.
// Publishing never blocks; a subscriber that cannot keep up loses events
// and the loss is counted.
package event

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultSubscriberBufferSize = 128

type BusOptions struct {
	Name                 string
	SubscriberBufferSize int
	MaxSubscribers       int
	HistorySize          int
}

type subscription[T any] struct {
	id     uint64
	ch     chan T
	filter func(T) bool
}

type Bus[T any] struct {
	mu           sync.Mutex
	subscribers  map[uint64]subscription[T]
	nextSubID    uint64
	closed       bool
	closeOnce    sync.Once
	options      BusOptions
	published    atomic.Int64
	dropped      atomic.Int64
	history      []T
	historyNext  int
	historyCount int
}

// NewBus returns a bus that closes when ctx is cancelled.
func NewBus[T any](ctx context.Context, opts BusOptions) *Bus[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.SubscriberBufferSize <= 0 {
		opts.SubscriberBufferSize = defaultSubscriberBufferSize
	}
	bus := &Bus[T]{
		subscribers: make(map[uint64]subscription[T]),
		options:     opts,
	}
	if opts.HistorySize > 0 {
		bus.history = make([]T, opts.HistorySize)
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			bus.Close()
		}()
	}
	return bus
}

func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	return b.SubscribeFiltered(nil)
}

func (b *Bus[T]) SubscribeFiltered(filter func(T) bool) (<-chan T, func()) {
	if b == nil {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan T, b.options.SubscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if b.options.MaxSubscribers > 0 && len(b.subscribers) >= b.options.MaxSubscribers {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.nextSubID++
	id := b.nextSubID
	b.subscribers[id] = subscription[T]{id: id, ch: ch, filter: filter}
	b.mu.Unlock()

	return ch, func() { b.removeSubscriber(id) }
}

// SubscribeTypes delivers only events whose Type() matches one of the
// given names. T must implement Event for any delivery to happen.
func (b *Bus[T]) SubscribeTypes(eventTypes ...string) (<-chan T, func()) {
	typeSet := make(map[string]struct{}, len(eventTypes))
	for _, eventType := range eventTypes {
		if eventType != "" {
			typeSet[eventType] = struct{}{}
		}
	}
	if len(typeSet) == 0 {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	return b.SubscribeFiltered(func(ev T) bool {
		typed, ok := any(ev).(Event)
		if !ok {
			return false
		}
		_, matched := typeSet[typed.Type()]
		return matched
	})
}

func (b *Bus[T]) Publish(ev T) {
	if b == nil {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.appendHistoryLocked(ev)
	subscribers := make([]subscription[T], 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subscribers = append(subscribers, sub)
	}
	b.mu.Unlock()

	b.published.Add(1)

	for _, sub := range subscribers {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// History returns the retained events oldest first, nil when history is
// disabled.
func (b *Bus[T]) History() []T {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.historyCount == 0 {
		return nil
	}
	out := make([]T, b.historyCount)
	start := (b.historyNext - b.historyCount + len(b.history)) % len(b.history)
	for i := 0; i < b.historyCount; i++ {
		out[i] = b.history[(start+i)%len(b.history)]
	}
	return out
}

// Stats returns the number of events published and the number of sends
// dropped on full subscriber channels.
func (b *Bus[T]) Stats() (published, dropped int64) {
	if b == nil {
		return 0, 0
	}
	return b.published.Load(), b.dropped.Load()
}

func (b *Bus[T]) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		for id, sub := range b.subscribers {
			delete(b.subscribers, id)
			close(sub.ch)
		}
		b.mu.Unlock()
	})
}

func (b *Bus[T]) removeSubscriber(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

func (b *Bus[T]) appendHistoryLocked(ev T) {
	if len(b.history) == 0 {
		return
	}
	b.history[b.historyNext] = ev
	b.historyNext = (b.historyNext + 1) % len(b.history)
	if b.historyCount < len(b.history) {
		b.historyCount++
	}
}
