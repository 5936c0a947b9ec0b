package api

import "sync"

// TokenInvalidEvent is published whenever the backend rejects the bearer
// token. Subscribers must be idempotent: several in-flight requests can each
// observe a 401 and each one produces its own event.
type TokenInvalidEvent struct {
	Status int
	Path   string
}

// InvalidationBus is a typed publish/subscribe channel for token
// invalidation. Any number of independent listeners may subscribe; delivery
// order across listeners is unspecified and delivery never blocks the
// publisher.
type InvalidationBus struct {
	mu   sync.Mutex
	subs map[int]chan TokenInvalidEvent
	next int
}

// NewInvalidationBus creates an empty bus.
func NewInvalidationBus() *InvalidationBus {
	return &InvalidationBus{
		subs: make(map[int]chan TokenInvalidEvent),
	}
}

// Subscribe registers a listener and returns its event channel together with
// a cancel function. The channel is buffered so a slow listener drops events
// instead of stalling the HTTP transport.
func (b *InvalidationBus) Subscribe() (<-chan TokenInvalidEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan TokenInvalidEvent, 4)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber without blocking.
func (b *InvalidationBus) Publish(ev TokenInvalidEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full, drop rather than block the transport.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *InvalidationBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
