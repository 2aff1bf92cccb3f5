package events

import (
	"sync"

	"status-hub/internal/domain"
)

// Bus fans auth events out to subscribers. Implements domain.AuthEventSource.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(domain.AuthEvent)
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]func(domain.AuthEvent))}
}

// Subscribe registers handler and returns a function removing it.
// Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(handler func(domain.AuthEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers event to every current subscriber on the caller's
// goroutine. Delivery order between subscribers is unspecified.
func (b *Bus) Publish(event domain.AuthEvent) {
	b.mu.RLock()
	handlers := make([]func(domain.AuthEvent), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
